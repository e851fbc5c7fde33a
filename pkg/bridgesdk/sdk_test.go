package bridgesdk

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dbehnke/bridge-harness/pkg/logger"
)

func TestSDK_FallsBackToProviders(t *testing.T) {
	req := require.New(t)

	prodConfig := &AppConfig{Label: "production"}
	prodPM := &fakeParticipantManager{name: "prod"}
	builds := 0

	sdk := New(
		WithOverrides(NewOverrides()),
		WithLogger(logger.Nop()),
		WithProviders(Providers{
			AppConfig: func() *AppConfig {
				builds++
				return prodConfig
			},
			ParticipantManager: func() ParticipantManager { return prodPM },
		}),
	)

	req.Same(prodConfig, sdk.AppConfig())
	req.Same(prodConfig, sdk.AppConfig())
	req.Equal(1, builds, "production config should be built once")
	req.Same(prodPM, sdk.ParticipantManager())
	req.Nil(sdk.ActivityManager(), "no provider and no override resolves to nil")
}

func TestSDK_OverrideTakesPrecedence(t *testing.T) {
	req := require.New(t)
	overrides := NewOverrides()

	prodAM := &fakeActivityManager{name: "prod"}
	sdk := New(
		WithOverrides(overrides),
		WithProviders(Providers{
			ActivityManager: func() ActivityManager { return prodAM },
		}),
	)

	// Production instance already built
	req.Same(prodAM, sdk.ActivityManager())

	mock := &fakeActivityManager{name: "mock"}
	overrides.SetTestActivityManager(mock)
	req.Same(mock, sdk.ActivityManager())

	overrides.Reset()
	req.Same(prodAM, sdk.ActivityManager())
}

func TestSDK_UsesProcessWideRegistryByDefault(t *testing.T) {
	req := require.New(t)
	t.Cleanup(ResetTestOverrides)

	sdk := New()
	req.Same(DefaultOverrides(), sdk.Overrides())
	req.Same(Shared().Overrides(), DefaultOverrides())

	cfg := &AppConfig{Label: "mock"}
	SetTestAppConfig(cfg)
	req.Same(cfg, sdk.AppConfig())
	req.Same(cfg, Shared().AppConfig())
}
