package bridgetest

import (
	"bytes"
	"errors"
	"io/fs"
	"sync"
	"testing"

	"github.com/dbehnke/bridge-harness/pkg/bridgeapp"
	"github.com/dbehnke/bridge-harness/pkg/bridgesdk"
	"github.com/dbehnke/bridge-harness/pkg/logger"
)

// DefaultAppConfigFile is the resource the harness loads the app config from
const DefaultAppConfigFile = "AppConfig.json"

// Harness wires mock managers and an optional app config fixture into an
// override registry so code resolving the SDK singletons gets the mocks
// without any production bootstrap.
type Harness struct {
	Overrides          *bridgesdk.Overrides
	SDK                *bridgesdk.SDK
	App                *bridgeapp.App
	ParticipantManager *MockParticipantManager
	ActivityManager    *MockActivityManager

	logger    *logger.Logger
	setupOnce sync.Once
	setupErr  error
}

type harnessOptions struct {
	participant   *bridgesdk.StudyParticipant
	overrides     *bridgesdk.Overrides
	logger        *logger.Logger
	appConfigFile string
}

// HarnessOption configures NewHarness
type HarnessOption func(*harnessOptions)

// WithParticipant signs in participant instead of DefaultMockParticipant
func WithParticipant(p *bridgesdk.StudyParticipant) HarnessOption {
	return func(o *harnessOptions) { o.participant = p }
}

// WithOverrides registers the mocks in o instead of the process-wide registry
func WithOverrides(o *bridgesdk.Overrides) HarnessOption {
	return func(opts *harnessOptions) { opts.overrides = o }
}

// WithLogger sets the harness logger
func WithLogger(l *logger.Logger) HarnessOption {
	return func(o *harnessOptions) { o.logger = l }
}

// WithAppConfigFile loads the app config fixture from name instead of AppConfig.json
func WithAppConfigFile(name string) HarnessOption {
	return func(o *harnessOptions) { o.appConfigFile = name }
}

// NewHarness registers the app config found in resources (if any) and the
// mock managers in the override registry. resources may be nil.
func NewHarness(resources fs.FS, opts ...HarnessOption) *Harness {
	o := harnessOptions{
		overrides:     bridgesdk.DefaultOverrides(),
		logger:        logger.Nop(),
		appConfigFile: DefaultAppConfigFile,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.participant == nil {
		o.participant = DefaultMockParticipant()
	}

	log := o.logger.WithComponent("bridgetest.harness")
	app := bridgeapp.New(o.logger)

	h := &Harness{
		Overrides:          o.overrides,
		SDK:                bridgesdk.New(bridgesdk.WithOverrides(o.overrides), bridgesdk.WithLogger(o.logger)),
		App:                app,
		ParticipantManager: NewMockParticipantManager(o.participant, app.Participants),
		ActivityManager:    NewMockActivityManager(app.Configuration),
		logger:             log,
	}

	if appConfig := loadAppConfig(resources, o.appConfigFile, log); appConfig != nil {
		h.Overrides.SetTestAppConfig(appConfig)
	}
	h.Overrides.SetTestParticipantManager(h.ParticipantManager)
	h.Overrides.SetTestActivityManager(h.ActivityManager)

	return h
}

// NewTestHarness is NewHarness with the registry reset when the test ends
func NewTestHarness(t testing.TB, resources fs.FS, opts ...HarnessOption) *Harness {
	t.Helper()
	h := NewHarness(resources, opts...)
	ResetOverridesOnCleanup(t, h.Overrides)
	return h
}

// ResetOverridesOnCleanup clears o when the test ends
func ResetOverridesOnCleanup(t testing.TB, o *bridgesdk.Overrides) {
	t.Helper()
	t.Cleanup(o.Reset)
}

// loadAppConfig returns nil when the fixture is missing or unreadable
func loadAppConfig(resources fs.FS, name string, log *logger.Logger) *bridgesdk.AppConfig {
	if resources == nil {
		return nil
	}

	data, err := fs.ReadFile(resources, name)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn("Failed to read app config fixture", logger.String("file", name), logger.Error(err))
		}
		return nil
	}

	appConfig, err := bridgesdk.NewObjectManager().DecodeAppConfig(bytes.NewReader(data))
	if err != nil {
		log.Warn("Ignoring invalid app config fixture", logger.String("file", name), logger.Error(err))
		return nil
	}

	log.Debug("Loaded app config fixture", logger.String("file", name), logger.String("label", appConfig.Label))
	return appConfig
}

// SetupBridgeIfNeeded configures the app from the SDK once and signs the mock
// participant in. Later calls return the first result.
func (h *Harness) SetupBridgeIfNeeded() error {
	h.setupOnce.Do(func() {
		if err := h.App.Configuration.SetupBridge(h.SDK); err != nil {
			h.setupErr = err
			return
		}
		h.ParticipantManager.SetupParticipant()
	})
	return h.setupErr
}
