package bridgesdk

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeParticipantManager struct {
	ParticipantManager
	name string
}

type fakeActivityManager struct {
	ActivityManager
	name string
}

func TestOverrides_EmptyRegistry(t *testing.T) {
	req := require.New(t)
	o := NewOverrides()

	req.Nil(o.TestAppConfig())
	req.Nil(o.TestParticipantManager())
	req.Nil(o.TestActivityManager())
}

func TestOverrides_SetThenGetReturnsSameReference(t *testing.T) {
	req := require.New(t)
	o := NewOverrides()

	cfg := &AppConfig{Label: "mock"}
	pm := &fakeParticipantManager{name: "pm"}
	am := &fakeActivityManager{name: "am"}

	o.SetTestAppConfig(cfg)
	o.SetTestParticipantManager(pm)
	o.SetTestActivityManager(am)

	req.Same(cfg, o.TestAppConfig())
	req.Same(pm, o.TestParticipantManager())
	req.Same(am, o.TestActivityManager())
}

func TestOverrides_LastWriteWins(t *testing.T) {
	req := require.New(t)
	o := NewOverrides()

	mockA := &fakeParticipantManager{name: "a"}
	mockB := &fakeParticipantManager{name: "b"}

	o.SetTestParticipantManager(mockA)
	o.SetTestParticipantManager(mockB)

	req.Same(mockB, o.TestParticipantManager())
	req.NotSame(mockA, o.TestParticipantManager())

	first := &AppConfig{Label: "first"}
	second := &AppConfig{Label: "second"}
	o.SetTestAppConfig(first)
	o.SetTestAppConfig(second)
	req.Same(second, o.TestAppConfig())
}

func TestOverrides_SlotsAreIndependent(t *testing.T) {
	req := require.New(t)
	o := NewOverrides()

	o.SetTestActivityManager(&fakeActivityManager{})

	req.Nil(o.TestAppConfig())
	req.Nil(o.TestParticipantManager())
	req.NotNil(o.TestActivityManager())

	o.SetTestAppConfig(&AppConfig{Label: "cfg"})
	req.Nil(o.TestParticipantManager())
}

func TestOverrides_NilSetterPanics(t *testing.T) {
	o := NewOverrides()

	require.Panics(t, func() { o.SetTestAppConfig(nil) })
	require.Panics(t, func() { o.SetTestParticipantManager(nil) })
	require.Panics(t, func() { o.SetTestActivityManager(nil) })
}

func TestOverrides_TypedNilSetterPanics(t *testing.T) {
	req := require.New(t)
	o := NewOverrides()

	var pm *fakeParticipantManager
	var am *fakeActivityManager
	req.Panics(func() { o.SetTestParticipantManager(pm) })
	req.Panics(func() { o.SetTestActivityManager(am) })

	// the rejected values never reach the slots
	req.Nil(o.TestParticipantManager())
	req.Nil(o.TestActivityManager())
}

func TestOverrides_Reset(t *testing.T) {
	req := require.New(t)
	o := NewOverrides()
	o.SetTestAppConfig(&AppConfig{Label: "cfg"})
	o.SetTestParticipantManager(&fakeParticipantManager{})
	o.SetTestActivityManager(&fakeActivityManager{})

	o.Reset()

	req.Nil(o.TestAppConfig())
	req.Nil(o.TestParticipantManager())
	req.Nil(o.TestActivityManager())
}

func TestPackageLevelOverrides(t *testing.T) {
	req := require.New(t)
	t.Cleanup(ResetTestOverrides)

	req.Nil(TestAppConfig())

	cfg := &AppConfig{Label: "global"}
	SetTestAppConfig(cfg)
	req.Same(cfg, TestAppConfig())
	req.Same(cfg, DefaultOverrides().TestAppConfig())

	pm := &fakeParticipantManager{}
	SetTestParticipantManager(pm)
	req.Same(pm, TestParticipantManager())

	req.Nil(TestActivityManager())
	am := &fakeActivityManager{}
	SetTestActivityManager(am)
	req.Same(am, TestActivityManager())

	ResetTestOverrides()
	req.Nil(TestAppConfig())
	req.Nil(TestParticipantManager())
	req.Nil(TestActivityManager())
}

func TestOverrides_ConcurrentAccess(t *testing.T) {
	req := require.New(t)
	o := NewOverrides()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(4)
		go func(i int) {
			defer wg.Done()
			o.SetTestAppConfig(&AppConfig{Label: fmt.Sprintf("cfg-%d", i)})
			o.SetTestParticipantManager(&fakeParticipantManager{name: fmt.Sprintf("pm-%d", i)})
		}(i)
		go func(i int) {
			defer wg.Done()
			o.SetTestActivityManager(&fakeActivityManager{name: fmt.Sprintf("am-%d", i)})
		}(i)
		go func() {
			defer wg.Done()
			_ = o.TestAppConfig()
			_ = o.TestParticipantManager()
			_ = o.TestActivityManager()
		}()
		go func(i int) {
			defer wg.Done()
			if i%10 == 0 {
				o.Reset()
			}
		}(i)
	}
	wg.Wait()

	o.SetTestParticipantManager(&fakeParticipantManager{name: "final"})
	pm, ok := o.TestParticipantManager().(*fakeParticipantManager)
	req.True(ok)
	req.Equal("final", pm.name)
}
