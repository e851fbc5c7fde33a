package bridgesdk

import (
	"reflect"
	"sync"
)

// Overrides holds test substitutes for the SDK singletons. A slot that has
// never been set reads as nil, which tells the accessors to use the
// production instance. The registry only references the injected values.
type Overrides struct {
	mu                 sync.RWMutex
	appConfig          *AppConfig
	participantManager ParticipantManager
	activityManager    ActivityManager
}

// NewOverrides returns an empty registry
func NewOverrides() *Overrides {
	return &Overrides{}
}

// TestAppConfig returns the app config override or nil
func (o *Overrides) TestAppConfig() *AppConfig {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.appConfig
}

// SetTestAppConfig replaces the app config override. appConfig must not be nil.
func (o *Overrides) SetTestAppConfig(appConfig *AppConfig) {
	if appConfig == nil {
		panic("bridgesdk: SetTestAppConfig called with nil app config")
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.appConfig = appConfig
}

// TestParticipantManager returns the participant manager override or nil
func (o *Overrides) TestParticipantManager() ParticipantManager {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.participantManager
}

// SetTestParticipantManager replaces the participant manager override.
// manager must not be nil, including a nil pointer of a concrete type.
func (o *Overrides) SetTestParticipantManager(manager ParticipantManager) {
	if isNil(manager) {
		panic("bridgesdk: SetTestParticipantManager called with nil manager")
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.participantManager = manager
}

// TestActivityManager returns the activity manager override or nil
func (o *Overrides) TestActivityManager() ActivityManager {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.activityManager
}

// SetTestActivityManager replaces the activity manager override.
// manager must not be nil, including a nil pointer of a concrete type.
func (o *Overrides) SetTestActivityManager(manager ActivityManager) {
	if isNil(manager) {
		panic("bridgesdk: SetTestActivityManager called with nil manager")
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.activityManager = manager
}

// isNil also catches a typed nil stored in an interface, which would
// otherwise read back as a non-nil override and panic on first use
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// Reset clears every slot
func (o *Overrides) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.appConfig = nil
	o.participantManager = nil
	o.activityManager = nil
}

// testOverrides is the process-wide registry behind the package-level accessors
var testOverrides = NewOverrides()

// DefaultOverrides returns the process-wide registry
func DefaultOverrides() *Overrides {
	return testOverrides
}

func TestAppConfig() *AppConfig { return testOverrides.TestAppConfig() }

func SetTestAppConfig(appConfig *AppConfig) { testOverrides.SetTestAppConfig(appConfig) }

func TestParticipantManager() ParticipantManager { return testOverrides.TestParticipantManager() }

func SetTestParticipantManager(manager ParticipantManager) {
	testOverrides.SetTestParticipantManager(manager)
}

func TestActivityManager() ActivityManager { return testOverrides.TestActivityManager() }

func SetTestActivityManager(manager ActivityManager) {
	testOverrides.SetTestActivityManager(manager)
}

// ResetTestOverrides clears the process-wide registry. Tests that use the
// package-level setters should call it during cleanup.
func ResetTestOverrides() {
	testOverrides.Reset()
}
