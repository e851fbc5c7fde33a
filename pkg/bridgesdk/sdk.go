package bridgesdk

import (
	"sync"

	"github.com/dbehnke/bridge-harness/pkg/logger"
)

// Providers builds the production singletons. Any nil field leaves the
// matching accessor returning nil unless an override is registered.
type Providers struct {
	AppConfig          func() *AppConfig
	ParticipantManager func() ParticipantManager
	ActivityManager    func() ActivityManager
}

// SDK resolves the three singletons, consulting the override registry
// before the production providers on every call.
type SDK struct {
	overrides *Overrides
	providers Providers
	logger    *logger.Logger

	appConfigOnce          sync.Once
	appConfig              *AppConfig
	participantManagerOnce sync.Once
	participantManager     ParticipantManager
	activityManagerOnce    sync.Once
	activityManager        ActivityManager
}

// Option configures an SDK
type Option func(*SDK)

// WithOverrides binds the SDK to a registry other than the process-wide one
func WithOverrides(o *Overrides) Option {
	return func(s *SDK) { s.overrides = o }
}

// WithProviders sets the production constructors
func WithProviders(p Providers) Option {
	return func(s *SDK) { s.providers = p }
}

// WithLogger sets the logger
func WithLogger(l *logger.Logger) Option {
	return func(s *SDK) { s.logger = l.WithComponent("bridgesdk") }
}

// New creates an SDK bound to the process-wide registry unless WithOverrides is given
func New(opts ...Option) *SDK {
	s := &SDK{
		overrides: testOverrides,
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	sharedOnce sync.Once
	shared     *SDK
)

// Shared returns the process-wide SDK. It has no production providers, so
// only registered overrides resolve.
func Shared() *SDK {
	sharedOnce.Do(func() {
		shared = New()
	})
	return shared
}

// Overrides returns the registry the SDK consults
func (s *SDK) Overrides() *Overrides {
	return s.overrides
}

// AppConfig returns the app config override if one is registered, otherwise
// the lazily built production config.
func (s *SDK) AppConfig() *AppConfig {
	if c := s.overrides.TestAppConfig(); c != nil {
		s.logger.Debug("Using app config override")
		return c
	}
	s.appConfigOnce.Do(func() {
		if s.providers.AppConfig != nil {
			s.appConfig = s.providers.AppConfig()
		}
	})
	return s.appConfig
}

// ParticipantManager returns the participant manager override if one is
// registered, otherwise the lazily built production manager.
func (s *SDK) ParticipantManager() ParticipantManager {
	if m := s.overrides.TestParticipantManager(); m != nil {
		s.logger.Debug("Using participant manager override")
		return m
	}
	s.participantManagerOnce.Do(func() {
		if s.providers.ParticipantManager != nil {
			s.participantManager = s.providers.ParticipantManager()
		}
	})
	return s.participantManager
}

// ActivityManager returns the activity manager override if one is
// registered, otherwise the lazily built production manager.
func (s *SDK) ActivityManager() ActivityManager {
	if m := s.overrides.TestActivityManager(); m != nil {
		s.logger.Debug("Using activity manager override")
		return m
	}
	s.activityManagerOnce.Do(func() {
		if s.providers.ActivityManager != nil {
			s.activityManager = s.providers.ActivityManager()
		}
	})
	return s.activityManager
}
