package bridgeapp

import "github.com/dbehnke/bridge-harness/pkg/logger"

// App bundles the app-level state that sits on top of the SDK
type App struct {
	Configuration *Configuration
	Participants  *Participants
}

// New creates an empty app state
func New(log *logger.Logger) *App {
	return &App{
		Configuration: NewConfiguration(log),
		Participants:  NewParticipants(log),
	}
}
