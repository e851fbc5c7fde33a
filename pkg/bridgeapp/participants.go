package bridgeapp

import (
	"sync"

	"github.com/dbehnke/bridge-harness/pkg/bridgesdk"
	"github.com/dbehnke/bridge-harness/pkg/logger"
)

// Participants tracks the signed-in participant as the app sees it
type Participants struct {
	mu            sync.RWMutex
	authenticated bool
	consented     bool
	participant   *bridgesdk.StudyParticipant
	logger        *logger.Logger
}

// NewParticipants creates an empty participant state
func NewParticipants(log *logger.Logger) *Participants {
	return &Participants{logger: log.WithComponent("bridgeapp.participants")}
}

// UpdateParticipant replaces the participant and its sign-in flags
func (p *Participants) UpdateParticipant(authenticated, consented bool, participant *bridgesdk.StudyParticipant) {
	p.mu.Lock()
	p.authenticated = authenticated
	p.consented = consented
	p.participant = participant
	p.mu.Unlock()

	p.logger.Debug("Participant updated",
		logger.Bool("authenticated", authenticated),
		logger.Bool("consented", consented))
}

// Participant returns the current participant, or nil before the first update
func (p *Participants) Participant() *bridgesdk.StudyParticipant {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.participant
}

func (p *Participants) IsAuthenticated() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.authenticated
}

func (p *Participants) IsConsented() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.consented
}
