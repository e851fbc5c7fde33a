package bridgetest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/dbehnke/bridge-harness/pkg/bridgeapp"
	"github.com/dbehnke/bridge-harness/pkg/bridgesdk"
)

// DefaultMockParticipant returns a fresh copy of the participant the harness
// signs in when no other participant is given.
func DefaultMockParticipant() *bridgesdk.StudyParticipant {
	return &bridgesdk.StudyParticipant{
		Type:          bridgesdk.TypeStudyParticipant,
		FirstName:     "Fürst",
		PhoneVerified: true,
		Phone:         &bridgesdk.Phone{Number: "206-555-1234"},
		Email:         "fake.address@fake.domain.tld",
	}
}

// MockParticipantManager is an in-memory bridgesdk.ParticipantManager.
// Record updates are pushed into the app's participant state when one is attached.
// Records are copied on the way in and out, so callers never share the stored one.
type MockParticipantManager struct {
	mu                 sync.Mutex
	participant        *bridgesdk.StudyParticipant
	timestampedReports map[string][]bridgesdk.ReportData
	datestampedReports map[string][]bridgesdk.ReportData
	participants       *bridgeapp.Participants
}

var _ bridgesdk.ParticipantManager = (*MockParticipantManager)(nil)

// NewMockParticipantManager creates a mock serving a copy of participant.
// participants may be nil.
func NewMockParticipantManager(participant *bridgesdk.StudyParticipant, participants *bridgeapp.Participants) *MockParticipantManager {
	return &MockParticipantManager{
		participant:        participant.Clone(),
		timestampedReports: make(map[string][]bridgesdk.ReportData),
		datestampedReports: make(map[string][]bridgesdk.ReportData),
		participants:       participants,
	}
}

// SetupParticipant signs the mock participant in as authenticated and consented
func (m *MockParticipantManager) SetupParticipant() {
	m.mu.Lock()
	p := m.participant
	m.mu.Unlock()
	m.publish(p)
}

// publish hands the app its own copy of p
func (m *MockParticipantManager) publish(p *bridgesdk.StudyParticipant) {
	if m.participants != nil {
		m.participants.UpdateParticipant(true, true, p.Clone())
	}
}

func (m *MockParticipantManager) GetParticipantRecord(ctx context.Context) (*bridgesdk.StudyParticipant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.participant.Clone(), nil
}

func (m *MockParticipantManager) UpdateParticipantRecord(ctx context.Context, participant *bridgesdk.StudyParticipant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if participant == nil {
		return errors.New("participant record is required")
	}
	stored := participant.Clone()
	m.mu.Lock()
	m.participant = stored
	m.mu.Unlock()

	m.publish(stored)
	return nil
}

func (m *MockParticipantManager) SetExternalIdentifier(ctx context.Context, externalID string) error {
	return m.mutate(ctx, func(p *bridgesdk.StudyParticipant) {
		p.ExternalID = externalID
	})
}

func (m *MockParticipantManager) SetSharingScope(ctx context.Context, scope bridgesdk.SharingScope) error {
	return m.mutate(ctx, func(p *bridgesdk.StudyParticipant) {
		p.SharingScope = scope
	})
}

func (m *MockParticipantManager) GetDataGroups(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.participant == nil {
		return nil, nil
	}
	return append([]string(nil), m.participant.DataGroups...), nil
}

func (m *MockParticipantManager) UpdateDataGroups(ctx context.Context, groups []string) error {
	return m.mutate(ctx, func(p *bridgesdk.StudyParticipant) {
		p.DataGroups = lo.Uniq(groups)
	})
}

func (m *MockParticipantManager) AddToDataGroups(ctx context.Context, groups []string) error {
	return m.mutate(ctx, func(p *bridgesdk.StudyParticipant) {
		p.DataGroups = lo.Union(p.DataGroups, groups)
	})
}

func (m *MockParticipantManager) RemoveFromDataGroups(ctx context.Context, groups []string) error {
	return m.mutate(ctx, func(p *bridgesdk.StudyParticipant) {
		p.DataGroups = lo.Without(p.DataGroups, groups...)
	})
}

// mutate edits a copy of the current participant, swaps it in and
// republishes it. Stored records are never edited in place.
func (m *MockParticipantManager) mutate(ctx context.Context, edit func(*bridgesdk.StudyParticipant)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	if m.participant == nil {
		m.mu.Unlock()
		return errors.New("no participant record")
	}
	p := m.participant.Clone()
	edit(p)
	m.participant = p
	m.mu.Unlock()

	m.publish(p)
	return nil
}

func (m *MockParticipantManager) GetReport(ctx context.Context, identifier string, from, to time.Time) ([]bridgesdk.ReportData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	reports := lo.Filter(m.timestampedReports[identifier], func(r bridgesdk.ReportData, _ int) bool {
		return !r.Date.Before(from) && !r.Date.After(to)
	})
	sortByDate(reports)
	return reports, nil
}

func (m *MockParticipantManager) GetReportByLocalDate(ctx context.Context, identifier string, from, to bridgesdk.LocalDate) ([]bridgesdk.ReportData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	// YYYY-MM-DD compares correctly as a string
	reports := lo.Filter(m.datestampedReports[identifier], func(r bridgesdk.ReportData, _ int) bool {
		return r.LocalDate >= from && r.LocalDate <= to
	})
	sortByDate(reports)
	return reports, nil
}

// SaveReport stores report, as datestamped when it carries a local date
func (m *MockParticipantManager) SaveReport(ctx context.Context, identifier string, report bridgesdk.ReportData) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if report.LocalDate != "" {
		m.datestampedReports[identifier] = append(m.datestampedReports[identifier], report)
	} else {
		m.timestampedReports[identifier] = append(m.timestampedReports[identifier], report)
	}
	return nil
}

func (m *MockParticipantManager) SaveReportJSON(ctx context.Context, identifier string, data any, dateTime time.Time) error {
	return m.SaveReport(ctx, identifier, bridgesdk.ReportData{
		Type: bridgesdk.TypeReportData,
		Date: dateTime,
		Data: data,
	})
}

func (m *MockParticipantManager) SaveReportJSONLocalDate(ctx context.Context, identifier string, data any, date bridgesdk.LocalDate) error {
	report := bridgesdk.ReportData{Type: bridgesdk.TypeReportData, Data: data}
	if err := report.SetLocalDate(date); err != nil {
		return err
	}
	return m.SaveReport(ctx, identifier, report)
}

// LatestCachedData returns the newest saved report across both stores
func (m *MockParticipantManager) LatestCachedData(identifier string) (bridgesdk.ReportData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	reports := append(append([]bridgesdk.ReportData(nil), m.timestampedReports[identifier]...), m.datestampedReports[identifier]...)
	if len(reports) == 0 {
		return bridgesdk.ReportData{}, fmt.Errorf("report %s: %w", identifier, bridgesdk.ErrNoCachedData)
	}
	return lo.MaxBy(reports, func(a, b bridgesdk.ReportData) bool {
		return a.Date.After(b.Date)
	}), nil
}

func sortByDate(reports []bridgesdk.ReportData) {
	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].Date.Before(reports[j].Date)
	})
}
