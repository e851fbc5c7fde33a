package bridgesdk

import (
	"context"
	"time"
)

// ParticipantManager manages the signed-in participant's record and reports
type ParticipantManager interface {
	GetParticipantRecord(ctx context.Context) (*StudyParticipant, error)
	UpdateParticipantRecord(ctx context.Context, participant *StudyParticipant) error
	SetExternalIdentifier(ctx context.Context, externalID string) error
	SetSharingScope(ctx context.Context, scope SharingScope) error

	GetDataGroups(ctx context.Context) ([]string, error)
	UpdateDataGroups(ctx context.Context, groups []string) error
	AddToDataGroups(ctx context.Context, groups []string) error
	RemoveFromDataGroups(ctx context.Context, groups []string) error

	// GetReport returns the reports for identifier with a timestamp in [from, to].
	GetReport(ctx context.Context, identifier string, from, to time.Time) ([]ReportData, error)
	// GetReportByLocalDate returns the reports for identifier dated in [from, to].
	GetReportByLocalDate(ctx context.Context, identifier string, from, to LocalDate) ([]ReportData, error)
	SaveReport(ctx context.Context, identifier string, report ReportData) error
	SaveReportJSON(ctx context.Context, identifier string, data any, dateTime time.Time) error
	SaveReportJSONLocalDate(ctx context.Context, identifier string, data any, date LocalDate) error

	// LatestCachedData returns the most recent cached report for identifier,
	// or ErrNoCachedData.
	LatestCachedData(identifier string) (ReportData, error)
}

// ScheduleQuery selects cached schedules. A nil Filter matches everything,
// a nil Less keeps storage order and a Limit of 0 means no limit.
type ScheduleQuery struct {
	Filter func(*ScheduledActivity) bool
	Less   func(a, b *ScheduledActivity) bool
	Limit  int
}

// ActivityManager manages the participant's scheduled activities
type ActivityManager interface {
	GetScheduledActivities(ctx context.Context, from, to time.Time, policy CachingPolicy) ([]*ScheduledActivity, error)
	Start(ctx context.Context, activity *ScheduledActivity, startedOn time.Time) error
	Finish(ctx context.Context, activity *ScheduledActivity, finishedOn time.Time) error
	Delete(ctx context.Context, activity *ScheduledActivity) error
	SetClientData(ctx context.Context, clientData any, activity *ScheduledActivity) error
	UpdateScheduledActivities(ctx context.Context, activities []*ScheduledActivity) error
	GetCachedSchedules(query ScheduleQuery) ([]*ScheduledActivity, error)
}
