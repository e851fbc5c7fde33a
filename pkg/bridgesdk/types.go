package bridgesdk

import (
	"fmt"
	"maps"
	"slices"
	"time"
)

// Object type discriminators used in Bridge JSON documents
const (
	TypeAppConfig         = "AppConfig"
	TypeStudyParticipant  = "StudyParticipant"
	TypeScheduledActivity = "ScheduledActivity"
	TypeReportData        = "ReportData"
)

// AppConfig is the application configuration served by the backend
type AppConfig struct {
	Type           string         `json:"type,omitempty"`
	Label          string         `json:"label" validate:"required"`
	Guid           string         `json:"guid,omitempty"`
	Version        int64          `json:"version,omitempty"`
	CreatedOn      *time.Time     `json:"createdOn,omitempty"`
	ModifiedOn     *time.Time     `json:"modifiedOn,omitempty"`
	ClientData     map[string]any `json:"clientData,omitempty"`
	ConfigElements map[string]any `json:"configElements,omitempty"`
}

// SharingScope controls who may see a participant's data
type SharingScope string

const (
	SharingScopeNone           SharingScope = "no_sharing"
	SharingScopeSponsors       SharingScope = "sponsors_and_partners"
	SharingScopeAllResearchers SharingScope = "all_qualified_researchers"
)

// Phone is a participant phone number
type Phone struct {
	Number     string `json:"number" validate:"required"`
	RegionCode string `json:"regionCode,omitempty"`
}

// StudyParticipant is the participant record
type StudyParticipant struct {
	Type          string            `json:"type,omitempty"`
	ID            string            `json:"id,omitempty"`
	FirstName     string            `json:"firstName,omitempty"`
	LastName      string            `json:"lastName,omitempty"`
	Email         string            `json:"email,omitempty" validate:"omitempty,email"`
	EmailVerified bool              `json:"emailVerified,omitempty"`
	Phone         *Phone            `json:"phone,omitempty" validate:"omitempty"`
	PhoneVerified bool              `json:"phoneVerified,omitempty"`
	ExternalID    string            `json:"externalId,omitempty"`
	SharingScope  SharingScope      `json:"sharingScope,omitempty" validate:"omitempty,oneof=no_sharing sponsors_and_partners all_qualified_researchers"`
	DataGroups    []string          `json:"dataGroups,omitempty"`
	Attributes    map[string]string `json:"attributes,omitempty"`
}

// Clone returns a deep copy of p
func (p *StudyParticipant) Clone() *StudyParticipant {
	if p == nil {
		return nil
	}
	c := *p
	if p.Phone != nil {
		phone := *p.Phone
		c.Phone = &phone
	}
	c.DataGroups = slices.Clone(p.DataGroups)
	c.Attributes = maps.Clone(p.Attributes)
	return &c
}

// LocalDate is a calendar date without a time zone, formatted YYYY-MM-DD
type LocalDate string

const localDateLayout = "2006-01-02"

// NewLocalDate returns the calendar date of t in t's location
func NewLocalDate(t time.Time) LocalDate {
	return LocalDate(t.Format(localDateLayout))
}

// Time returns midnight UTC of the date
func (d LocalDate) Time() (time.Time, error) {
	t, err := time.Parse(localDateLayout, string(d))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid local date %q: %w", string(d), err)
	}
	return t, nil
}

// ReportData is one entry of a participant report
type ReportData struct {
	Type      string    `json:"type,omitempty"`
	Date      time.Time `json:"dateTime"`
	LocalDate LocalDate `json:"localDate,omitempty"`
	Data      any       `json:"data,omitempty"`
}

// SetLocalDate stamps the report with a local date and keeps Date in sync
// so datestamped and timestamped reports sort together.
func (r *ReportData) SetLocalDate(d LocalDate) error {
	t, err := d.Time()
	if err != nil {
		return err
	}
	r.LocalDate = d
	r.Date = t
	return nil
}

// CachingPolicy controls how the activity manager uses its local cache
type CachingPolicy int

const (
	CachingPolicyNoCaching CachingPolicy = iota
	CachingPolicyFallBackToCached
	CachingPolicyCachedOnly
	CachingPolicyCheckCacheFirst
)

// TaskReference points an activity at a task
type TaskReference struct {
	Identifier string `json:"identifier"`
}

// SurveyReference points an activity at a survey
type SurveyReference struct {
	Identifier string `json:"identifier"`
	Guid       string `json:"guid,omitempty"`
	Href       string `json:"href,omitempty"`
}

// CompoundActivityReference points an activity at a compound activity
type CompoundActivityReference struct {
	TaskIdentifier string `json:"taskIdentifier"`
}

// Activity types
const (
	ActivityTypeTask     = "task"
	ActivityTypeSurvey   = "survey"
	ActivityTypeCompound = "compound"
)

// Activity describes what a scheduled activity asks the participant to do
type Activity struct {
	Guid             string                     `json:"guid"`
	Label            string                     `json:"label,omitempty"`
	ActivityType     string                     `json:"activityType" validate:"omitempty,oneof=task survey compound"`
	Task             *TaskReference             `json:"task,omitempty"`
	Survey           *SurveyReference           `json:"survey,omitempty"`
	CompoundActivity *CompoundActivityReference `json:"compoundActivity,omitempty"`
}

// ScheduledActivity is one occurrence of an activity on the participant's schedule
type ScheduledActivity struct {
	Type             string     `json:"type,omitempty"`
	Guid             string     `json:"guid" validate:"required"`
	SchedulePlanGuid string     `json:"schedulePlanGuid,omitempty"`
	ScheduledOn      time.Time  `json:"scheduledOn"`
	ExpiresOn        *time.Time `json:"expiresOn,omitempty"`
	StartedOn        *time.Time `json:"startedOn,omitempty"`
	FinishedOn       *time.Time `json:"finishedOn,omitempty"`
	ClientData       any        `json:"clientData,omitempty"`
	Persistent       bool       `json:"persistent"`
	Activity         Activity   `json:"activity"`
}

// Clone returns a copy of s that shares no pointers with it. ClientData is
// copied shallowly.
func (s *ScheduledActivity) Clone() *ScheduledActivity {
	if s == nil {
		return nil
	}
	c := *s
	c.ExpiresOn = cloneTime(s.ExpiresOn)
	c.StartedOn = cloneTime(s.StartedOn)
	c.FinishedOn = cloneTime(s.FinishedOn)
	if s.Activity.Task != nil {
		task := *s.Activity.Task
		c.Activity.Task = &task
	}
	if s.Activity.Survey != nil {
		survey := *s.Activity.Survey
		c.Activity.Survey = &survey
	}
	if s.Activity.CompoundActivity != nil {
		compound := *s.Activity.CompoundActivity
		c.Activity.CompoundActivity = &compound
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// IsCompleted reports whether the activity has been finished
func (s *ScheduledActivity) IsCompleted() bool {
	return s.FinishedOn != nil
}

// ActivityIdentifier returns the identifier of the referenced task, survey or
// compound activity, or "" when the activity references none.
func (s *ScheduledActivity) ActivityIdentifier() string {
	switch {
	case s.Activity.Task != nil:
		return s.Activity.Task.Identifier
	case s.Activity.Survey != nil:
		return s.Activity.Survey.Identifier
	case s.Activity.CompoundActivity != nil:
		return s.Activity.CompoundActivity.TaskIdentifier
	}
	return ""
}

// AvailableBetween reports whether the activity is visible in the [from, to]
// window: scheduled no later than to, and neither expired nor finished before from.
func (s *ScheduledActivity) AvailableBetween(from, to time.Time) bool {
	if s.ScheduledOn.After(to) {
		return false
	}
	if s.ExpiresOn != nil && s.ExpiresOn.Before(from) {
		return false
	}
	if s.FinishedOn != nil && s.FinishedOn.Before(from) {
		return false
	}
	return true
}
