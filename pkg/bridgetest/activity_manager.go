package bridgetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/samber/lo"

	"github.com/dbehnke/bridge-harness/pkg/bridgeapp"
	"github.com/dbehnke/bridge-harness/pkg/bridgesdk"
)

// scheduleGuidLayout is the UTC timestamp suffix of a scheduled activity guid
const scheduleGuidLayout = "2006-01-02T15:04:05.000Z"

// maxCronSchedules bounds CreateCronSchedules for very frequent expressions
const maxCronSchedules = 10000

// GuidMap ties an activity identifier to its activity and schedule plan guids
type GuidMap struct {
	Identifier       string
	ActivityGuid     string
	SchedulePlanGuid string
}

// ScheduleOptions describes a schedule to create
type ScheduleOptions struct {
	ScheduledOn      time.Time
	ExpiresOn        *time.Time
	FinishedOn       *time.Time
	ClientData       any
	SchedulePlanGuid string
	ActivityGuid     string
}

// MockActivityManager is an in-memory bridgesdk.ActivityManager. Finishing a
// persistent schedule queues a follow-up schedule that is created on the next
// GetScheduledActivities call. Schedules are copied on the way in and out, so
// callers never share the stored ones.
type MockActivityManager struct {
	mu                 sync.Mutex
	schedules          []*bridgesdk.ScheduledActivity
	finishedPersistent []*bridgesdk.ScheduledActivity
	guids              []GuidMap
	configuration      *bridgeapp.Configuration
}

var _ bridgesdk.ActivityManager = (*MockActivityManager)(nil)

// NewMockActivityManager creates an empty mock. configuration may be nil, in
// which case task groups are not registered with the app.
func NewMockActivityManager(configuration *bridgeapp.Configuration) *MockActivityManager {
	return &MockActivityManager{configuration: configuration}
}

// Schedules returns a copy of every stored schedule
func (m *MockActivityManager) Schedules() []*bridgesdk.ScheduledActivity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneAll(m.schedules)
}

// FinishedPersistentSchedules returns the finished persistent schedules still
// waiting for a follow-up
func (m *MockActivityManager) FinishedPersistentSchedules() []*bridgesdk.ScheduledActivity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneAll(m.finishedPersistent)
}

func cloneAll(schedules []*bridgesdk.ScheduledActivity) []*bridgesdk.ScheduledActivity {
	return lo.Map(schedules, func(s *bridgesdk.ScheduledActivity, _ int) *bridgesdk.ScheduledActivity {
		return s.Clone()
	})
}

// Guids returns a snapshot of the known guid maps
func (m *MockActivityManager) Guids() []GuidMap {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]GuidMap(nil), m.guids...)
}

// CreateTaskGroup builds an activity group and registers it with the app configuration
func (m *MockActivityManager) CreateTaskGroup(identifier string, activityIdentifiers []string, schedulePlanGuid string, activityGuidMap map[string]string) bridgeapp.ActivityGroup {
	group := bridgeapp.ActivityGroup{
		Identifier:          identifier,
		ActivityIdentifiers: activityIdentifiers,
		SchedulePlanGuid:    schedulePlanGuid,
		ActivityGuidMap:     activityGuidMap,
	}
	if m.configuration != nil {
		m.configuration.AddMapping(group)
	}
	return group
}

// CreateTaskSchedule creates and stores a task schedule
func (m *MockActivityManager) CreateTaskSchedule(identifier string, opts ScheduleOptions) *bridgesdk.ScheduledActivity {
	m.mu.Lock()
	defer m.mu.Unlock()

	schedule := m.createScheduleLocked(identifier, bridgesdk.ActivityTypeTask, opts)
	attachReference(schedule, identifier)
	m.schedules = append(m.schedules, schedule)
	return schedule.Clone()
}

// CreateSurveySchedule creates and stores a survey schedule with a fresh survey guid
func (m *MockActivityManager) CreateSurveySchedule(identifier string, opts ScheduleOptions) *bridgesdk.ScheduledActivity {
	m.mu.Lock()
	defer m.mu.Unlock()

	schedule := m.createScheduleLocked(identifier, bridgesdk.ActivityTypeSurvey, opts)
	attachReference(schedule, identifier)
	m.schedules = append(m.schedules, schedule)
	return schedule.Clone()
}

// CreateSchedule builds a schedule without storing it or attaching a task or
// survey reference. Guid maps are reused per identifier so repeated schedules
// of one activity share their activity and schedule plan guids.
func (m *MockActivityManager) CreateSchedule(identifier, activityType string, opts ScheduleOptions) *bridgesdk.ScheduledActivity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createScheduleLocked(identifier, activityType, opts)
}

// CreateCronSchedules stores one schedule of the activity for every firing of
// the standard five-field cron spec in [from, to]. A positive expiry sets
// ExpiresOn relative to each firing.
func (m *MockActivityManager) CreateCronSchedules(identifier, activityType, spec string, from, to time.Time, expiry time.Duration) ([]*bridgesdk.ScheduledActivity, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var created []*bridgesdk.ScheduledActivity
	for next := schedule.Next(from.Truncate(time.Second).Add(-time.Second)); !next.IsZero() && !next.After(to); next = schedule.Next(next) {
		if next.Before(from) {
			continue
		}
		if len(created) >= maxCronSchedules {
			return created, fmt.Errorf("cron spec %q produces more than %d schedules", spec, maxCronSchedules)
		}
		opts := ScheduleOptions{ScheduledOn: next}
		if expiry > 0 {
			expiresOn := next.Add(expiry)
			opts.ExpiresOn = &expiresOn
		}
		s := m.createScheduleLocked(identifier, activityType, opts)
		attachReference(s, identifier)
		m.schedules = append(m.schedules, s)
		created = append(created, s.Clone())
	}
	return created, nil
}

// CreatePersistentSchedule stores the follow-up of a finished schedule,
// scheduled at its finish time. It returns nil when the schedule is not
// finished or references no activity.
func (m *MockActivityManager) CreatePersistentSchedule(from *bridgesdk.ScheduledActivity) *bridgesdk.ScheduledActivity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createPersistentScheduleLocked(from).Clone()
}

func (m *MockActivityManager) createPersistentScheduleLocked(from *bridgesdk.ScheduledActivity) *bridgesdk.ScheduledActivity {
	activityID := from.ActivityIdentifier()
	if from.FinishedOn == nil || activityID == "" {
		return nil
	}

	schedule := m.createScheduleLocked(activityID, from.Activity.ActivityType, ScheduleOptions{
		ScheduledOn:      *from.FinishedOn,
		SchedulePlanGuid: from.SchedulePlanGuid,
		ActivityGuid:     from.Activity.Guid,
	})
	if from.Activity.Task != nil {
		schedule.Activity.Task = &bridgesdk.TaskReference{Identifier: activityID}
	}
	if from.Activity.Survey != nil {
		survey := *from.Activity.Survey
		survey.Identifier = activityID
		schedule.Activity.Survey = &survey
	}
	if from.Activity.CompoundActivity != nil {
		schedule.Activity.CompoundActivity = &bridgesdk.CompoundActivityReference{TaskIdentifier: activityID}
	}

	m.schedules = append(m.schedules, schedule)
	return schedule
}

func (m *MockActivityManager) createScheduleLocked(identifier, activityType string, opts ScheduleOptions) *bridgesdk.ScheduledActivity {
	guidMap := m.resolveGuidMapLocked(identifier, opts.SchedulePlanGuid, opts.ActivityGuid)
	if !lo.Contains(m.guids, guidMap) {
		m.guids = append(m.guids, guidMap)
	}

	schedule := &bridgesdk.ScheduledActivity{
		Type:             bridgesdk.TypeScheduledActivity,
		Guid:             fmt.Sprintf("%s:%s", guidMap.ActivityGuid, opts.ScheduledOn.UTC().Format(scheduleGuidLayout)),
		SchedulePlanGuid: guidMap.SchedulePlanGuid,
		ScheduledOn:      opts.ScheduledOn,
		ExpiresOn:        opts.ExpiresOn,
		FinishedOn:       opts.FinishedOn,
		ClientData:       opts.ClientData,
		Persistent:       opts.ExpiresOn == nil,
		Activity: bridgesdk.Activity{
			Guid:         guidMap.ActivityGuid,
			Label:        identifier,
			ActivityType: activityType,
		},
	}
	if opts.FinishedOn != nil {
		startedOn := opts.FinishedOn.Add(-3 * time.Minute)
		schedule.StartedOn = &startedOn
	}
	// detach from the time pointers in opts
	return schedule.Clone()
}

// resolveGuidMapLocked picks the guid map for a new schedule: explicit guids
// win, otherwise an existing map is reused and missing guids are generated.
func (m *MockActivityManager) resolveGuidMapLocked(identifier, schedulePlanGuid, activityGuid string) GuidMap {
	switch {
	case schedulePlanGuid != "" && activityGuid != "":
		return GuidMap{Identifier: identifier, ActivityGuid: activityGuid, SchedulePlanGuid: schedulePlanGuid}

	case activityGuid != "":
		if existing, ok := lo.Find(m.guids, func(g GuidMap) bool { return g.ActivityGuid == activityGuid }); ok {
			return existing
		}
		return GuidMap{Identifier: identifier, ActivityGuid: activityGuid, SchedulePlanGuid: uuid.NewString()}

	case schedulePlanGuid != "":
		if existing, ok := lo.Find(m.guids, func(g GuidMap) bool {
			return g.Identifier == identifier && g.SchedulePlanGuid == schedulePlanGuid
		}); ok {
			return existing
		}
		return GuidMap{Identifier: identifier, ActivityGuid: uuid.NewString(), SchedulePlanGuid: schedulePlanGuid}

	default:
		if existing, ok := lo.Find(m.guids, func(g GuidMap) bool { return g.Identifier == identifier }); ok {
			return existing
		}
		return GuidMap{Identifier: identifier, ActivityGuid: uuid.NewString(), SchedulePlanGuid: uuid.NewString()}
	}
}

// attachReference points the activity at a task or survey named identifier
func attachReference(schedule *bridgesdk.ScheduledActivity, identifier string) {
	switch schedule.Activity.ActivityType {
	case bridgesdk.ActivityTypeSurvey:
		guid := uuid.NewString()
		schedule.Activity.Survey = &bridgesdk.SurveyReference{
			Identifier: identifier,
			Guid:       guid,
			Href:       "http://example.org/" + guid,
		}
	case bridgesdk.ActivityTypeCompound:
		schedule.Activity.CompoundActivity = &bridgesdk.CompoundActivityReference{TaskIdentifier: identifier}
	default:
		schedule.Activity.Task = &bridgesdk.TaskReference{Identifier: identifier}
	}
}

func (m *MockActivityManager) addFinishedPersistentLocked(activities []*bridgesdk.ScheduledActivity) {
	m.finishedPersistent = append(m.finishedPersistent, lo.Filter(activities, func(s *bridgesdk.ScheduledActivity, _ int) bool {
		return s.Persistent && s.IsCompleted()
	})...)
}

// findLocked returns the stored schedule with the given guid
func (m *MockActivityManager) findLocked(guid string) (*bridgesdk.ScheduledActivity, bool) {
	return lo.Find(m.schedules, func(s *bridgesdk.ScheduledActivity) bool { return s.Guid == guid })
}

// updateLocked applies edit to the stored schedule matching activity's guid,
// storing a copy of activity first when it is unknown. The caller's activity
// gets the same edit so it reflects the stored state.
func (m *MockActivityManager) updateLocked(activity *bridgesdk.ScheduledActivity, edit func(*bridgesdk.ScheduledActivity)) *bridgesdk.ScheduledActivity {
	stored, ok := m.findLocked(activity.Guid)
	if !ok {
		stored = activity.Clone()
		m.schedules = append(m.schedules, stored)
	}
	edit(stored)
	edit(activity)
	return stored
}

// GetScheduledActivities creates follow-ups for finished persistent schedules,
// then returns the schedules available in [from, to]. The caching policy is ignored.
func (m *MockActivityManager) GetScheduledActivities(ctx context.Context, from, to time.Time, _ bridgesdk.CachingPolicy) ([]*bridgesdk.ScheduledActivity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, finished := range m.finishedPersistent {
		m.createPersistentScheduleLocked(finished)
	}
	m.finishedPersistent = nil

	available := lo.Filter(m.schedules, func(s *bridgesdk.ScheduledActivity, _ int) bool {
		return s.AvailableBetween(from, to)
	})
	return cloneAll(available), nil
}

func (m *MockActivityManager) Start(ctx context.Context, activity *bridgesdk.ScheduledActivity, startedOn time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.updateLocked(activity, func(s *bridgesdk.ScheduledActivity) {
		t := startedOn
		s.StartedOn = &t
	})
	return nil
}

func (m *MockActivityManager) Finish(ctx context.Context, activity *bridgesdk.ScheduledActivity, finishedOn time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := m.updateLocked(activity, func(s *bridgesdk.ScheduledActivity) {
		t := finishedOn
		s.FinishedOn = &t
	})
	m.addFinishedPersistentLocked([]*bridgesdk.ScheduledActivity{stored})
	return nil
}

// Delete removes the schedule with the activity's guid. Unknown guids are ignored.
func (m *MockActivityManager) Delete(ctx context.Context, activity *bridgesdk.ScheduledActivity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.schedules = lo.Reject(m.schedules, func(s *bridgesdk.ScheduledActivity, _ int) bool {
		return s.Guid == activity.Guid
	})
	return nil
}

func (m *MockActivityManager) SetClientData(ctx context.Context, clientData any, activity *bridgesdk.ScheduledActivity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.updateLocked(activity, func(s *bridgesdk.ScheduledActivity) {
		s.ClientData = clientData
	})
	return nil
}

// UpdateScheduledActivities replaces stored schedules by guid with the given ones
func (m *MockActivityManager) UpdateScheduledActivities(ctx context.Context, activities []*bridgesdk.ScheduledActivity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := cloneAll(activities)
	guids := lo.Map(stored, func(s *bridgesdk.ScheduledActivity, _ int) string { return s.Guid })
	m.schedules = lo.Reject(m.schedules, func(s *bridgesdk.ScheduledActivity, _ int) bool {
		return lo.Contains(guids, s.Guid)
	})
	m.schedules = append(m.schedules, stored...)
	m.addFinishedPersistentLocked(stored)
	return nil
}

func (m *MockActivityManager) GetCachedSchedules(query bridgesdk.ScheduleQuery) ([]*bridgesdk.ScheduledActivity, error) {
	m.mu.Lock()
	results := cloneAll(m.schedules)
	m.mu.Unlock()

	if query.Filter != nil {
		results = lo.Filter(results, func(s *bridgesdk.ScheduledActivity, _ int) bool { return query.Filter(s) })
	}
	if query.Less != nil {
		sort.SliceStable(results, func(i, j int) bool { return query.Less(results[i], results[j]) })
	}
	if query.Limit > 0 && query.Limit < len(results) {
		results = results[:query.Limit]
	}
	return results, nil
}
