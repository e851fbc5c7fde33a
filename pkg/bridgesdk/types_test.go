package bridgesdk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestScheduledActivity_AvailableBetween(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	from := now.Add(-24 * time.Hour)
	to := now.Add(24 * time.Hour)
	ptr := func(t time.Time) *time.Time { return &t }

	tests := []struct {
		name     string
		activity ScheduledActivity
		want     bool
	}{
		{"scheduled inside window", ScheduledActivity{ScheduledOn: now}, true},
		{"scheduled after window", ScheduledActivity{ScheduledOn: to.Add(time.Minute)}, false},
		{"persistent from long ago", ScheduledActivity{ScheduledOn: now.Add(-30 * 24 * time.Hour)}, true},
		{"expired before window", ScheduledActivity{ScheduledOn: from.Add(-2 * time.Hour), ExpiresOn: ptr(from.Add(-time.Hour))}, false},
		{"finished before window", ScheduledActivity{ScheduledOn: from.Add(-2 * time.Hour), FinishedOn: ptr(from.Add(-time.Hour))}, false},
		{"finished inside window", ScheduledActivity{ScheduledOn: now, FinishedOn: ptr(now.Add(time.Hour))}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.activity.AvailableBetween(from, to))
		})
	}
}

func TestScheduledActivity_ActivityIdentifier(t *testing.T) {
	req := require.New(t)

	req.Equal("", (&ScheduledActivity{}).ActivityIdentifier())
	req.Equal("task", (&ScheduledActivity{Activity: Activity{Task: &TaskReference{Identifier: "task"}}}).ActivityIdentifier())
	req.Equal("survey", (&ScheduledActivity{Activity: Activity{Survey: &SurveyReference{Identifier: "survey"}}}).ActivityIdentifier())
	req.Equal("compound", (&ScheduledActivity{Activity: Activity{CompoundActivity: &CompoundActivityReference{TaskIdentifier: "compound"}}}).ActivityIdentifier())
}

func TestLocalDate(t *testing.T) {
	req := require.New(t)

	d := NewLocalDate(time.Date(2024, 2, 29, 23, 0, 0, 0, time.UTC))
	req.Equal(LocalDate("2024-02-29"), d)

	var r ReportData
	req.NoError(r.SetLocalDate(d))
	req.Equal(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), r.Date)
	req.Equal(d, r.LocalDate)

	req.Error(r.SetLocalDate("29/02/2024"))
}
