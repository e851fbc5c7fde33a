package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dbehnke/bridge-harness/pkg/bridgesdk"
	"github.com/dbehnke/bridge-harness/pkg/bridgetest"
	"github.com/dbehnke/bridge-harness/pkg/config"
	"github.com/dbehnke/bridge-harness/pkg/logger"
)

func TestParticipantFromConfig(t *testing.T) {
	req := require.New(t)

	p := participantFromConfig(config.ParticipantConfig{})
	req.Equal(bridgetest.DefaultMockParticipant(), p)

	p = participantFromConfig(config.ParticipantConfig{
		FirstName:  "Ada",
		Phone:      "206-555-0000",
		DataGroups: []string{"control"},
	})
	req.Equal("Ada", p.FirstName)
	req.Equal("206-555-0000", p.Phone.Number)
	req.Equal([]string{"control"}, p.DataGroups)
	req.Equal(bridgetest.DefaultMockParticipant().Email, p.Email)
}

func TestSeedSchedules(t *testing.T) {
	req := require.New(t)
	am := bridgetest.NewMockActivityManager(nil)
	start := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	err := seedSchedules(am, []config.ScheduleConfig{
		{Identifier: "Tapping", Type: "task", Cron: "0 9 * * *", Days: 3},
		{Identifier: "Mood", Type: "survey", Cron: "0 20 * * *", Days: 1, Expires: 2 * time.Hour},
	}, start, logger.Nop())
	req.NoError(err)

	schedules := am.Schedules()
	req.Len(schedules, 4)
	req.Equal(bridgesdk.ActivityTypeSurvey, schedules[3].Activity.ActivityType)
	req.False(schedules[3].Persistent)

	err = seedSchedules(am, []config.ScheduleConfig{{Identifier: "Bad", Cron: "nope", Days: 1}}, start, logger.Nop())
	req.Error(err)
}

func TestCheckCommand(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "AppConfig.json")
	req.NoError(os.WriteFile(path, []byte(`{
		"label": "Study",
		"version": 3,
		"clientData": {"activityGroups": [{"identifier": "daily", "activityIdentifiers": ["Tapping", "Tremor"]}]}
	}`), 0644))

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"check", path})
	req.NoError(cmd.Execute())

	req.Contains(out.String(), "label:   Study")
	req.Contains(out.String(), "version: 3")
	req.Contains(out.String(), "  - daily: Tapping, Tremor")

	cmd = newRootCmd()
	cmd.SetArgs([]string{"check", filepath.Join(t.TempDir(), "missing.json")})
	req.Error(cmd.Execute())
}
