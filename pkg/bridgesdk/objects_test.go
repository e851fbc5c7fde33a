package bridgesdk

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestObjectFromBridgeJSON_StudyParticipant(t *testing.T) {
	req := require.New(t)
	m := NewObjectManager()

	obj, err := m.ObjectFromBridgeJSON(map[string]any{
		"type":          "StudyParticipant",
		"firstName":     "Fürst",
		"phoneVerified": true,
		"phone":         map[string]any{"number": "206-555-1234"},
		"email":         "fake.address@fake.domain.tld",
		"dataGroups":    []any{"groupA"},
	})
	req.NoError(err)

	p, ok := obj.(*StudyParticipant)
	req.True(ok)
	req.Equal("Fürst", p.FirstName)
	req.True(p.PhoneVerified)
	req.Equal("206-555-1234", p.Phone.Number)
	req.Equal([]string{"groupA"}, p.DataGroups)
}

func TestObjectFromBridgeJSON_ScheduledActivity(t *testing.T) {
	req := require.New(t)
	m := NewObjectManager()

	obj, err := m.ObjectFromBridgeJSON(map[string]any{
		"type":        "ScheduledActivity",
		"guid":        "abc:2024-01-02T03:04:05Z",
		"scheduledOn": "2024-01-02T03:04:05.000Z",
		"expiresOn":   "2024-01-03T03:04:05Z",
		"persistent":  false,
		"activity": map[string]any{
			"guid":         "abc",
			"label":        "Tapping",
			"activityType": "task",
			"task":         map[string]any{"identifier": "Tapping"},
		},
	})
	req.NoError(err)

	s := obj.(*ScheduledActivity)
	req.Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), s.ScheduledOn.UTC())
	req.NotNil(s.ExpiresOn)
	req.Equal("Tapping", s.ActivityIdentifier())
	req.False(s.IsCompleted())
}

func TestObjectFromBridgeJSON_Errors(t *testing.T) {
	m := NewObjectManager()

	t.Run("not an object", func(t *testing.T) {
		_, err := m.ObjectFromBridgeJSON([]any{1, 2})
		require.Error(t, err)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := m.ObjectFromBridgeJSON(map[string]any{"type": "Widget"})
		require.ErrorIs(t, err, ErrUnknownObjectType)
	})

	t.Run("invalid email", func(t *testing.T) {
		_, err := m.ObjectFromBridgeJSON(map[string]any{
			"type":  "StudyParticipant",
			"email": "not-an-email",
		})
		require.Error(t, err)
	})

	t.Run("scheduled activity without guid", func(t *testing.T) {
		_, err := m.ObjectFromBridgeJSON(map[string]any{
			"type":        "ScheduledActivity",
			"scheduledOn": "2024-01-02T03:04:05Z",
		})
		require.Error(t, err)
	})
}

func TestDecodeAppConfig(t *testing.T) {
	req := require.New(t)
	m := NewObjectManager()

	doc := `{
		"label": "Test App",
		"version": 3,
		"createdOn": "2021-11-11T10:00:00.000Z",
		"clientData": {"activityGroups": [{"identifier": "daily"}]}
	}`

	cfg, err := m.DecodeAppConfig(strings.NewReader(doc))
	req.NoError(err)
	req.Equal("Test App", cfg.Label)
	req.Equal(TypeAppConfig, cfg.Type)
	req.EqualValues(3, cfg.Version)
	req.NotNil(cfg.CreatedOn)
	req.Contains(cfg.ClientData, "activityGroups")

	_, err = m.DecodeAppConfig(strings.NewReader(`{"type": "StudyParticipant"}`))
	req.Error(err)

	_, err = m.DecodeAppConfig(strings.NewReader(`{"version": 1}`))
	req.Error(err, "label is required")

	_, err = m.DecodeAppConfig(strings.NewReader(`{`))
	req.Error(err)
}
