package bridgesdk

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
)

// ObjectManager turns Bridge JSON dictionaries into typed SDK objects
type ObjectManager struct {
	validate *validator.Validate
}

// NewObjectManager creates an object manager
func NewObjectManager() *ObjectManager {
	return &ObjectManager{validate: validator.New()}
}

// ObjectFromBridgeJSON decodes a JSON object using its "type" field. The
// result is a pointer to the matching SDK type.
func (m *ObjectManager) ObjectFromBridgeJSON(v any) (any, error) {
	dict, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("bridge JSON must be an object, got %T", v)
	}

	typ, _ := dict["type"].(string)
	var target any
	switch typ {
	case TypeAppConfig:
		target = &AppConfig{}
	case TypeStudyParticipant:
		target = &StudyParticipant{}
	case TypeScheduledActivity:
		target = &ScheduledActivity{}
	case TypeReportData:
		target = &ReportData{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownObjectType, typ)
	}

	if err := Decode(dict, target); err != nil {
		return nil, fmt.Errorf("decode %s: %w", typ, err)
	}
	if err := m.validate.Struct(target); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", typ, err)
	}
	return target, nil
}

// DecodeAppConfig reads an app config document. A document without a
// "type" field is treated as an AppConfig.
func (m *ObjectManager) DecodeAppConfig(r io.Reader) (*AppConfig, error) {
	var raw any
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse app config: %w", err)
	}

	if dict, ok := raw.(map[string]any); ok {
		if _, hasType := dict["type"]; !hasType {
			dict["type"] = TypeAppConfig
		}
	}

	obj, err := m.ObjectFromBridgeJSON(raw)
	if err != nil {
		return nil, err
	}
	appConfig, ok := obj.(*AppConfig)
	if !ok {
		return nil, fmt.Errorf("expected %s, got %T", TypeAppConfig, obj)
	}
	return appConfig, nil
}

// Decode copies a decoded JSON value (maps, slices, strings, numbers) into
// target, matching fields by their json tags and parsing RFC 3339 timestamps.
func Decode(input any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           target,
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}
