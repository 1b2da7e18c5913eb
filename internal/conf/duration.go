package conf

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"
)

// TicksPerSecond is the host clock rate used to convert wall-clock settings
// into tick counts for the alert scheduler.
const TicksPerSecond = 60

// Duration is a time.Duration that reads and writes human-readable strings
// ("30s", "2m") in JSON, YAML and viper-decoded settings.
type Duration time.Duration

// Std returns the standard library duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Ticks converts the duration to host ticks, rounding down.
func (d Duration) Ticks() int64 {
	return int64(time.Duration(d) / (time.Second / TicksPerSecond))
}

// DurationFromTicks is the inverse of Ticks.
func DurationFromTicks(ticks int64) Duration {
	return Duration(time.Duration(ticks) * (time.Second / TicksPerSecond))
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON accepts "30s" style strings and plain numbers of seconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	parsed, err := parseDurationValue(v)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("expected scalar duration value, got %v", value.Kind)
	}
	var raw any
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := parseDurationValue(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// parseDurationValue handles the shapes a duration takes after generic decoding.
// Bare numbers are seconds, which is what people write in hand-edited files.
func parseDurationValue(v any) (Duration, error) {
	switch value := v.(type) {
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", value, err)
		}
		return Duration(parsed), nil
	case time.Duration:
		return Duration(value), nil
	case Duration:
		return value, nil
	case int:
		return Duration(time.Duration(value) * time.Second), nil
	case int64:
		return Duration(time.Duration(value) * time.Second), nil
	case float64:
		return Duration(time.Duration(value * float64(time.Second))), nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("invalid duration value: %v (type %T)", v, v)
	}
}

var durationType = reflect.TypeFor[Duration]()

// DurationDecodeHook lets viper decode strings and numbers into Duration
// fields while keeping its default hooks for everything else.
func DurationDecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.DecodeHookFuncType(func(_, to reflect.Type, data any) (any, error) {
			if to != durationType {
				return data, nil
			}
			return parseDurationValue(data)
		}),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}
