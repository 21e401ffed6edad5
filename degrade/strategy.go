package degrade

import "time"

// Level is the ordinal severity of capability loss.
type Level int

const (
	// LevelNormal means full capability.
	LevelNormal Level = iota
	// LevelMinor means a redundant source was lost with no behavior change.
	LevelMinor
	// LevelModerate means reduced precision or speed.
	LevelModerate
	// LevelSevere means major functions are disabled.
	LevelSevere
	// LevelCritical means the mower cannot operate safely; callers must map
	// this to an emergency stop.
	LevelCritical
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelNormal:
		return "normal"
	case LevelMinor:
		return "minor"
	case LevelModerate:
		return "moderate"
	case LevelSevere:
		return "severe"
	case LevelCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Strategy declares how to compensate for a set of failed sensors.
type Strategy struct {
	// Name identifies the strategy in events and status exports.
	Name string `yaml:"name" mapstructure:"name" validate:"required"`
	// TriggerSensors is the failure set this strategy compensates for. A
	// strategy is applicable iff its trigger set intersects the failed set.
	TriggerSensors []string `yaml:"trigger_sensors" mapstructure:"trigger_sensors" validate:"min=1"`
	// FallbackSensors substitute for the failed ones while active.
	FallbackSensors []string `yaml:"fallback_sensors" mapstructure:"fallback_sensors"`
	// Level is the degradation severity this strategy implies.
	Level Level `yaml:"level" mapstructure:"level"`
	// EnabledFunctions stay allowed while the strategy is active.
	EnabledFunctions []string `yaml:"enabled_functions" mapstructure:"enabled_functions"`
	// DisabledFunctions are forbidden while the strategy is active. An
	// explicit disable wins over any enable.
	DisabledFunctions []string `yaml:"disabled_functions" mapstructure:"disabled_functions"`
	// MaxDuration, when positive, bounds how long the strategy may stay
	// active. Once Expire deactivates it, it stays out of selection until
	// the failed sensor set changes.
	MaxDuration time.Duration `yaml:"max_duration" mapstructure:"max_duration"`
	// ConfidenceThreshold is the minimum advisory confidence expected from
	// the fallback sensors, in [0,1].
	ConfidenceThreshold float64 `yaml:"confidence_threshold" mapstructure:"confidence_threshold"`
}

// triggers returns the trigger set.
func (s Strategy) triggers() map[string]bool {
	set := make(map[string]bool, len(s.TriggerSensors))
	for _, sensor := range s.TriggerSensors {
		set[sensor] = true
	}
	return set
}

// intersects reports whether the trigger set intersects the given set.
func (s Strategy) intersects(failed map[string]bool) bool {
	for _, sensor := range s.TriggerSensors {
		if failed[sensor] {
			return true
		}
	}
	return false
}

// exactMatch reports whether the trigger set equals the given set.
func (s Strategy) exactMatch(failed map[string]bool) bool {
	if len(s.TriggerSensors) != len(failed) {
		return false
	}
	for _, sensor := range s.TriggerSensors {
		if !failed[sensor] {
			return false
		}
	}
	return true
}

// overlaps reports whether two strategies share any trigger sensor, which
// would make their enable/disable lists conflict.
func (s Strategy) overlaps(other Strategy) bool {
	set := s.triggers()
	for _, sensor := range other.TriggerSensors {
		if set[sensor] {
			return true
		}
	}
	return false
}
