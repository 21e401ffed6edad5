package breaker

import "time"

// HardwareClass selects a breaker preset tuned for a class of hardware.
type HardwareClass string

const (
	// ClassMotor covers drive and blade motor controllers. Motors get the
	// fewest tolerated failures, the longest cooldown, and the most required
	// probe successes: a repeated fault risks physical damage.
	ClassMotor HardwareClass = "motor"
	// ClassSensor covers GPS, IMU, camera, ToF and similar sensors, which
	// see a lot of transient noise.
	ClassSensor HardwareClass = "sensor"
	// ClassBus covers I2C/serial links and network connections.
	ClassBus HardwareClass = "bus"
)

// ForClass returns a breaker config tuned for the given hardware class.
func ForClass(class HardwareClass, name string) Config {
	cfg := DefaultConfig(name)

	switch class {
	case ClassMotor:
		cfg.FailureThreshold = 2
		cfg.Timeout = 60 * time.Second
		cfg.HalfOpenSuccessThreshold = 3
		cfg.ResetTimeout = 5 * time.Minute
	case ClassSensor:
		cfg.FailureThreshold = 5
		cfg.Timeout = 15 * time.Second
		cfg.HalfOpenSuccessThreshold = 1
		cfg.FailureWindow = time.Minute
		cfg.ResetTimeout = time.Minute
	case ClassBus:
		cfg.FailureThreshold = 3
		cfg.Timeout = 30 * time.Second
		cfg.HalfOpenSuccessThreshold = 2
		cfg.FailureWindow = 30 * time.Second
		cfg.ResetTimeout = 2 * time.Minute
	}
	return cfg
}
