// Package engine wires the resilience building blocks into one facade.
//
// An Engine owns the breaker manager, the retry policy engine, the health
// monitor, the degradation controller and the recovery registry. Callers
// protect hardware operations through guards:
//
//	eng, _ := engine.New(cfg)
//	guard := eng.Protect("drive-motor", breaker.ClassMotor, "default").
//		WithSensor("odometry").
//		WithTarget(motor)
//	err := guard.Do(func() error { return motor.SetSpeed(1200) })
//
// A failed call flows to the health monitor, the degradation controller
// and, in the background, the recovery registry; a successful recovery
// raises the matching sensor-recovery event.
package engine
