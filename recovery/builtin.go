package recovery

import (
	"context"
	"strings"

	"github.com/terrasense/mowkit/faults"
)

// Fixed priorities. Lower runs first when success rates tie; the hard
// reset is last because it is the most disruptive.
const (
	priorityConnection    = 1
	priorityRecalibration = 2
	priorityRestart       = 3
	priorityHardwareReset = 4
)

// ConnectionRecovery re-establishes a lost link: reconnect, then a clean
// disconnect/connect cycle, then a full connection re-initialization.
type ConnectionRecovery struct{}

func (ConnectionRecovery) Name() string  { return "connection_recovery" }
func (ConnectionRecovery) Priority() int { return priorityConnection }

func (ConnectionRecovery) CanRecover(fc FailureContext) bool {
	if _, ok := fc.Target.(Reconnectable); !ok {
		return false
	}
	switch fc.Code {
	case faults.CodeConnectionLost, faults.CodeBusTimeout, faults.CodeBusError:
		return true
	}
	return mentions(fc.Err, "connect", "connection", "link")
}

func (ConnectionRecovery) Recover(ctx context.Context, fc FailureContext) (Result, error) {
	target := fc.Target.(Reconnectable)

	if err := target.Reconnect(ctx); err == nil {
		return ResultSuccess, nil
	}
	if err := target.Disconnect(ctx); err == nil {
		if err := target.Connect(ctx); err == nil {
			return ResultSuccess, nil
		}
	}
	if err := target.InitializeConnection(ctx); err != nil {
		return ResultFailed, err
	}
	return ResultSuccess, nil
}

// SensorRecalibration recalibrates a drifting or stuck sensor, falling
// back to a calibration reset before retrying.
type SensorRecalibration struct{}

func (SensorRecalibration) Name() string  { return "sensor_recalibration" }
func (SensorRecalibration) Priority() int { return priorityRecalibration }

func (SensorRecalibration) CanRecover(fc FailureContext) bool {
	if _, ok := fc.Target.(Calibratable); !ok {
		return false
	}
	switch fc.Code {
	case faults.CodeCalibrationDrift, faults.CodeSensorStuck, faults.CodeSensorRange:
		return true
	}
	return mentions(fc.Err, "calibrat", "drift")
}

func (SensorRecalibration) Recover(ctx context.Context, fc FailureContext) (Result, error) {
	target := fc.Target.(Calibratable)

	if err := target.Calibrate(ctx); err != nil {
		if err := target.ResetCalibration(ctx); err != nil {
			return ResultFailed, err
		}
		if err := target.Calibrate(ctx); err != nil {
			return ResultFailed, err
		}
	}
	if !target.IsCalibrated() {
		return ResultPartial, nil
	}
	return ResultSuccess, nil
}

// ServiceRestart restarts a stuck service, falling back to an explicit
// stop/start cycle.
type ServiceRestart struct{}

func (ServiceRestart) Name() string  { return "service_restart" }
func (ServiceRestart) Priority() int { return priorityRestart }

func (ServiceRestart) CanRecover(fc FailureContext) bool {
	if _, ok := fc.Target.(Restartable); !ok {
		return false
	}
	if fc.Code == faults.CodeInternal {
		return true
	}
	return faults.SeverityOf(fc.Err).AtLeast(faults.SeverityError) ||
		mentions(fc.Err, "hang", "stuck", "unresponsive")
}

func (ServiceRestart) Recover(ctx context.Context, fc FailureContext) (Result, error) {
	target := fc.Target.(Restartable)

	if err := target.Restart(ctx); err == nil {
		return ResultSuccess, nil
	}
	if err := target.Stop(ctx); err != nil {
		return ResultFailed, err
	}
	if err := target.Start(ctx); err != nil {
		return ResultFailed, err
	}
	return ResultSuccess, nil
}

// HardwareReset soft-resets the device and verifies it, escalating to a
// hard reset plus connection re-initialization when the soft path does
// not restore health.
type HardwareReset struct{}

func (HardwareReset) Name() string  { return "hardware_reset" }
func (HardwareReset) Priority() int { return priorityHardwareReset }

func (HardwareReset) CanRecover(fc FailureContext) bool {
	if _, ok := fc.Target.(Resettable); !ok {
		return false
	}
	switch fc.Code {
	case faults.CodeMotorStall, faults.CodeMotorOverTemp, faults.CodeActuatorFault,
		faults.CodeSensorStuck, faults.CodeSensorTimeout:
		return true
	}
	return mentions(fc.Err, "stall", "timeout", "stuck", "fault")
}

func (HardwareReset) Recover(ctx context.Context, fc FailureContext) (Result, error) {
	target := fc.Target.(Resettable)

	if err := target.SoftReset(ctx); err == nil {
		if err := target.HealthCheck(ctx); err == nil {
			return ResultSuccess, nil
		}
	}

	if err := target.HardReset(ctx); err != nil {
		return ResultFailed, err
	}
	// A hard reset drops any link; restore it when the device has one.
	if conn, ok := fc.Target.(Reconnectable); ok {
		if err := conn.InitializeConnection(ctx); err != nil {
			return ResultPartial, err
		}
	}
	if err := target.HealthCheck(ctx); err != nil {
		return ResultPartial, err
	}
	return ResultSuccess, nil
}

// mentions reports whether the error text contains any of the given
// fragments. It is the loose half of the can-recover heuristics.
func mentions(err error, fragments ...string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, fragment := range fragments {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}
