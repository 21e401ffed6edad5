package recovery

import "context"

// Calibratable is implemented by sensors that support recalibration.
type Calibratable interface {
	Calibrate(ctx context.Context) error
	ResetCalibration(ctx context.Context) error
	IsCalibrated() bool
}

// Resettable is implemented by hardware that supports soft and hard
// resets. HealthCheck verifies the device after a reset.
type Resettable interface {
	SoftReset(ctx context.Context) error
	HardReset(ctx context.Context) error
	HealthCheck(ctx context.Context) error
}

// Reconnectable is implemented by components with a recoverable link,
// such as bus or radio peripherals.
type Reconnectable interface {
	Reconnect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Connect(ctx context.Context) error
	InitializeConnection(ctx context.Context) error
}

// Restartable is implemented by long-running services.
type Restartable interface {
	Restart(ctx context.Context) error
	Stop(ctx context.Context) error
	Start(ctx context.Context) error
}
