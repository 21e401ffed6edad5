package faults

// FaultCode represents a machine-readable fault code.
type FaultCode string

// Bus and link faults (retryable)
const (
	// CodeBusTimeout indicates an I2C/serial transaction timed out.
	CodeBusTimeout FaultCode = "BUS_TIMEOUT"
	// CodeBusError indicates a low-level bus error (NAK, arbitration loss).
	CodeBusError FaultCode = "BUS_ERROR"
	// CodeCRCMismatch indicates a corrupted frame from a sensor or controller.
	CodeCRCMismatch FaultCode = "CRC_MISMATCH"
	// CodeConnectionLost indicates a peripheral link dropped.
	CodeConnectionLost FaultCode = "CONNECTION_LOST"
)

// Sensor faults
const (
	// CodeSensorTimeout indicates a sensor did not answer in time.
	CodeSensorTimeout FaultCode = "SENSOR_TIMEOUT"
	// CodeSensorStuck indicates a sensor keeps reporting an unchanged value.
	CodeSensorStuck FaultCode = "SENSOR_STUCK"
	// CodeSensorRange indicates a reading outside the physically possible range.
	CodeSensorRange FaultCode = "SENSOR_OUT_OF_RANGE"
	// CodeCalibrationDrift indicates the sensor calibration no longer holds.
	CodeCalibrationDrift FaultCode = "CALIBRATION_DRIFT"
)

// Actuator faults
const (
	// CodeMotorStall indicates a motor drew stall current.
	CodeMotorStall FaultCode = "MOTOR_STALL"
	// CodeMotorOverTemp indicates a motor controller reported over-temperature.
	CodeMotorOverTemp FaultCode = "MOTOR_OVER_TEMP"
	// CodeActuatorFault indicates a generic actuator failure.
	CodeActuatorFault FaultCode = "ACTUATOR_FAULT"
)

// Internal faults
const (
	// CodeInternal indicates an unexpected internal error.
	CodeInternal FaultCode = "INTERNAL"
	// CodeCircuitOpen indicates a call was rejected by an open circuit breaker.
	CodeCircuitOpen FaultCode = "CIRCUIT_OPEN"
)

// retryableCodes lists codes that represent transient conditions.
var retryableCodes = map[FaultCode]bool{
	CodeBusTimeout:     true,
	CodeBusError:       true,
	CodeCRCMismatch:    true,
	CodeConnectionLost: true,
	CodeSensorTimeout:  true,
}

// IsRetryableCode reports whether the code represents a transient condition.
func IsRetryableCode(code FaultCode) bool {
	return retryableCodes[code]
}
