package faults

import (
	"errors"
	"fmt"
)

// Severity grades how serious a fault is.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// FaultError is the unified hardware fault type.
type FaultError struct {
	// Code is a machine-readable fault code.
	Code FaultCode `json:"code"`
	// Message is a human-readable description.
	Message string `json:"message"`
	// Component names the hardware component the fault belongs to.
	Component string `json:"component,omitempty"`
	// Severity grades the fault.
	Severity Severity `json:"severity"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// Details contains additional context for the fault.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this fault.
	Cause error `json:"-"`
}

// Error returns the string representation of the fault.
func (e *FaultError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the fault.
func (e *FaultError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause and returns the receiver.
func (e *FaultError) WithCause(cause error) *FaultError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *FaultError) WithDetail(key string, value any) *FaultError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new FaultError with automatic retryable detection.
func New(code FaultCode, component, message string, severity Severity) *FaultError {
	return &FaultError{
		Code:      code,
		Message:   message,
		Component: component,
		Severity:  severity,
		Retryable: IsRetryableCode(code),
	}
}

// --- Common Fault Constructors ---

// BusTimeout creates a fault for a timed-out bus transaction.
func BusTimeout(bus string, cause error) *FaultError {
	return &FaultError{
		Code: CodeBusTimeout, Message: fmt.Sprintf("transaction on %s timed out", bus),
		Component: bus, Severity: SeverityWarning, Retryable: true, Cause: cause,
	}
}

// BusError creates a fault for a low-level bus error.
func BusError(bus string, cause error) *FaultError {
	return &FaultError{
		Code: CodeBusError, Message: fmt.Sprintf("bus error on %s", bus),
		Component: bus, Severity: SeverityWarning, Retryable: true, Cause: cause,
	}
}

// CRCMismatch creates a fault for a corrupted frame.
func CRCMismatch(component string) *FaultError {
	return &FaultError{
		Code: CodeCRCMismatch, Message: fmt.Sprintf("corrupted frame from %s", component),
		Component: component, Severity: SeverityWarning, Retryable: true,
	}
}

// ConnectionLost creates a fault for a dropped peripheral link.
func ConnectionLost(component string, cause error) *FaultError {
	return &FaultError{
		Code: CodeConnectionLost, Message: fmt.Sprintf("lost connection to %s", component),
		Component: component, Severity: SeverityError, Retryable: true, Cause: cause,
	}
}

// SensorTimeout creates a fault for an unresponsive sensor.
func SensorTimeout(sensor string) *FaultError {
	return &FaultError{
		Code: CodeSensorTimeout, Message: fmt.Sprintf("sensor %s did not respond", sensor),
		Component: sensor, Severity: SeverityWarning, Retryable: true,
	}
}

// SensorStuck creates a fault for a sensor reporting frozen values.
func SensorStuck(sensor string) *FaultError {
	return &FaultError{
		Code: CodeSensorStuck, Message: fmt.Sprintf("sensor %s reports frozen values", sensor),
		Component: sensor, Severity: SeverityError, Retryable: false,
	}
}

// SensorOutOfRange creates a fault for a physically impossible reading.
func SensorOutOfRange(sensor string, value float64) *FaultError {
	return &FaultError{
		Code: CodeSensorRange, Message: fmt.Sprintf("sensor %s reading out of range", sensor),
		Component: sensor, Severity: SeverityError, Retryable: false,
		Details: map[string]any{"value": value},
	}
}

// CalibrationDrift creates a fault for a sensor whose calibration drifted.
func CalibrationDrift(sensor string) *FaultError {
	return &FaultError{
		Code: CodeCalibrationDrift, Message: fmt.Sprintf("sensor %s calibration drifted", sensor),
		Component: sensor, Severity: SeverityError, Retryable: false,
	}
}

// MotorStall creates a fault for a stalled motor. Stalls are never retried
// blindly; pushing current through a stalled motor risks physical damage.
func MotorStall(motor string) *FaultError {
	return &FaultError{
		Code: CodeMotorStall, Message: fmt.Sprintf("motor %s stalled", motor),
		Component: motor, Severity: SeverityCritical, Retryable: false,
	}
}

// MotorOverTemp creates a fault for an overheating motor controller.
func MotorOverTemp(motor string, tempC float64) *FaultError {
	return &FaultError{
		Code: CodeMotorOverTemp, Message: fmt.Sprintf("motor %s over temperature", motor),
		Component: motor, Severity: SeverityCritical, Retryable: false,
		Details: map[string]any{"temperature_c": tempC},
	}
}

// ActuatorFault creates a fault for a generic actuator failure.
func ActuatorFault(actuator, reason string) *FaultError {
	return &FaultError{
		Code: CodeActuatorFault, Message: fmt.Sprintf("actuator %s fault: %s", actuator, reason),
		Component: actuator, Severity: SeverityError, Retryable: false,
	}
}

// Internal creates a fault for an unexpected internal error.
func Internal(cause error) *FaultError {
	return &FaultError{
		Code: CodeInternal, Message: "unexpected internal error",
		Severity: SeverityError, Retryable: false, Cause: cause,
	}
}

// --- Classifiers ---

// IsRetryable reports whether err represents a transient fault worth
// retrying. Non-FaultError values default to retryable so that plain driver
// errors pass through retry policies unless explicitly classified.
func IsRetryable(err error) bool {
	var fe *FaultError
	if errors.As(err, &fe) {
		return fe.Retryable
	}
	return true
}

// IsTransient reports whether err is a FaultError with a transient code.
func IsTransient(err error) bool {
	var fe *FaultError
	if errors.As(err, &fe) {
		return IsRetryableCode(fe.Code)
	}
	return false
}

// CodeOf extracts the fault code from err, or CodeInternal for foreign errors.
func CodeOf(err error) FaultCode {
	var fe *FaultError
	if errors.As(err, &fe) {
		return fe.Code
	}
	return CodeInternal
}

var severityRank = map[Severity]int{
	SeverityInfo:     0,
	SeverityWarning:  1,
	SeverityError:    2,
	SeverityCritical: 3,
}

// AtLeast reports whether s is at least as severe as min.
func (s Severity) AtLeast(min Severity) bool {
	return severityRank[s] >= severityRank[min]
}

// SeverityOf extracts the severity from err, or SeverityError for foreign errors.
func SeverityOf(err error) Severity {
	var fe *FaultError
	if errors.As(err, &fe) {
		return fe.Severity
	}
	return SeverityError
}
