package logger

// Shared field keys so the same concept logs under the same name everywhere.
const (
	FieldComponent = "component"
	FieldBreaker   = "breaker"
	FieldSensor    = "sensor"
	FieldStrategy  = "strategy"
	FieldAttempt   = "attempt"
	FieldError     = "error"
	FieldDuration  = "duration_ms"
	FieldLevel     = "degradation_level"
	FieldResult    = "result"
)

// Fields builds a field map from alternating key-value pairs. Non-string
// keys and a dangling trailing value are dropped.
//
//	logger.Fields(logger.FieldSensor, "gps", logger.FieldAttempt, 2)
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}
