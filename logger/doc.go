// Package logger provides structured logging for the fault-tolerance engine.
//
// It wraps zerolog with a small API tuned for resilience events: breaker
// state transitions, retry attempts, health changes, degradation events and
// recovery outcomes. Init builds the root logger from config; subsystems
// fetch a component-tagged logger with Get.
//
//	log := logger.Get("breaker")
//	log.Warn("circuit opened",
//	    logger.Fields(logger.FieldBreaker, "drive-motor", "failures", 5))
package logger
