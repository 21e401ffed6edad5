// Package degrade maps sets of failed sensors onto fallback strategies so
// the mower keeps operating with reduced capability instead of stopping.
//
// A Controller tracks the failed-sensor set and keeps the best matching
// strategies active: each declares its trigger sensors, substitute sensors,
// a degradation level, and which mower functions stay enabled while it is
// active. Function gating is fail-safe: under degradation, anything not
// explicitly enabled is disabled, and an explicit disable always wins.
//
// The controller never halts hardware itself. Critical degradation is
// surfaced through events and the status snapshot; mapping it to an
// emergency stop is the caller's job.
package degrade
