// Package fusion combines redundant sensor streams into single best-effort
// readings for the degradation controller and navigation callers.
//
// Two fusers are provided: pose fusion over GPS and IMU, where GPS is
// authoritative while it holds a fix and the IMU carries heading plus a
// dead-reckoned position otherwise, and obstacle fusion over camera and
// time-of-flight detections, which merges overlapping detections when both
// sources report. Every fused result carries an advisory confidence in
// [0, 1]; callers decide what to do with low-confidence output.
package fusion
