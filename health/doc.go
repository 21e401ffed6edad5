// Package health provides the shared component health registry.
//
// A Monitor aggregates per-component health: status, metrics, and
// severity-tagged issues. Components are created lazily on first
// registration or failure report and live for the process lifetime. Status
// changes and critical issues fire per-component and global callbacks;
// callback failures are logged, never propagated.
//
// Components exposing the Checker interface can be polled on demand with
// CheckAll or continuously with a Poller. A checker error becomes a
// Degraded status plus an error issue instead of propagating.
package health
