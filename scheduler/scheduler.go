package scheduler

// Package scheduler provides scheduled job management for the backend.
// It handles:
// - Daily chart cache warming after market close
// - Weekly cleanup of stale point artifacts
//
// The main scheduler is implemented in jobs.go
