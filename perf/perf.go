// Package perf provides lightweight timing instrumentation: named
// measurement sessions with checkpoints, logged through zerolog.
package perf

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Tracker creates measurement sessions. Safe for concurrent use; each
// session belongs to one goroutine.
type Tracker struct {
	name   string
	level  zerolog.Level
	logger zerolog.Logger
}

// New builds a tracker that logs at info level.
func New(name string) *Tracker {
	return &Tracker{name: name, level: zerolog.InfoLevel, logger: log.Logger}
}

// WithLevel returns a copy of the tracker logging at the given level.
func (t *Tracker) WithLevel(level zerolog.Level) *Tracker {
	cp := *t
	cp.level = level
	return &cp
}

// Checkpoint is one intermediate mark of a session.
type Checkpoint struct {
	Name    string
	Elapsed time.Duration
}

// Session is one in-flight measurement.
type Session struct {
	tracker     *Tracker
	ID          string
	Operation   string
	start       time.Time
	checkpoints []Checkpoint
}

// Result summarizes a finished session.
type Result struct {
	ID          string
	Operation   string
	Total       time.Duration
	Checkpoints []Checkpoint
}

// Start begins a measurement session.
func (t *Tracker) Start(operation string) *Session {
	s := &Session{
		tracker:   t,
		ID:        uuid.NewString()[:8],
		Operation: operation,
		start:     time.Now(),
	}
	t.logger.WithLevel(t.level).
		Str("tracker", t.name).Str("session", s.ID).Str("operation", operation).
		Msg("measurement started")
	return s
}

// Checkpoint records a named mark and returns the elapsed time since start.
func (s *Session) Checkpoint(name string) time.Duration {
	elapsed := time.Since(s.start)
	s.checkpoints = append(s.checkpoints, Checkpoint{Name: name, Elapsed: elapsed})
	s.tracker.logger.WithLevel(s.tracker.level).
		Str("tracker", s.tracker.name).Str("session", s.ID).Str("checkpoint", name).
		Dur("elapsed", elapsed).Msg("checkpoint")
	return elapsed
}

// End finishes the session and logs the summary.
func (s *Session) End() Result {
	total := time.Since(s.start)
	s.tracker.logger.WithLevel(s.tracker.level).
		Str("tracker", s.tracker.name).Str("session", s.ID).Str("operation", s.Operation).
		Dur("total", total).Int("checkpoints", len(s.checkpoints)).
		Msg("measurement completed")
	return Result{ID: s.ID, Operation: s.Operation, Total: total, Checkpoints: s.checkpoints}
}

// Measure times fn as one session.
func (t *Tracker) Measure(operation string, fn func() error) error {
	s := t.Start(operation)
	defer s.End()
	return fn()
}

// Middleware times every request through the tracker, one session per
// request named by method and path.
func Middleware(t *Tracker) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s := t.Start(c.Request().Method + " " + c.Request().URL.Path)
			defer s.End()
			return next(c)
		}
	}
}
