// Package invariant reports programming errors in the gesture core. In strict
// mode a violation panics; otherwise it is logged and the caller continues with
// best-effort state so the state machine never stalls.
package invariant

import (
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Reporter handles invariant violations.
type Reporter struct {
	Strict bool
	Logger *slog.Logger

	// OnViolation, if set, is called for every violation before it is
	// reported.
	OnViolation func()

	count atomic.Int64
}

// Violation records a broken invariant.
func (r *Reporter) Violation(msg string, args ...any) {
	if r == nil {
		return
	}
	r.count.Add(1)
	if r.OnViolation != nil {
		r.OnViolation()
	}
	if r.Strict {
		panic(fmt.Sprintf("invariant violated: %s %v", msg, args))
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error("invariant violated", append([]any{"violation", msg}, args...)...)
}

// Count returns how many violations were reported.
func (r *Reporter) Count() int64 {
	if r == nil {
		return 0
	}
	return r.count.Load()
}
