package quota

import (
	"context"
	"fmt"
	"time"

	"genvid/internal/domain"
)

// DefaultDailyLimit is the number of jobs a user may create per day.
const DefaultDailyLimit = 2

// Counter is the slice of the job store the guard needs.
type Counter interface {
	CountCreatedSince(ctx context.Context, userID int64, since time.Time) (int, error)
}

// Usage describes a user's consumption of the current window.
type Usage struct {
	Used      int       `json:"used"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

// Guard enforces the per-user daily job limit. The window starts at midnight
// in the configured location and is a fixed wall-clock day, not a rolling 24h.
type Guard struct {
	jobs  Counter
	limit int
	loc   *time.Location
	now   func() time.Time
}

// NewGuard builds a guard. A nil location means UTC.
func NewGuard(jobs Counter, limit int, loc *time.Location) *Guard {
	if loc == nil {
		loc = time.UTC
	}
	if limit < 0 {
		limit = DefaultDailyLimit
	}
	return &Guard{jobs: jobs, limit: limit, loc: loc, now: time.Now}
}

// WithClock replaces the time source; used by tests.
func (g *Guard) WithClock(now func() time.Time) *Guard {
	g.now = now
	return g
}

// Limit returns the configured daily limit.
func (g *Guard) Limit() int { return g.limit }

// WindowStart returns midnight of now's day in the guard's location.
func (g *Guard) WindowStart(now time.Time) time.Time {
	local := now.In(g.loc)
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, g.loc)
}

// Window returns the current window for an atomic count-and-insert.
func (g *Guard) Window() domain.QuotaWindow {
	return domain.QuotaWindow{Since: g.WindowStart(g.now()), Limit: g.limit}
}

// Usage reports how much of today's quota userID consumed.
func (g *Guard) Usage(ctx context.Context, userID int64) (Usage, error) {
	start := g.WindowStart(g.now())
	used, err := g.jobs.CountCreatedSince(ctx, userID, start)
	if err != nil {
		return Usage{}, fmt.Errorf("count jobs for user %d: %w", userID, err)
	}
	return newUsage(used, g.limit, start.AddDate(0, 0, 1)), nil
}

// Check returns ErrQuotaExceeded when userID already reached the limit.
// It does not reserve a slot; callers that insert afterwards should use
// Window with the store's atomic create.
func (g *Guard) Check(ctx context.Context, userID int64) (Usage, error) {
	usage, err := g.Usage(ctx, userID)
	if err != nil {
		return Usage{}, err
	}
	if usage.Used >= usage.Limit {
		return usage, domain.ErrQuotaExceeded
	}
	return usage, nil
}

// Remaining returns the slots left after used jobs, never negative.
func (g *Guard) Remaining(used int) int {
	return newUsage(used, g.limit, time.Time{}).Remaining
}

func newUsage(used, limit int, reset time.Time) Usage {
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return Usage{Used: used, Limit: limit, Remaining: remaining, ResetAt: reset}
}
