package usecase

import "time"

const (
	// PreconditionResolution is the precision of precondition tokens
	// (HTTP-date carries whole seconds).
	PreconditionResolution = time.Second

	// DefaultPreconditionTolerance absorbs rounding between the stored
	// timestamp and its serialized token.
	DefaultPreconditionTolerance = time.Second

	// timestampResolution is the precision of stored UpdatedAt values.
	timestampResolution = time.Millisecond
)

// ConcurrencyGuard evaluates If-Unmodified-Since style preconditions against
// the stored modification time of an account.
//
// A write is rejected when the stored time is later than the client's token
// plus the tolerance. Advance moves the stored time past the tolerance window
// on every write, so a token observed before a write never passes afterwards,
// while a token observed after the latest write always does.
type ConcurrencyGuard struct {
	tolerance time.Duration
}

// NewConcurrencyGuard creates a guard. Tolerances below PreconditionResolution
// are raised to it, otherwise freshly issued tokens could be rejected.
func NewConcurrencyGuard(tolerance time.Duration) *ConcurrencyGuard {
	if tolerance < PreconditionResolution {
		tolerance = PreconditionResolution
	}
	return &ConcurrencyGuard{tolerance: tolerance}
}

// Tolerance returns the effective tolerance window.
func (g *ConcurrencyGuard) Tolerance() time.Duration {
	return g.tolerance
}

// Token converts a stored modification time into the precondition token sent
// to clients.
func (g *ConcurrencyGuard) Token(updatedAt time.Time) time.Time {
	return updatedAt.UTC().Truncate(PreconditionResolution)
}

// Check returns ErrPreconditionFailed when the stored time is newer than the
// client's token allows. A nil token always passes.
func (g *ConcurrencyGuard) Check(serverTS time.Time, clientTS *time.Time) error {
	if clientTS == nil {
		return nil
	}
	if serverTS.After(clientTS.Add(g.tolerance)) {
		return ErrPreconditionFailed
	}
	return nil
}

// Advance returns the next modification time for a record last modified at
// prev. The result is at least now and strictly beyond prev plus the
// tolerance window.
//
// Writes arriving faster than one per window therefore move the stored time
// ahead of the wall clock by up to tolerance+1ms per write, and the reported
// modification time lies in the future until the clock catches up. The lead
// shrinks again once writes slow down, since now wins as soon as it passes the floor.
func (g *ConcurrencyGuard) Advance(prev, now time.Time) time.Time {
	next := now.UTC().Truncate(timestampResolution)
	floor := prev.UTC().Truncate(timestampResolution).Add(g.tolerance + timestampResolution)
	if next.Before(floor) {
		next = floor
	}
	return next
}
