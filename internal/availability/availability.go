// Package availability decides whether a timed assessment can be started and
// computes countdown values. Every function is pure: callers supply the
// current time explicitly so results are reproducible.
package availability

import (
	"errors"
	"time"

	"github.com/ecolehub/cartable-api/internal/models"
)

// ErrNotTimed is returned when a start-gating question is asked about plain
// homework. This is a caller defect, not a user-facing condition.
var ErrNotTimed = errors.New("assignment is not a timed assessment")

// Decision is the outcome of a start-gate check. AlreadySubmitted is kept
// distinct from Closed so clients can render "Submitted" instead of
// "Not Available".
type Decision int

const (
	// Closed means the assessment is neither manually opened nor past its
	// deadline yet.
	Closed Decision = iota
	// Allowed means the student may start now.
	Allowed
	// AlreadySubmitted means the student has a submission on record;
	// resubmission is refused regardless of the window.
	AlreadySubmitted
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case AlreadySubmitted:
		return "already_submitted"
	default:
		return "closed"
	}
}

// CanStart evaluates the start gate for one student against a snapshot of the
// assignment. A timed assessment is takeable iff it was manually opened OR now
// is at or past the deadline; an existing submission always wins.
func CanStart(assignment models.Assignment, studentID uint, now time.Time) (Decision, error) {
	if !assignment.IsTimed() {
		return Closed, ErrNotTimed
	}

	if _, submitted := assignment.SubmissionFrom(studentID); submitted {
		return AlreadySubmitted, nil
	}

	if assignment.Open || !now.Before(assignment.Deadline) {
		return Allowed, nil
	}

	return Closed, nil
}

// Remaining is a display-ready breakdown of time left until a deadline.
// Values are truncated to whole minutes, never rounded up, so elapsed time is
// never shown as a minute that has not passed yet.
type Remaining struct {
	Days    int  `json:"days"`
	Hours   int  `json:"hours"`
	Minutes int  `json:"minutes"`
	Overdue bool `json:"overdue"`
}

// TimeRemaining computes the time left until the deadline. now equal to the
// deadline yields zero remaining, not overdue; anything past it is Overdue
// with zeroed components rather than negative values.
func TimeRemaining(deadline, now time.Time) Remaining {
	if now.After(deadline) {
		return Remaining{Overdue: true}
	}

	totalMinutes := int(deadline.Sub(now).Minutes())
	return Remaining{
		Days:    totalMinutes / (24 * 60),
		Hours:   (totalMinutes % (24 * 60)) / 60,
		Minutes: totalMinutes % 60,
	}
}

// CountdownExpired reports whether a started attempt has used up its
// duration. Triggering the one-shot auto-submission when this flips true is
// the exam service's job, backed by the write-once submission constraint.
func CountdownExpired(startedAt time.Time, durationMinutes int, now time.Time) bool {
	return !now.Before(startedAt.Add(time.Duration(durationMinutes) * time.Minute))
}
