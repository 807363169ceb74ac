package dto

// Deadline scan outcomes. A scan either short-circuits before any
// notification work, completes its sequential fan-out, or fails on the
// first unsuccessful notification call.
const (
	DeadlineOutcomeNoOverdue  = "no_overdue"
	DeadlineOutcomeNoStudents = "no_students"
	DeadlineOutcomeCompleted  = "completed"
)

// DeadlineCheckResult aggregates a single scan run into a human-readable
// summary plus machine-readable counters.
type DeadlineCheckResult struct {
	Outcome  string `json:"outcome"`
	Summary  string `json:"summary"`
	Overdue  int    `json:"overdue_assignments"`
	Students int    `json:"students"`
	Notified int    `json:"notified"`
}
