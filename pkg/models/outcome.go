package models

// OutcomeStatus is the aggregate result of one submit attempt
type OutcomeStatus string

const (
	OutcomeAccepted OutcomeStatus = "accepted"
	OutcomeRejected OutcomeStatus = "rejected"
	OutcomePartial  OutcomeStatus = "partial"
)

// Outcome is what a submit attempt reports back to the visitor
type Outcome struct {
	Status   OutcomeStatus `json:"status"`
	Reason   string        `json:"reason,omitempty"`
	Warnings []string      `json:"warnings,omitempty"`
}

// Accepted means every critical destination took the submission
func Accepted() Outcome { return Outcome{Status: OutcomeAccepted} }

// Rejected carries the message shown to the visitor
func Rejected(reason string) Outcome { return Outcome{Status: OutcomeRejected, Reason: reason} }

// Partial is an accepted submission that some best-effort destinations missed
func Partial(warnings []string) Outcome { return Outcome{Status: OutcomePartial, Warnings: warnings} }

// Succeeded reports whether the critical destination took the submission
func (o Outcome) Succeeded() bool {
	return o.Status == OutcomeAccepted || o.Status == OutcomePartial
}
