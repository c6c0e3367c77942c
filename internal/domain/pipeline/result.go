// internal/domain/pipeline/result.go
package pipeline

// Outcome is the terminal state of a send workflow.
type Outcome string

const (
	OutcomeSent         Outcome = "sent"
	OutcomeSkippedEmpty Outcome = "skipped-empty"
	OutcomeFailed       Outcome = "failed"
)

// Result is what a single send workflow run ends with.
type Result struct {
	Outcome Outcome
	Detail  string // empty when there is nothing to add
}

func Sent() Result                      { return Result{Outcome: OutcomeSent} }
func SkippedEmpty(detail string) Result { return Result{Outcome: OutcomeSkippedEmpty, Detail: detail} }
func Failed(detail string) Result       { return Result{Outcome: OutcomeFailed, Detail: detail} }
