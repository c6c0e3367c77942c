// internal/domain/pipeline/run.go
package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// Run is the history record of one send workflow.
type Run struct {
	ID          uuid.UUID
	Day         time.Time // calendar day in the scheduler's timezone
	Outcome     Outcome
	Detail      string
	NoticeCount int
	ImageURL    string
	Recipients  []string
	StartedAt   time.Time
	FinishedAt  time.Time
}
