package pipeline

// Stage is a state of the send workflow.
//
//	Idle → WaitingForRenderSync → Capturing → Uploading → Composing → Dispatching → [Sent]
//
// with early exits to [SkippedEmpty] and [Failed].
type Stage string

const (
	StageIdle                 Stage = "IDLE"
	StageWaitingForRenderSync Stage = "WAITING_FOR_RENDER_SYNC"
	StageCapturing            Stage = "CAPTURING"
	StageUploading            Stage = "UPLOADING"
	StageComposing            Stage = "COMPOSING"
	StageDispatching          Stage = "DISPATCHING"
	StageSent                 Stage = "SENT"
	StageSkippedEmpty         Stage = "SKIPPED_EMPTY"
	StageFailed               Stage = "FAILED"
)

// Terminal reports whether no further transition follows s.
func (s Stage) Terminal() bool {
	switch s {
	case StageSent, StageSkippedEmpty, StageFailed:
		return true
	default:
		return false
	}
}
