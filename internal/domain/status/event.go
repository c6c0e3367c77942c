// internal/domain/status/event.go
package status

// Kind classifies a status event.
type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

// Event is an immutable observability message. Events are not persisted.
type Event struct {
	Kind    Kind
	Message string
}

func Info(message string) Event    { return Event{Kind: KindInfo, Message: message} }
func Success(message string) Event { return Event{Kind: KindSuccess, Message: message} }
func Warning(message string) Event { return Event{Kind: KindWarning, Message: message} }
func Error(message string) Event   { return Event{Kind: KindError, Message: message} }
