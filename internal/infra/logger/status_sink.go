package logger

import (
	"context"

	"procurement_digest_bot/internal/domain/status"

	"github.com/sirupsen/logrus"
)

// StatusLogSink writes status events to the log, one level per kind.
type StatusLogSink struct {
	entry *logrus.Entry
}

func NewStatusLogSink(entry *logrus.Entry) *StatusLogSink {
	return &StatusLogSink{entry: entry.WithField("component", "status")}
}

func (s *StatusLogSink) HandleStatus(_ context.Context, ev status.Event) {
	entry := s.entry.WithField("kind", ev.Kind)
	switch ev.Kind {
	case status.KindError:
		entry.Error(ev.Message)
	case status.KindWarning:
		entry.Warn(ev.Message)
	default:
		entry.Info(ev.Message)
	}
}
