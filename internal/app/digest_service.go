// internal/app/digest_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"procurement_digest_bot/internal/domain/notice"
	"procurement_digest_bot/internal/domain/pipeline"
)

// DigestService defines the two scheduled actions of the daily digest.
type DigestService interface {
	// Refresh fetches the current notices and publishes them to observers.
	// It returns the number of notices fetched.
	Refresh(ctx context.Context, day time.Time) (int, error)
	// Send runs the send workflow to a terminal state. It never returns an error;
	// failures are reported through the Result and the StatusBus.
	Send(ctx context.Context, day time.Time) pipeline.Result
}

// NoticeObserver is told whenever a fresh notice list is available.
// The map surface is the main observer: it redraws and later signals the RenderSyncBarrier.
type NoticeObserver interface {
	NoticesUpdated(ctx context.Context, notices []notice.Record) error
}

// DigestOptions configures the send workflow.
type DigestOptions struct {
	SurfaceID         string
	Recipients        []string
	RenderSyncTimeout time.Duration
	LookbackDays      int
	Filters           map[string]string
	MaxRowsPerMessage int // 0 sends everything in one message
}

// DigestServiceImpl implements the DigestService interface.
type DigestServiceImpl struct {
	noticeRepo notice.Repository
	observers  []NoticeObserver
	barrier    *RenderSyncBarrier
	uploader   *SnapshotUploader
	composer   *ReportComposer
	dispatcher *Dispatcher
	runRepo    pipeline.RunRepository // optional
	bus        *StatusBus
	logger     *logrus.Entry
	opts       DigestOptions
	clock      func() time.Time

	mu     sync.Mutex
	latest []notice.Record
}

func NewDigestServiceImpl(
	noticeRepo notice.Repository,
	barrier *RenderSyncBarrier,
	uploader *SnapshotUploader,
	composer *ReportComposer,
	dispatcher *Dispatcher,
	bus *StatusBus,
	logger *logrus.Entry,
	opts DigestOptions,
) *DigestServiceImpl {
	if opts.RenderSyncTimeout <= 0 {
		opts.RenderSyncTimeout = DefaultRenderSyncTimeout
	}
	return &DigestServiceImpl{
		noticeRepo: noticeRepo,
		barrier:    barrier,
		uploader:   uploader,
		composer:   composer,
		dispatcher: dispatcher,
		bus:        bus,
		logger:     logger,
		opts:       opts,
		clock:      time.Now,
	}
}

// AddObserver registers an observer for refreshed notice lists.
func (s *DigestServiceImpl) AddObserver(o NoticeObserver) {
	s.observers = append(s.observers, o)
}

// WithRunRepository enables run history.
func (s *DigestServiceImpl) WithRunRepository(repo pipeline.RunRepository) *DigestServiceImpl {
	s.runRepo = repo
	return s
}

// Latest returns the notices from the last successful refresh.
func (s *DigestServiceImpl) Latest() []notice.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// Refresh fetches the notices for the day's window and publishes them.
func (s *DigestServiceImpl) Refresh(ctx context.Context, day time.Time) (int, error) {
	window := s.window(day)
	s.logger.WithFields(logrus.Fields{
		"from": window.From.Format(notice.DateLayout),
		"to":   window.To.Format(notice.DateLayout),
	}).Info("Refreshing notices")

	notices, err := s.noticeRepo.Fetch(ctx, window)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch notices: %w", err)
	}

	s.mu.Lock()
	s.latest = notices
	s.mu.Unlock()

	s.publish(ctx, notices)
	return len(notices), nil
}

// Send runs the send workflow and records the run when history is enabled.
func (s *DigestServiceImpl) Send(ctx context.Context, day time.Time) pipeline.Result {
	run := &pipeline.Run{
		ID:         uuid.New(),
		Day:        time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location()),
		Recipients: s.opts.Recipients,
		StartedAt:  s.clock(),
	}
	runLogger := s.logger.WithField("run_id", run.ID.String())
	runLogger.WithField("stage", pipeline.StageIdle).Info("Starting digest send workflow")

	result := s.runSendWorkflow(ctx, day, run, runLogger)

	run.Outcome = result.Outcome
	run.Detail = result.Detail
	run.FinishedAt = s.clock()
	s.recordRun(ctx, run, runLogger)

	runLogger.WithField("outcome", result.Outcome).Info("Digest send workflow finished")
	return result
}

// Preview composes the digest for the day's window without capturing, uploading or sending.
func (s *DigestServiceImpl) Preview(ctx context.Context, day time.Time) (Report, error) {
	notices, err := s.noticeRepo.Fetch(ctx, s.window(day))
	if err != nil {
		return Report{}, fmt.Errorf("failed to fetch notices: %w", err)
	}
	return s.composer.Compose(notices, "", 1, 1)
}

func (s *DigestServiceImpl) runSendWorkflow(ctx context.Context, day time.Time, run *pipeline.Run, logger *logrus.Entry) pipeline.Result {
	// Arm before republishing so a fast redraw cannot slip past the barrier.
	s.transition(logger, pipeline.StageWaitingForRenderSync, "waiting for the map to redraw")
	ticket := s.barrier.Arm()
	s.publish(ctx, s.Latest())
	if _, err := ticket.Wait(ctx, s.opts.RenderSyncTimeout); err != nil {
		if !errors.Is(err, ErrSyncTimeout) {
			return s.fail(logger, pipeline.StageWaitingForRenderSync, err)
		}
		logger.WithError(err).Warn("Map did not confirm redraw, capturing anyway")
		s.bus.Warning(fmt.Sprintf("Map redraw not confirmed within %s, the snapshot may be stale", s.opts.RenderSyncTimeout))
	}

	s.transition(logger, pipeline.StageCapturing, "capturing the map")
	encoded, err := s.uploader.Capture(ctx, s.opts.SurfaceID)
	if err != nil {
		return s.fail(logger, pipeline.StageCapturing, err)
	}

	s.transition(logger, pipeline.StageUploading, "uploading the map snapshot")
	imageURL, err := s.uploader.Upload(ctx, encoded)
	if err != nil {
		return s.fail(logger, pipeline.StageUploading, err)
	}
	run.ImageURL = imageURL

	notices, err := s.noticeRepo.Fetch(ctx, s.window(day))
	if err != nil {
		return s.fail(logger, pipeline.StageComposing, fmt.Errorf("failed to fetch notices for the report: %w", err))
	}
	run.NoticeCount = len(notices)
	if len(notices) == 0 {
		msg := "No notices to report today, digest not sent"
		logger.Info(msg)
		s.bus.Warning(msg)
		return pipeline.SkippedEmpty(msg)
	}

	s.transition(logger, pipeline.StageComposing, fmt.Sprintf("composing the digest for %d notice(s)", len(notices)))
	parts := splitParts(notices, s.opts.MaxRowsPerMessage)
	reports := make([]Report, 0, len(parts))
	for i, part := range parts {
		partImage := ""
		if i == 0 {
			partImage = imageURL
		}
		report, err := s.composer.Compose(part, partImage, i+1, len(parts))
		if err != nil {
			return s.fail(logger, pipeline.StageComposing, err)
		}
		reports = append(reports, report)
	}

	s.transition(logger, pipeline.StageDispatching, fmt.Sprintf("sending %d message(s) to %d recipient(s)", len(reports), len(s.opts.Recipients)))
	for i, report := range reports {
		if err := s.dispatcher.Send(ctx, s.opts.Recipients, report.Subject, report.HTML); err != nil {
			return s.fail(logger, pipeline.StageDispatching, fmt.Errorf("part %d/%d: %w", i+1, len(reports), err))
		}
	}

	msg := fmt.Sprintf("Digest with %d notice(s) sent to %d recipient(s)", len(notices), len(s.opts.Recipients))
	logger.Info(msg)
	s.bus.Success(msg)
	return pipeline.Sent()
}

func (s *DigestServiceImpl) transition(logger *logrus.Entry, stage pipeline.Stage, what string) {
	logger.WithField("stage", stage).Debug("Digest stage transition")
	s.bus.Info(fmt.Sprintf("Digest: %s", what))
}

func (s *DigestServiceImpl) fail(logger *logrus.Entry, stage pipeline.Stage, err error) pipeline.Result {
	logger.WithError(err).WithField("stage", stage).Error("Digest send workflow failed")
	s.bus.Error(fmt.Sprintf("Digest failed at %s: %v", stage, err))
	return pipeline.Failed(err.Error())
}

func (s *DigestServiceImpl) publish(ctx context.Context, notices []notice.Record) {
	for _, o := range s.observers {
		if err := o.NoticesUpdated(ctx, notices); err != nil {
			s.logger.WithError(err).Warn("Notice observer failed to apply update")
			s.bus.Warning(fmt.Sprintf("Map update failed: %v", err))
		}
	}
}

func (s *DigestServiceImpl) recordRun(ctx context.Context, run *pipeline.Run, logger *logrus.Entry) {
	if s.runRepo == nil {
		return
	}
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.runRepo.SaveRun(saveCtx, run); err != nil {
		logger.WithError(err).Error("Failed to save digest run history")
	}
}

func (s *DigestServiceImpl) window(day time.Time) notice.Window {
	return notice.WindowEndingOn(day, s.opts.LookbackDays, s.opts.Filters)
}
