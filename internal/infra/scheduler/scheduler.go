package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"procurement_digest_bot/internal/app"
	"procurement_digest_bot/internal/domain/pipeline"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// tickSpec fires once per minute, at second zero.
const tickSpec = "* * * * *"

const (
	refreshTimeout = 45 * time.Second // stays inside the tick period
	sendTimeout    = 10 * time.Minute
)

// DailyScheduler ticks every minute and fires the refresh and send actions
// at fixed wall-clock minutes in a named timezone. The ScheduleState flags
// make each action run at most once per day.
type DailyScheduler struct {
	cronEngine    *cron.Cron
	digestService app.DigestService // Using the interface
	bus           *app.StatusBus
	logger        *logrus.Entry
	location      *time.Location
	refreshAt     pipeline.TriggerTime
	sendAt        pipeline.TriggerTime
	now           func() time.Time
	spec          string

	state pipeline.ScheduleState // only touched by tick

	mu         sync.Mutex
	entryID    cron.EntryID
	running    bool
	lastResult *pipeline.Result
}

func NewDailyScheduler(
	digestService app.DigestService,
	bus *app.StatusBus,
	logger *logrus.Entry,
	location *time.Location,
	refreshAt pipeline.TriggerTime,
	sendAt pipeline.TriggerTime,
) *DailyScheduler {
	cronLogger := cron.PrintfLogger(logger)
	return &DailyScheduler{
		cronEngine: cron.New(
			cron.WithLocation(location),
			cron.WithChain(cron.Recover(cronLogger), cron.DelayIfStillRunning(cronLogger)),
		),
		digestService: digestService,
		bus:           bus,
		logger:        logger,
		location:      location,
		refreshAt:     refreshAt,
		sendAt:        sendAt,
		now:           time.Now,
		spec:          tickSpec,
	}
}

// Start registers the minute tick and starts the cron engine. Calling Start on a running scheduler is a no-op.
func (s *DailyScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Debug("Daily scheduler already running")
		return nil
	}

	if s.entryID == 0 {
		entryID, err := s.cronEngine.AddFunc(s.spec, func() {
			s.tick(s.now())
		})
		if err != nil {
			return fmt.Errorf("could not add digest tick job: %w", err)
		}
		s.entryID = entryID
	}

	s.cronEngine.Start()
	s.running = true
	s.logger.WithFields(logrus.Fields{
		"timezone":   s.location.String(),
		"refresh_at": s.refreshAt.String(),
		"send_at":    s.sendAt.String(),
	}).Info("Daily scheduler started")
	return nil
}

// Stop cancels future ticks and waits for an in-flight tick to finish; it does not abort it.
func (s *DailyScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.logger.Info("Stopping daily scheduler...")
	ctx := s.cronEngine.Stop() // Stops new ticks, the returned context is done when running jobs finish.
	s.running = false
	s.mu.Unlock()

	// The in-flight tick may need s.mu to record its result.
	<-ctx.Done()
	s.logger.Info("Daily scheduler gracefully stopped.")
}

// Running reports whether the scheduler is started.
func (s *DailyScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// LastResult returns the outcome of the most recent send workflow, or nil if none ran yet.
func (s *DailyScheduler) LastResult() *pipeline.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastResult == nil {
		return nil
	}
	result := *s.lastResult
	return &result
}

// RefreshAt and SendAt expose the configured trigger minutes.
func (s *DailyScheduler) RefreshAt() pipeline.TriggerTime { return s.refreshAt }
func (s *DailyScheduler) SendAt() pipeline.TriggerTime    { return s.sendAt }

// Location is the timezone trigger minutes are evaluated in.
func (s *DailyScheduler) Location() *time.Location { return s.location }

// tick evaluates one minute. Ticks never overlap: a tick that fires while
// another runs is delayed, not dropped, and reads the clock when it starts.
// The state flags therefore need no lock.
func (s *DailyScheduler) tick(now time.Time) {
	local := now.In(s.location)

	switch {
	case s.refreshAt.Matches(local):
		if s.state.Refreshed {
			return
		}
		s.executeRefresh(local)
		s.state.Refreshed = true
	case s.sendAt.Matches(local):
		if s.state.Sent {
			return
		}
		s.executeSend(local)
		s.state.Sent = true // a failed run is not retried the same day
	default:
		s.state.Reset()
	}
}

func (s *DailyScheduler) executeRefresh(day time.Time) {
	s.logger.Info("Refresh trigger reached, fetching notices.")
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	count, err := s.digestService.Refresh(ctx, day)
	if err != nil {
		s.logger.WithError(err).Error("Error during notice refresh")
		s.bus.Error(fmt.Sprintf("Notice refresh failed: %v", err))
		return
	}
	s.logger.WithField("notice_count", count).Info("Notices refreshed")
	s.bus.Info(fmt.Sprintf("Notices updated: %d notice(s) found", count))
}

func (s *DailyScheduler) executeSend(day time.Time) {
	s.logger.Info("Send trigger reached, running digest workflow.")
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	result := s.digestService.Send(ctx, day)

	s.mu.Lock()
	s.lastResult = &result
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"outcome": result.Outcome,
		"detail":  result.Detail,
	}).Info("Digest workflow reached a terminal state")
}
