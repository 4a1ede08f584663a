package scheduler

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"OilSentinel/internal/monitor"
	"OilSentinel/internal/notifier"
	"OilSentinel/internal/recorder"
)

// Scheduler drives the poll pipeline: a repeating tick plus a manual
// trigger, with at most one pipeline run in flight. A tick or trigger
// arriving during a run is dropped, not queued.
type Scheduler struct {
	Cron     *cron.Cron
	Monitor  *monitor.Monitor
	Recorder recorder.Recorder
	Ctx      context.Context

	Endpoint string
	Interval time.Duration
	Prefix   string

	inFlight atomic.Bool
}

// New creates a Scheduler around the monitor pipeline.
func New(ctx context.Context, mon *monitor.Monitor, rec recorder.Recorder, endpoint, prefix string, interval time.Duration) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(),
		Monitor:  mon,
		Recorder: rec,
		Ctx:      ctx,
		Endpoint: endpoint,
		Interval: interval,
		Prefix:   prefix,
	}
}

// Register adds the repeating poll job.
func (s *Scheduler) Register() error {
	spec := fmt.Sprintf("@every %s", s.Interval)
	if _, err := s.Cron.AddFunc(spec, s.tick); err != nil {
		return fmt.Errorf("register poll job: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Printf("[INFO] scheduler started, polling every %s", s.Interval)
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	log.Println("[INFO] scheduler stopped")
}

func (s *Scheduler) tick() {
	if _, ran := s.run(); !ran {
		log.Println("[WARN] tick dropped: previous check still in flight")
	}
}

// TriggerNow forces an immediate check. Returns ran=false if a check is
// already in flight (the trigger is dropped, per policy).
func (s *Scheduler) TriggerNow() (monitor.Outcome, bool) {
	return s.run()
}

// run is the single gate into the pipeline: the in-flight flag guarantees
// at most one Check executes at any instant.
func (s *Scheduler) run() (monitor.Outcome, bool) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return monitor.Outcome{}, false
	}
	defer s.inFlight.Store(false)
	return s.Monitor.Check(s.Ctx), true
}

// HandleCommand processes a user command and returns a reply. Wired into
// the notifier's long-polling loop.
func (s *Scheduler) HandleCommand(command string) string {
	cmd := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(command), s.Prefix))
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i] // strip @botname suffix from group commands
	}

	switch cmd {
	case "check":
		out, ran := s.TriggerNow()
		if !ran {
			return "⏳ A check is already in progress."
		}
		return out.Reply()

	case "price":
		state := s.Monitor.State()
		return notifier.FormatCurrentPrice(state.LastRecord)

	case "status":
		state := s.Monitor.State()
		return notifier.FormatStatus(s.Endpoint, s.Interval, &state)

	case "history":
		events, err := s.Recorder.RecentEvents(10)
		if err != nil {
			log.Printf("[ERROR] read history: %v", err)
			return "❌ Could not read price history."
		}
		return notifier.FormatHistory(events)

	default:
		return notifier.FormatHelp(s.Prefix)
	}
}
