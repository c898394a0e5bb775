package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"traffic_control/internal/logger"
	"traffic_control/internal/metrics"
	"traffic_control/internal/models"
	"traffic_control/internal/repository"
)

var (
	ErrAlreadyRunning = errors.New("scheduler is already running")
	ErrNotRunning     = errors.New("scheduler is not running")
	ErrNoJunctions    = errors.New("no junctions loaded")
)

// SchedulerService owns the run flag and one cycling goroutine per junction.
// The flag and cursors live here, injected into each loop; nothing is global.
type SchedulerService struct {
	junctions repository.JunctionRepo
	engine    *CycleEngine
	events    EventLog
	tick      time.Duration
	metrics   *metrics.Collector
	log       *logger.Logger

	mu      sync.Mutex
	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewSchedulerService(junctions repository.JunctionRepo, engine *CycleEngine, events EventLog, tick time.Duration, m *metrics.Collector, log *logger.Logger) *SchedulerService {
	if tick <= 0 {
		tick = time.Second
	}
	return &SchedulerService{
		junctions: junctions,
		engine:    engine,
		events:    events,
		tick:      tick,
		metrics:   m,
		log:       log,
	}
}

// Start launches one independent loop per loaded junction. Rejected when
// already running or when no junctions exist yet.
func (s *SchedulerService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return ErrAlreadyRunning
	}

	js, err := s.junctions.List(ctx)
	if err != nil {
		return err
	}
	if len(js) == 0 {
		return ErrNoJunctions
	}

	// Loops outlive the request that started them; they stop via the run
	// flag or the scheduler's own cancel.
	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.running.Store(true)
	s.metrics.SetJunctionsRunning(len(js))

	for _, j := range js {
		s.wg.Add(1)
		go s.runJunction(runCtx, j.ID)
	}

	s.log.Infow("scheduler_started", "junctions", len(js))
	_ = s.events.Record(ctx, models.ControlEvent{
		Type:        EventStart,
		Description: fmt.Sprintf("Cycling started for %d junctions", len(js)),
	})
	return nil
}

// runJunction repeats full sequences for one junction while the flag holds.
// A failed sequence waits one tick before retrying so a broken junction
// cannot hot-loop.
func (s *SchedulerService) runJunction(ctx context.Context, junctionID string) {
	defer s.wg.Done()

	idx := 0
	for s.running.Load() {
		next, err := s.engine.RunSequence(ctx, junctionID, idx, s.running.Load)
		if err != nil {
			s.log.Errorw("junction_sequence_failed", "junction", junctionID, "err", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.tick):
			}
			continue
		}
		idx = next
	}
}

// Stop clears the run flag and waits for the loops to observe it.
func (s *SchedulerService) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.Load() {
		return ErrNotRunning
	}
	s.shutdownLoops()

	s.log.Infow("scheduler_stopped")
	_ = s.events.Record(ctx, models.ControlEvent{
		Type:        EventStop,
		Description: "Cycling stopped",
	})
	return nil
}

// EmergencyStop writes all-red to every direction of every junction and then
// clears the run flag. The writes race with any in-flight tick; last writer
// wins, and a tick that observes the cleared flag stops anyway. The flag
// clears even when listing or writing fails, so loops never outlive a
// failed stop.
func (s *SchedulerService) EmergencyStop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	js, err := s.junctions.List(ctx)
	if err != nil {
		s.log.Errorw("emergency_list_failed", "err", err)
		errs = append(errs, err)
	}
	for _, j := range js {
		allRed := make(map[string]models.Light, len(j.Directions))
		for _, dir := range j.Directions {
			l := j.Lights[dir]
			l.Color = models.ColorRed
			l.RemainingSeconds = 0
			allRed[dir] = l
		}
		if err := s.junctions.UpdateLights(ctx, j.ID, "", allRed); err != nil {
			s.log.Errorw("emergency_all_red_failed", "junction", j.ID, "err", err)
			errs = append(errs, err)
		}
	}

	if s.running.Load() {
		s.shutdownLoops()
	}
	s.metrics.RecordEmergencyStop()

	s.log.Warnw("emergency_stop", "junctions", len(js))
	_ = s.events.Record(ctx, models.ControlEvent{
		Type:        EventEmergencyStop,
		Description: fmt.Sprintf("Emergency stop: %d junctions forced all-red", len(js)),
	})
	return errors.Join(errs...)
}

// IsRunning reports whether junction loops are currently cycling.
func (s *SchedulerService) IsRunning() bool {
	return s.running.Load()
}

// shutdownLoops flips the flag, cancels in-flight sleeps, and waits for the
// goroutines. Callers must hold s.mu.
func (s *SchedulerService) shutdownLoops() {
	s.running.Store(false)
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.wg.Wait()
	s.metrics.SetJunctionsRunning(0)
}
