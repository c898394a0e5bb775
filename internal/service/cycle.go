package service

import (
	"context"
	"fmt"
	"time"

	"traffic_control/internal/logger"
	"traffic_control/internal/metrics"
	"traffic_control/internal/models"
	"traffic_control/internal/repository"
)

const (
	minDirections = 2
	maxDirections = 8
)

// CycleEngine runs one junction through a single green+yellow turn per call,
// projecting countdowns for every waiting direction along the way. It owns no
// run state; the scheduler passes the cursor in and gets the advanced cursor
// back.
type CycleEngine struct {
	junctions repository.JunctionRepo
	cfg       CycleConfig
	tick      time.Duration
	metrics   *metrics.Collector
	log       *logger.Logger
}

func NewCycleEngine(junctions repository.JunctionRepo, cfg CycleConfig, tick time.Duration, m *metrics.Collector, log *logger.Logger) *CycleEngine {
	if tick <= 0 {
		tick = time.Second
	}
	return &CycleEngine{junctions: junctions, cfg: cfg, tick: tick, metrics: m, log: log}
}

// RunSequence executes one full turn for the direction at activeIdx:
// greenDuration ticks of green, then yellowDuration ticks of yellow, then the
// red hand-off that advances the cursor. Every tick rewrites all directions
// of the junction in one store update. keepRunning is re-checked after every
// tick; when it reports false the sequence aborts without the remaining
// sleeps and the cursor stays put.
func (e *CycleEngine) RunSequence(ctx context.Context, junctionID string, activeIdx int, keepRunning func() bool) (int, error) {
	j, err := e.loadOrInit(ctx, junctionID)
	if err != nil {
		return activeIdx, err
	}

	n := len(j.Directions)
	if n < minDirections || n > maxDirections {
		return activeIdx, fmt.Errorf("junction %q has %d directions, want %d..%d", junctionID, n, minDirections, maxDirections)
	}
	if activeIdx < 0 || activeIdx >= n {
		activeIdx = 0
	}
	if keepRunning != nil && !keepRunning() {
		return activeIdx, nil
	}

	active := j.Directions[activeIdx]
	green, yellow := e.durationsFor(j.Lights[active])

	// Green window.
	for remaining := green; remaining >= 1; remaining-- {
		e.writeTick(ctx, j.ID, active, e.projectDuringGreen(j, activeIdx, remaining, yellow))
		if !e.sleepTick(ctx, keepRunning) {
			return activeIdx, nil
		}
	}
	e.metrics.RecordPhaseTransition()

	// Yellow window.
	for remaining := yellow; remaining >= 1; remaining-- {
		e.writeTick(ctx, j.ID, active, e.projectDuringYellow(j, activeIdx, remaining))
		if !e.sleepTick(ctx, keepRunning) {
			return activeIdx, nil
		}
	}
	e.metrics.RecordPhaseTransition()

	// Red hand-off: the finished direction goes dark and the cursor advances.
	nextIdx := (activeIdx + 1) % n
	expired := j.Lights[active]
	expired.Color = models.ColorRed
	expired.RemainingSeconds = 0
	e.writeTick(ctx, j.ID, j.Directions[nextIdx], map[string]models.Light{active: expired})
	e.metrics.RecordPhaseTransition()

	return nextIdx, nil
}

// loadOrInit fetches the junction, creating and persisting the default
// four-direction layout when nothing is stored yet.
func (e *CycleEngine) loadOrInit(ctx context.Context, junctionID string) (models.Junction, error) {
	j, err := e.junctions.Load(ctx, junctionID)
	if err != nil {
		return models.Junction{}, err
	}
	if j.ID == "" {
		j = DefaultJunction(junctionID)
		if err := e.junctions.Save(ctx, j); err != nil {
			return models.Junction{}, err
		}
	}
	return j, nil
}

// durationsFor resolves the per-direction overrides against the junction
// defaults. Reading them at the start of each phase is what makes duration
// edits take effect on the next turn, never the one in progress.
func (e *CycleEngine) durationsFor(l models.Light) (green, yellow int) {
	green, yellow = e.cfg.GreenSeconds, e.cfg.YellowSeconds
	if l.GreenSeconds > 0 {
		green = l.GreenSeconds
	}
	if l.YellowSeconds > 0 {
		yellow = l.YellowSeconds
	}
	return green, yellow
}

// cyclesAhead is how many turns direction i waits before its own green,
// counting the active direction's current turn as 1. Zero distance maps to n:
// a waiting direction is never "0 turns away" from a turn it does not hold.
func cyclesAhead(i, activeIdx, n int) int {
	d := ((i - activeIdx) + n) % n
	if d == 0 {
		d = n
	}
	return d
}

// projectDuringGreen computes every direction's state while the active
// direction has remainingGreen seconds of green left. A waiting direction's
// countdown is the active green remainder, plus the active yellow window,
// plus one full cycle per direction queued in between.
func (e *CycleEngine) projectDuringGreen(j models.Junction, activeIdx, remainingGreen, yellow int) map[string]models.Light {
	n := len(j.Directions)
	cycle := e.cfg.CycleTime()
	out := make(map[string]models.Light, n)
	for i, dir := range j.Directions {
		l := j.Lights[dir]
		if i == activeIdx {
			l.Color = models.ColorGreen
			l.RemainingSeconds = remainingGreen
		} else {
			ahead := cyclesAhead(i, activeIdx, n)
			l.Color = models.ColorRed
			l.RemainingSeconds = remainingGreen + yellow + (ahead-1)*cycle
		}
		out[dir] = l
	}
	return out
}

// projectDuringYellow is the same projection inside the active direction's
// yellow window; the yellow term is already part of the remaining time.
func (e *CycleEngine) projectDuringYellow(j models.Junction, activeIdx, remainingYellow int) map[string]models.Light {
	n := len(j.Directions)
	cycle := e.cfg.CycleTime()
	out := make(map[string]models.Light, n)
	for i, dir := range j.Directions {
		l := j.Lights[dir]
		if i == activeIdx {
			l.Color = models.ColorYellow
			l.RemainingSeconds = remainingYellow
		} else {
			ahead := cyclesAhead(i, activeIdx, n)
			l.Color = models.ColorRed
			l.RemainingSeconds = remainingYellow + (ahead-1)*cycle
		}
		out[dir] = l
	}
	return out
}

// writeTick pushes one projection to the store. A failed write is logged and
// skipped; the next tick writes fresh values anyway.
func (e *CycleEngine) writeTick(ctx context.Context, junctionID, currentActive string, lights map[string]models.Light) {
	if err := e.junctions.UpdateLights(ctx, junctionID, currentActive, lights); err != nil {
		e.metrics.RecordTickWriteError()
		if e.log != nil {
			e.log.Errorw("tick_write_failed", "junction", junctionID, "err", err)
		}
		return
	}
	e.metrics.RecordTickWrite()
}

// sleepTick waits one tick. Returns false when the sequence must abort,
// either because ctx was canceled or keepRunning reports false.
func (e *CycleEngine) sleepTick(ctx context.Context, keepRunning func() bool) bool {
	t := time.NewTimer(e.tick)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
	}
	return keepRunning == nil || keepRunning()
}
