package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"traffic_control/internal/models"
	"traffic_control/internal/repository"

	"github.com/google/uuid"
)

// Operational event types.
const (
	EventStart         = "START"
	EventStop          = "STOP"
	EventEmergencyStop = "EMERGENCY_STOP"
	EventOverride      = "OVERRIDE"
	EventResume        = "RESUME"
	EventConfigChange  = "CONFIG_CHANGE"
	EventError         = "ERROR"
)

// ringCapacity bounds the in-memory tail of recent events.
const ringCapacity = 256

var errInvalidTimeRange = errors.New("invalid time range: From must be <= To")

// LogFilter supports history filtering by time range and type.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "", START, STOP, EMERGENCY_STOP, OVERRIDE, RESUME, CONFIG_CHANGE, ERROR
}

// EventLogService persists operational events and keeps a fixed-size
// in-memory ring of the most recent ones for cheap "what just happened"
// reads.
type EventLogService struct {
	eventRepo repository.EventRepo

	mu   sync.Mutex
	ring []models.ControlEvent
	next int
	full bool
}

func NewEventLogService(eventRepo repository.EventRepo) *EventLogService {
	return &EventLogService{
		eventRepo: eventRepo,
		ring:      make([]models.ControlEvent, ringCapacity),
	}
}

// Record stamps, buffers, and persists one event. The ring is updated even
// when the persist fails so operators still see the tail.
func (s *EventLogService) Record(ctx context.Context, e models.ControlEvent) error {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	} else {
		e.OccurredAt = e.OccurredAt.UTC()
	}
	e.Type = strings.ToUpper(strings.TrimSpace(e.Type))

	s.mu.Lock()
	s.ring[s.next] = e
	s.next = (s.next + 1) % ringCapacity
	if s.next == 0 {
		s.full = true
	}
	s.mu.Unlock()

	return s.eventRepo.Append(ctx, e)
}

// Recent returns up to limit events, newest first, from the in-memory ring.
func (s *EventLogService) Recent(limit int) []models.ControlEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	size := s.next
	if s.full {
		size = ringCapacity
	}
	if limit <= 0 || limit > size {
		limit = size
	}

	out := make([]models.ControlEvent, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (s.next - i + ringCapacity) % ringCapacity
		out = append(out, s.ring[idx])
	}
	return out
}

// List queries persisted history with a normalized, validated filter.
func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.ControlEvent, error) {
	from := normalizeToUTC(f.From)
	to := normalizeToUTC(f.To)
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return nil, errInvalidTimeRange
	}
	return s.eventRepo.List(ctx, from, to, strings.ToUpper(strings.TrimSpace(f.Type)))
}

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
