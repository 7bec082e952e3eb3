package service

import (
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/okorolenko/studyremind/internal/metrics"
	"github.com/okorolenko/studyremind/internal/notify"
	"github.com/okorolenko/studyremind/internal/repository"
)

// Service-level errors surfaced to the API layer.
var (
	ErrReminderNotFound     = errors.New("reminder not found")
	ErrScheduleItemNotFound = errors.New("schedule item not found")
)

// Config holds the scanner and dispatch tunables.
type Config struct {
	// BaseURL is the public address embedded in action links.
	BaseURL string

	// ScanInterval is the scanner tick. Tolerance absorbs tick jitter around
	// a dispatch deadline; Lookahead is the forward span inspected per tick
	// and must be at least the interval.
	ScanInterval  time.Duration
	ScanTolerance time.Duration
	ScanLookahead time.Duration

	// SnoozeMinutes is the snooze duration offered in notifications.
	SnoozeMinutes int

	// RetryBackoff is the initial delay between transport send attempts.
	RetryBackoff time.Duration

	// SendTimeout bounds a single transport send attempt.
	SendTimeout time.Duration
}

// Service is the central business logic layer that holds the repositories,
// the notification transport and the scanner configuration.
type Service struct {
	db      *sqlx.DB
	logger  *logrus.Logger
	metrics *metrics.Metrics
	cfg     Config

	Schedules repository.ScheduleItemRepository
	Reminders repository.ReminderRepository
	Logs      repository.LogRepository

	transport notify.Transport

	// now is swapped out in tests
	now func() time.Time
}

// New creates a new Service with all required dependencies.
func New(db *sqlx.DB, logger *logrus.Logger, m *metrics.Metrics,
	schedules repository.ScheduleItemRepository,
	reminders repository.ReminderRepository,
	logs repository.LogRepository,
	transport notify.Transport,
	cfg Config,
) *Service {
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = 60 * time.Second
	}
	if cfg.ScanTolerance <= 0 {
		cfg.ScanTolerance = 90 * time.Second
	}
	if cfg.ScanLookahead < cfg.ScanInterval {
		cfg.ScanLookahead = 5 * time.Minute
	}
	if cfg.SnoozeMinutes <= 0 {
		cfg.SnoozeMinutes = 30
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 15 * time.Second
	}

	return &Service{
		db:        db,
		logger:    logger,
		metrics:   m,
		cfg:       cfg,
		Schedules: schedules,
		Reminders: reminders,
		Logs:      logs,
		transport: transport,
		now:       time.Now,
	}
}

// DefaultSnoozeMinutes returns the configured snooze duration.
func (s *Service) DefaultSnoozeMinutes() int {
	return s.cfg.SnoozeMinutes
}
