package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"taskhub/internal/storage/sqlite"
)

// Sweeper periodically removes expired sessions and reset tokens. Expiry is
// already enforced at lookup time; the sweep only keeps the tables small.
type Sweeper struct {
	store  *sqlite.Store
	logger *slog.Logger
	cron   *cron.Cron
}

// NewSweeper schedules an hourly purge. Call Start to begin and Stop to
// shut it down.
func NewSweeper(store *sqlite.Store, logger *slog.Logger) (*Sweeper, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Sweeper{store: store, logger: logger, cron: cron.New()}
	if _, err := s.cron.AddFunc("@hourly", s.sweep); err != nil {
		return nil, err
	}
	return s, nil
}

// Start launches the schedule in its own goroutine.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := time.Now()
	sessions, err := s.store.PurgeExpiredSessions(ctx, now)
	if err != nil {
		s.logger.Error("session sweep failed", slog.String("error", err.Error()))
	}
	tokens, err := s.store.PurgeExpiredResetTokens(ctx, now)
	if err != nil {
		s.logger.Error("reset token sweep failed", slog.String("error", err.Error()))
	}
	if sessions > 0 || tokens > 0 {
		s.logger.Info("credential sweep",
			slog.Int64("sessions", sessions), slog.Int64("resetTokens", tokens))
	}
}
