package service

import (
	"context"
	"log/slog"

	"github.com/guillermoBallester/querytally/internal/core/domain"
)

// Status is the audit state reported to operators.
type Status struct {
	Enabled   bool                   `json:"enabled"`
	Commands  []domain.Command       `json:"commands"`
	Counters  domain.CounterSnapshot `json:"counters"`
	Variables []domain.StatusVar     `json:"variables"`
}

// StatusService exposes the hook's counters and its enabled flag.
type StatusService struct {
	hook   *domain.Hook
	logger *slog.Logger
}

func NewStatusService(hook *domain.Hook, logger *slog.Logger) *StatusService {
	return &StatusService{hook: hook, logger: logger}
}

func (s *StatusService) Status() Status {
	return Status{
		Enabled:   s.hook.Enabled(),
		Commands:  s.hook.Classifier().Commands(),
		Counters:  s.hook.Counters().Snapshot(),
		Variables: s.hook.Counters().StatusVars(),
	}
}

func (s *StatusService) Enabled() bool {
	return s.hook.Enabled()
}

// SetEnabled toggles auditing. It reports whether the flag changed.
func (s *StatusService) SetEnabled(ctx context.Context, enabled bool) bool {
	prev := s.hook.Enabled()
	s.hook.SetEnabled(enabled)
	if prev != enabled {
		s.logger.InfoContext(ctx, "audit enabled flag changed",
			slog.Bool("previous", prev),
			slog.Bool("enabled", enabled),
		)
	}
	return prev != enabled
}
