package domain

import (
	"log/slog"
	"sync/atomic"
)

// StatusContinue is the only status Notify returns: the host always carries
// on executing the statement.
const StatusContinue = 0

// Hook is the audit entry point the host calls for every statement. It owns
// the counters, the classifier, the scanner and the enabled flag.
type Hook struct {
	counters   *Counters
	classifier *Classifier
	scanner    *Scanner
	logger     *slog.Logger

	// Written by the configuration collaborator, read once per Notify.
	// Readers may see a toggle a few statements late.
	enabled atomic.Bool
}

type HookOption func(*hookOptions)

type hookOptions struct {
	commands []Command
	disabled bool
}

// WithCommands overrides the classifier allow-list.
func WithCommands(commands ...Command) HookOption {
	return func(o *hookOptions) { o.commands = commands }
}

// WithEnabled sets the initial value of the enabled flag (default true).
func WithEnabled(enabled bool) HookOption {
	return func(o *hookOptions) { o.disabled = !enabled }
}

// NewHook initializes a hook with fresh counters.
func NewHook(logger *slog.Logger, opts ...HookOption) *Hook {
	var o hookOptions
	for _, opt := range opts {
		opt(&o)
	}

	counters := NewCounters()
	h := &Hook{
		counters:   counters,
		classifier: NewClassifier(logger, o.commands...),
		scanner:    NewScanner(counters, logger),
		logger:     logger,
	}
	h.enabled.Store(!o.disabled)

	logger.Info("audit hook initialized",
		slog.Bool("enabled", !o.disabled),
		slog.Int("commands", len(h.classifier.Commands())),
	)
	return h
}

// Notify handles one audit event. It never fails and never asks the host to
// abort the statement.
func (h *Hook) Notify(ev Event, stmt *Statement) int {
	enabled := h.enabled.Load()
	if !enabled {
		return StatusContinue
	}

	if h.classifier.Classify(ev) == Reject {
		return StatusContinue
	}

	h.scanner.Process(enabled, stmt)
	return StatusContinue
}

func (h *Hook) SetEnabled(enabled bool) {
	h.enabled.Store(enabled)
}

func (h *Hook) Enabled() bool {
	return h.enabled.Load()
}

func (h *Hook) Counters() *Counters {
	return h.counters
}

func (h *Hook) Classifier() *Classifier {
	return h.classifier
}

// Close logs hook teardown. Counters stay readable afterwards.
func (h *Hook) Close() {
	h.logger.Info("audit hook shut down")
}
