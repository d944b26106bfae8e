package domain

import (
	"context"
	"log/slog"
	"time"
)

// Scanner walks a statement's table references and updates Counters.
// Process runs in-line on the caller's goroutine; it never blocks, never
// retains the statement and does work proportional to the number of tables.
type Scanner struct {
	counters *Counters
	logger   *slog.Logger
	now      func() time.Time
}

func NewScanner(counters *Counters, logger *slog.Logger) *Scanner {
	return &Scanner{
		counters: counters,
		logger:   logger,
		now:      time.Now,
	}
}

// Process counts an accepted statement. A statement without lexical
// information is logged and skipped; one without tables is skipped silently.
func (s *Scanner) Process(enabled bool, stmt *Statement) {
	if !enabled {
		return
	}

	start := s.now()

	if stmt == nil || stmt.Lex == nil {
		s.logger.Error("statement has no lexer information, unable to process it")
		return
	}

	if stmt.Lex.Empty() {
		return
	}

	s.counters.AddQuery()

	user := stmt.UserOrUnknown()

	for t := range stmt.Lex.All() {
		if t.Kind != TableKindBase && t.Kind != TableKindView {
			continue
		}
		if t.Name != "" && t.Name == SpecialTable {
			s.counters.AddSpecialQuery()
			if s.logger.Enabled(context.Background(), slog.LevelDebug) {
				s.logger.Debug("designated table referenced",
					slog.String("db.user", user),
					slog.String("db.collection.name", t.Name),
				)
			}
			// At most one increment per statement.
			break
		}
	}

	if elapsed := s.now().Sub(start); elapsed > 0 {
		s.counters.AddTime(uint64(elapsed.Microseconds()))
	}
}
