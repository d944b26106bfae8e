// Package audit persists per-statement records of what the host executed.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/guillermoBallester/querytally/internal/core/domain"
	"github.com/guillermoBallester/querytally/internal/core/port"
)

// fileEntry is the NDJSON-serializable form of an audit record.
type fileEntry struct {
	ID           string            `json:"id"`
	Timestamp    string            `json:"ts"`
	Tool         string            `json:"tool"`
	User         string            `json:"user"`
	Command      domain.Command    `json:"command"`
	SQL          string            `json:"sql"`
	Tables       []domain.TableRef `json:"tables,omitempty"`
	RowsReturned int               `json:"rows_returned"`
	DurationMS   int64             `json:"duration_ms"`
	Error        *string           `json:"error"`
}

// FileAuditor writes audit entries as NDJSON (one JSON object per line) to a file.
type FileAuditor struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

var _ port.QueryAuditor = (*FileAuditor)(nil)

// NewFileAuditor opens (or creates) the file at path for append-only writing.
func NewFileAuditor(path string) (*FileAuditor, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening audit file: %w", err)
	}
	return &FileAuditor{
		file: f,
		enc:  json.NewEncoder(f),
	}, nil
}

func (a *FileAuditor) Record(_ context.Context, entry port.AuditEntry) {
	user := entry.User
	if user == "" {
		user = domain.UnknownUser
	}
	fe := fileEntry{
		ID:           uuid.NewString(),
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Tool:         entry.Tool,
		User:         user,
		Command:      entry.Command,
		SQL:          entry.SQL,
		Tables:       entry.Tables,
		RowsReturned: entry.RowsReturned,
		DurationMS:   entry.DurationMS,
	}
	if entry.Err != nil {
		s := entry.Err.Error()
		fe.Error = &s
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	_ = a.enc.Encode(fe) // best-effort; don't fail the request for audit I/O
}

func (a *FileAuditor) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file.Close()
}
