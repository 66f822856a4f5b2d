// Package audit records every remote call as one JSON line: who called which
// operation, with what outcome and how long it took.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/qick-go/qick/internal/auth"
)

// FileName is the audit file created inside the audit directory.
const FileName = "audit.jsonl"

// Entry is a single audit record.
type Entry struct {
	Timestamp time.Time `json:"ts"`
	User      string    `json:"user"`
	Client    string    `json:"client"`
	Method    string    `json:"method"`
	Code      string    `json:"code"`
	LatencyMs float64   `json:"latencyMs"`
}

// Logger appends entries to an audit file. It is safe for concurrent use.
type Logger struct {
	mu       sync.Mutex
	filePath string
	file     *os.File
	errlog   *log.Logger
}

// NewLogger opens (creating if needed) the audit file in dir. Write failures
// are reported on errlog and never fail the call being audited.
func NewLogger(dir string, errlog *log.Logger) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}

	filePath := filepath.Join(dir, FileName)
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}

	return &Logger{filePath: filePath, file: file, errlog: errlog}, nil
}

// FilePath returns the audit file path.
func (l *Logger) FilePath() string {
	return l.filePath
}

// Record appends an entry for method. The user is the authenticated subject,
// or "anonymous" when the server runs without authentication.
func (l *Logger) Record(ctx context.Context, client, method, code string, latency time.Duration) {
	user := "anonymous"
	if claims, ok := auth.ClaimsFrom(ctx); ok {
		user = claims.Subject
	}
	l.write(Entry{
		Timestamp: time.Now().UTC(),
		User:      user,
		Client:    client,
		Method:    method,
		Code:      code,
		LatencyMs: float64(latency.Microseconds()) / 1000,
	})
}

func (l *Logger) write(entry Entry) {
	data, err := json.Marshal(entry)
	if err != nil {
		l.errlog.Printf("audit: failed to marshal entry: %v", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.file.Write(append(data, '\n')); err != nil {
		l.errlog.Printf("audit: failed to write entry: %v", err)
		return
	}
	if err := l.file.Sync(); err != nil {
		l.errlog.Printf("audit: failed to sync: %v", err)
	}
}

// Close closes the audit file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
