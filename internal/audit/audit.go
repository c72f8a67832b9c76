package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
)

// Entry represents an audit log entry.
type Entry struct {
	ID            string
	TenantID      string
	Actor         string
	Role          string
	Action        string
	ResourceType  string
	ResourceID    string
	StationID     string
	Metadata      json.RawMessage
	PayloadDigest string
	IP            string
	UserAgent     string
	CreatedAt     time.Time
}

// Logger writes audit entries.
type Logger interface {
	Log(ctx context.Context, entry Entry) error
}

// NewID generates a random audit id.
func NewID() string {
	return "audit-" + uuid.NewString()
}

// DigestJSON computes a SHA256 hex digest for metadata payloads.
func DigestJSON(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// complete fills the id, timestamp and digest of an entry when unset.
func complete(entry Entry) Entry {
	if entry.ID == "" {
		entry.ID = NewID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.PayloadDigest == "" {
		entry.PayloadDigest = DigestJSON(entry.Metadata)
	}
	return entry
}

// StdLogger writes audit entries to a standard logger. It is used when no
// database is configured.
type StdLogger struct {
	logger *log.Logger
}

// NewStdLogger constructs a StdLogger.
func NewStdLogger(logger *log.Logger) *StdLogger {
	if logger == nil {
		logger = log.Default()
	}
	return &StdLogger{logger: logger}
}

// Log prints the entry.
func (l *StdLogger) Log(ctx context.Context, entry Entry) error {
	_ = ctx
	entry = complete(entry)
	l.logger.Printf("audit: id=%s tenant=%s actor=%s role=%s action=%s %s=%s station=%s ip=%s meta=%s",
		entry.ID, entry.TenantID, entry.Actor, entry.Role, entry.Action, entry.ResourceType, entry.ResourceID,
		entry.StationID, entry.IP, string(entry.Metadata))
	return nil
}
