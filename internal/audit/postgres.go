package audit

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresLogger stores audit entries in the audit_logs table.
type PostgresLogger struct {
	db *sql.DB
}

// NewPostgresLogger constructs a PostgresLogger.
func NewPostgresLogger(db *sql.DB) (*PostgresLogger, error) {
	if db == nil {
		return nil, errors.New("audit: nil db")
	}
	return &PostgresLogger{db: db}, nil
}

// Log inserts one entry.
func (l *PostgresLogger) Log(ctx context.Context, entry Entry) error {
	if l == nil || l.db == nil {
		return errors.New("audit: nil db")
	}
	entry = complete(entry)
	var metadata any
	if len(entry.Metadata) > 0 {
		metadata = []byte(entry.Metadata)
	}
	_, err := l.db.ExecContext(ctx, `
INSERT INTO audit_logs (
	id, tenant_id, actor, role, action, resource_type, resource_id, station_id,
	metadata, payload_digest, ip, user_agent, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		entry.ID, entry.TenantID, entry.Actor, entry.Role, entry.Action, entry.ResourceType, entry.ResourceID,
		entry.StationID, metadata, entry.PayloadDigest, entry.IP, entry.UserAgent, entry.CreatedAt)
	return err
}
