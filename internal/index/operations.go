package index

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Outcome classifies how an operation ended.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomePartial Outcome = "partial"
	OutcomeFailed  Outcome = "failed"
)

// Operation is one entry of the audit log.
type Operation struct {
	ID        string    `json:"id"`
	Name      string    `json:"operation"`
	Subject   string    `json:"subject"`
	Actor     string    `json:"actor"`
	Outcome   Outcome   `json:"outcome"`
	Message   string    `json:"message"`
	Warning   string    `json:"warning,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RecordOperation appends op to the audit log, assigning an ID and timestamp
// when they are empty.
func (db *DB) RecordOperation(op Operation) (Operation, error) {
	if op.ID == "" {
		op.ID = uuid.NewString()
	}
	if op.CreatedAt.IsZero() {
		op.CreatedAt = time.Now().UTC()
	}
	_, err := db.conn.Exec(`
		INSERT INTO operations (id, operation, subject, actor, outcome, message, warning, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, op.ID, op.Name, op.Subject, op.Actor, string(op.Outcome), op.Message, op.Warning, op.CreatedAt)
	if err != nil {
		return op, fmt.Errorf("index: record operation: %w", err)
	}
	return op, nil
}

// Operations returns the newest entries first, optionally only those about subject.
func (db *DB) Operations(limit int, subject string) ([]Operation, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, operation, subject, actor, outcome, message, warning, created_at FROM operations`
	args := []any{}
	if subject != "" {
		query += ` WHERE subject = ?`
		args = append(args, subject)
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("index: list operations: %w", err)
	}
	defer rows.Close()

	out := []Operation{}
	for rows.Next() {
		var op Operation
		var outcome string
		if err := rows.Scan(&op.ID, &op.Name, &op.Subject, &op.Actor, &outcome, &op.Message, &op.Warning, &op.CreatedAt); err != nil {
			return nil, err
		}
		op.Outcome = Outcome(outcome)
		out = append(out, op)
	}
	return out, rows.Err()
}
