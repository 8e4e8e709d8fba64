package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"reimbly/internal/approval"
	"reimbly/pkg/domain"
	"reimbly/pkg/platform/sentinel"
	"reimbly/pkg/platform/tx"
)

// Schema is the DDL for the cases table. Applied by EnsureSchema; kept here so
// the store and its migrations cannot drift apart.
const Schema = `
CREATE TABLE IF NOT EXISTS cases (
	id             UUID PRIMARY KEY,
	requester_id   TEXT NOT NULL,
	organization   TEXT NOT NULL DEFAULT '',
	category       TEXT NOT NULL,
	amount         NUMERIC(12,2) NOT NULL,
	currency       TEXT NOT NULL,
	justification  TEXT NOT NULL,
	attachments    JSONB NOT NULL DEFAULT '[]',
	approval_route JSONB NOT NULL DEFAULT '[]',
	route_reason   TEXT NOT NULL DEFAULT '',
	decision_log   JSONB NOT NULL DEFAULT '[]',
	status         TEXT NOT NULL,
	submitted_at   TIMESTAMPTZ NOT NULL,
	last_updated   TIMESTAMPTZ NOT NULL,
	version        BIGINT NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS cases_status_idx ON cases (status);
CREATE INDEX IF NOT EXISTS cases_route_idx ON cases USING GIN (approval_route);
`

// PostgresStore persists cases in PostgreSQL. Optimistic concurrency rides on
// the version column: Save only touches the row when the stored version still
// matches the one handed out at Load.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn returns the transaction carried in the context when one is present, so
// callers can group case writes with their own bookkeeping atomically.
func (s *PostgresStore) conn(ctx context.Context) querier {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// EnsureSchema applies the cases table DDL. Idempotent.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure cases schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, c approval.Case) (approval.Version, error) {
	attachments, route, decisions, err := marshalCaseJSON(c)
	if err != nil {
		return 0, err
	}

	const query = `
		INSERT INTO cases (
			id, requester_id, organization, category, amount, currency,
			justification, attachments, approval_route, route_reason,
			decision_log, status, submitted_at, last_updated, version
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 1)
	`
	_, err = s.conn(ctx).ExecContext(ctx, query,
		c.ID.String(), string(c.RequesterID), c.Organization, string(c.Category),
		c.Amount, string(c.Currency), c.Justification, attachments, route,
		c.RouteReason, decisions, string(c.Status), c.SubmittedAt, c.LastUpdated,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return 0, sentinel.ErrVersionConflict
		}
		return 0, infraErr("insert case", err)
	}
	return 1, nil
}

func (s *PostgresStore) Load(ctx context.Context, id domain.CaseID) (approval.Case, approval.Version, error) {
	const query = `
		SELECT id, requester_id, organization, category, amount, currency,
		       justification, attachments, approval_route, route_reason,
		       decision_log, status, submitted_at, last_updated, version
		FROM cases
		WHERE id = $1
	`
	row := s.conn(ctx).QueryRowContext(ctx, query, id.String())
	c, version, err := scanCase(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return approval.Case{}, 0, sentinel.ErrNotFound
		}
		return approval.Case{}, 0, infraErr("load case", err)
	}
	return c, version, nil
}

func (s *PostgresStore) Save(ctx context.Context, c approval.Case, expected approval.Version) (approval.Version, error) {
	attachments, route, decisions, err := marshalCaseJSON(c)
	if err != nil {
		return 0, err
	}

	const query = `
		UPDATE cases
		SET requester_id = $2, organization = $3, category = $4, amount = $5,
		    currency = $6, justification = $7, attachments = $8,
		    approval_route = $9, route_reason = $10, decision_log = $11,
		    status = $12, submitted_at = $13, last_updated = $14,
		    version = version + 1
		WHERE id = $1 AND version = $15
	`
	result, err := s.conn(ctx).ExecContext(ctx, query,
		c.ID.String(), string(c.RequesterID), c.Organization, string(c.Category),
		c.Amount, string(c.Currency), c.Justification, attachments, route,
		c.RouteReason, decisions, string(c.Status), c.SubmittedAt, c.LastUpdated,
		int64(expected),
	)
	if err != nil {
		return 0, infraErr("update case", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update case rows affected: %w", err)
	}
	if affected == 0 {
		// Either the row vanished or someone wrote a newer version.
		var exists bool
		checkErr := s.conn(ctx).QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM cases WHERE id = $1)`, c.ID.String(),
		).Scan(&exists)
		if checkErr != nil {
			return 0, fmt.Errorf("check case existence: %w", checkErr)
		}
		if !exists {
			return 0, sentinel.ErrNotFound
		}
		return 0, sentinel.ErrVersionConflict
	}
	return expected + 1, nil
}

func (s *PostgresStore) QueryByApprover(ctx context.Context, approver domain.UserID) ([]approval.Case, error) {
	// The GIN index answers route membership; the engine re-derives the
	// remaining set from the decision log, so approvers who already voted
	// are filtered there.
	const query = `
		SELECT id, requester_id, organization, category, amount, currency,
		       justification, attachments, approval_route, route_reason,
		       decision_log, status, submitted_at, last_updated, version
		FROM cases
		WHERE status IN ('submitted', 'pending_review')
		  AND approval_route @> to_jsonb(ARRAY[$1::text])
		ORDER BY submitted_at
	`
	rows, err := s.conn(ctx).QueryContext(ctx, query, string(approver))
	if err != nil {
		return nil, infraErr("query cases by approver", err)
	}
	defer rows.Close()
	return collectCases(rows)
}

func (s *PostgresStore) List(ctx context.Context) ([]approval.Case, error) {
	const query = `
		SELECT id, requester_id, organization, category, amount, currency,
		       justification, attachments, approval_route, route_reason,
		       decision_log, status, submitted_at, last_updated, version
		FROM cases
		ORDER BY submitted_at
	`
	rows, err := s.conn(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, infraErr("list cases", err)
	}
	defer rows.Close()
	return collectCases(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(row rowScanner) (approval.Case, approval.Version, error) {
	var (
		c           approval.Case
		id          string
		requester   string
		category    string
		currency    string
		status      string
		attachments []byte
		route       []byte
		decisions   []byte
		version     int64
	)
	err := row.Scan(
		&id, &requester, &c.Organization, &category, &c.Amount, &currency,
		&c.Justification, &attachments, &route, &c.RouteReason,
		&decisions, &status, &c.SubmittedAt, &c.LastUpdated, &version,
	)
	if err != nil {
		return approval.Case{}, 0, err
	}

	caseID, err := domain.ParseCaseID(id)
	if err != nil {
		return approval.Case{}, 0, fmt.Errorf("stored case id: %w", err)
	}
	c.ID = caseID
	c.RequesterID = domain.UserID(requester)
	c.Category = domain.Category(category)
	c.Currency = domain.Currency(currency)
	c.Status = approval.Status(status)

	if err := json.Unmarshal(attachments, &c.Attachments); err != nil {
		return approval.Case{}, 0, fmt.Errorf("decode attachments: %w", err)
	}
	if err := json.Unmarshal(route, &c.ApprovalRoute); err != nil {
		return approval.Case{}, 0, fmt.Errorf("decode approval route: %w", err)
	}
	if err := json.Unmarshal(decisions, &c.DecisionLog); err != nil {
		return approval.Case{}, 0, fmt.Errorf("decode decision log: %w", err)
	}
	return c, approval.Version(version), nil
}

func collectCases(rows *sql.Rows) ([]approval.Case, error) {
	var out []approval.Case
	for rows.Next() {
		c, _, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cases: %w", err)
	}
	return out, nil
}

// infraErr folds driver-level failures into the sentinel set so the engine
// can tell an unreachable or timed-out database apart from a plain query
// failure. Class 08 is the PostgreSQL connection-exception class.
func infraErr(operation string, err error) error {
	var pqErr *pq.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w: %v", operation, sentinel.ErrTimeout, err)
	case errors.Is(err, driver.ErrBadConn),
		errors.As(err, &pqErr) && pqErr.Code.Class() == "08":
		return fmt.Errorf("%s: %w: %v", operation, sentinel.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", operation, err)
}

func marshalCaseJSON(c approval.Case) (attachments, route, decisions []byte, err error) {
	if attachments, err = json.Marshal(c.Attachments); err != nil {
		return nil, nil, nil, fmt.Errorf("encode attachments: %w", err)
	}
	if route, err = json.Marshal(c.ApprovalRoute); err != nil {
		return nil, nil, nil, fmt.Errorf("encode approval route: %w", err)
	}
	if decisions, err = json.Marshal(c.DecisionLog); err != nil {
		return nil, nil, nil, fmt.Errorf("encode decision log: %w", err)
	}
	return attachments, route, decisions, nil
}
