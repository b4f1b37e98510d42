package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cory-johannsen/gamecmd/internal/command"
)

// writeTimeout bounds a single insert issued from the dispatch path.
const writeTimeout = 2 * time.Second

// FailureRecord is a persisted command resolution failure.
type FailureRecord struct {
	ID           uuid.UUID
	InvocationID uuid.UUID
	Actor        string
	Input        string
	Command      string
	Kind         string
	Message      string
	CreatedAt    time.Time
}

// FailureRepository persists resolution failures to the command_failures table.
// It implements command.FailureSink.
type FailureRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewFailureRepository creates a FailureRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool; logger must be non-nil.
func NewFailureRepository(db *pgxpool.Pool, logger *zap.Logger) *FailureRepository {
	return &FailureRepository{db: db, logger: logger}
}

// Record inserts f and returns the stored row.
//
// Precondition: f.InvocationID must be a UUID.
// Postcondition: Returns the record with ID and CreatedAt set, or a non-nil error.
func (r *FailureRepository) Record(ctx context.Context, f command.Failure) (FailureRecord, error) {
	invocation, err := uuid.Parse(f.InvocationID)
	if err != nil {
		return FailureRecord{}, fmt.Errorf("parsing invocation id %q: %w", f.InvocationID, err)
	}
	rec := FailureRecord{
		ID:           uuid.New(),
		InvocationID: invocation,
		Input:        f.Input,
		Command:      f.Command,
		Kind:         f.Kind.String(),
		Message:      f.Message,
	}
	if f.Actor != nil {
		if name, err := f.Actor.Name(ctx); err == nil {
			rec.Actor = name
		}
	}

	err = r.db.QueryRow(ctx,
		`INSERT INTO command_failures (id, invocation_id, actor, input, command, kind, message)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at`,
		rec.ID, rec.InvocationID, rec.Actor, rec.Input, rec.Command, rec.Kind, rec.Message,
	).Scan(&rec.CreatedAt)
	if err != nil {
		return FailureRecord{}, fmt.Errorf("inserting command failure: %w", err)
	}
	return rec, nil
}

// CommandFailed records f, logging instead of returning any database error.
func (r *FailureRepository) CommandFailed(ctx context.Context, f command.Failure) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if _, err := r.Record(ctx, f); err != nil {
		r.logger.Error("recording command failure",
			zap.String("invocation", f.InvocationID),
			zap.String("command", f.Command),
			zap.Error(err),
		)
	}
}

// Recent returns up to limit failures, newest first.
//
// Precondition: limit must be > 0.
func (r *FailureRepository) Recent(ctx context.Context, limit int) ([]FailureRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, invocation_id, actor, input, command, kind, message, created_at
		 FROM command_failures
		 ORDER BY created_at DESC, id
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying command failures: %w", err)
	}
	out, err := pgx.CollectRows(rows, scanFailure)
	if err != nil {
		return nil, fmt.Errorf("scanning command failures: %w", err)
	}
	return out, nil
}

// CountByKind returns the number of stored failures per kind name.
func (r *FailureRepository) CountByKind(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.Query(ctx, `SELECT kind, COUNT(*) FROM command_failures GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("counting command failures: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scanning failure count: %w", err)
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}

// PurgeBefore deletes failures recorded before cutoff and returns how many were removed.
func (r *FailureRepository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM command_failures WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging command failures: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanFailure(row pgx.CollectableRow) (FailureRecord, error) {
	var rec FailureRecord
	err := row.Scan(&rec.ID, &rec.InvocationID, &rec.Actor, &rec.Input,
		&rec.Command, &rec.Kind, &rec.Message, &rec.CreatedAt)
	return rec, err
}
