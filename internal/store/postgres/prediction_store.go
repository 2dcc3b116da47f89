package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sentientlabs/stockcast/internal/domain"
)

// PredictionStore implements domain.PredictionStore using PostgreSQL.
type PredictionStore struct {
	pool *pgxpool.Pool
}

// NewPredictionStore creates a new PredictionStore backed by the given
// connection pool.
func NewPredictionStore(pool *pgxpool.Pool) *PredictionStore {
	return &PredictionStore{pool: pool}
}

const predictionSelectCols = `id, user_id, symbol, initial_price, target_price,
	confidence_score, final_price, accuracy_score, status, target_date,
	finalized_date, created_at`

func scanPredictionRows(rows pgx.Rows) ([]domain.Prediction, error) {
	var preds []domain.Prediction
	for rows.Next() {
		var p domain.Prediction
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.Symbol, &p.InitialPrice, &p.TargetPrice,
			&p.ConfidenceScore, &p.FinalPrice, &p.AccuracyScore, &p.Status,
			&p.TargetDate, &p.FinalizedDate, &p.CreatedAt,
		); err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return preds, rows.Err()
}

// Create inserts a new prediction.
func (s *PredictionStore) Create(ctx context.Context, p domain.Prediction) error {
	const query = `
		INSERT INTO predictions (
			id, user_id, symbol, initial_price, target_price,
			confidence_score, status, target_date, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.pool.Exec(ctx, query,
		p.ID, p.UserID, p.Symbol, p.InitialPrice, p.TargetPrice,
		p.ConfidenceScore, p.Status, p.TargetDate, p.CreatedAt,
	)
	if err != nil {
		// 23505 is unique_violation.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("postgres: create prediction %s: %w", p.ID, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("postgres: create prediction: %w", err)
	}
	return nil
}

// GetByID returns a single prediction. It returns domain.ErrNotFound when no
// row matches.
func (s *PredictionStore) GetByID(ctx context.Context, id string) (domain.Prediction, error) {
	query := `SELECT ` + predictionSelectCols + ` FROM predictions WHERE id = $1`

	var p domain.Prediction
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.UserID, &p.Symbol, &p.InitialPrice, &p.TargetPrice,
		&p.ConfidenceScore, &p.FinalPrice, &p.AccuracyScore, &p.Status,
		&p.TargetDate, &p.FinalizedDate, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Prediction{}, domain.ErrNotFound
		}
		return domain.Prediction{}, fmt.Errorf("postgres: get prediction %s: %w", id, err)
	}
	return p, nil
}

// List returns predictions matching the filter, newest first.
func (s *PredictionStore) List(ctx context.Context, f domain.PredictionFilter) ([]domain.Prediction, error) {
	query := `SELECT ` + predictionSelectCols + ` FROM predictions WHERE 1=1`
	var args []any
	argIdx := 1

	if f.UserID != "" {
		query += fmt.Sprintf(" AND user_id = $%d", argIdx)
		args = append(args, f.UserID)
		argIdx++
	}
	if f.Symbol != "" {
		query += fmt.Sprintf(" AND symbol = $%d", argIdx)
		args = append(args, f.Symbol)
		argIdx++
	}
	if f.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, f.Status)
		argIdx++
	}
	if f.TargetAfter != nil {
		query += fmt.Sprintf(" AND target_date > $%d", argIdx)
		args = append(args, *f.TargetAfter)
		argIdx++
	}
	if f.TargetBefore != nil {
		query += fmt.Sprintf(" AND target_date < $%d", argIdx)
		args = append(args, *f.TargetBefore)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, f.Limit)
		argIdx++
	}
	if f.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, f.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list predictions: %w", err)
	}
	defer rows.Close()

	preds, err := scanPredictionRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan predictions: %w", err)
	}
	return preds, nil
}

// CountActive returns the number of ACTIVE predictions held by a user.
func (s *PredictionStore) CountActive(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM predictions WHERE user_id = $1 AND status = $2",
		userID, domain.StatusActive,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count active predictions: %w", err)
	}
	return count, nil
}

// Finalize writes the outcome for a prediction if and only if no final price
// exists yet. The guarded single-row UPDATE is what makes concurrent
// finalization attempts safe: exactly one writer observes a row change.
func (s *PredictionStore) Finalize(ctx context.Context, id string, f domain.Finalization) (bool, error) {
	const query = `
		UPDATE predictions
		SET final_price = $2,
		    accuracy_score = $3,
		    finalized_date = $4,
		    status = $5
		WHERE id = $1 AND final_price IS NULL`

	tag, err := s.pool.Exec(ctx, query,
		id, f.FinalPrice, f.AccuracyScore, f.FinalizedDate, domain.StatusValidated,
	)
	if err != nil {
		return false, fmt.Errorf("postgres: finalize prediction %s: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// DeleteAbandonedBefore removes ACTIVE predictions with target dates older
// than cutoff and returns the purged rows.
func (s *PredictionStore) DeleteAbandonedBefore(ctx context.Context, cutoff time.Time) ([]domain.Prediction, error) {
	query := `
		DELETE FROM predictions
		WHERE status = $1 AND target_date < $2
		RETURNING ` + predictionSelectCols

	rows, err := s.pool.Query(ctx, query, domain.StatusActive, cutoff)
	if err != nil {
		return nil, fmt.Errorf("postgres: delete abandoned predictions: %w", err)
	}
	defer rows.Close()

	preds, err := scanPredictionRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan purged predictions: %w", err)
	}
	return preds, nil
}

// Compile-time interface check.
var _ domain.PredictionStore = (*PredictionStore)(nil)
