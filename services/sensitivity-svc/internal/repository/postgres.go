package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"production/pkg/database"
	"production/pkg/telemetry"
)

// PostgresAnalysisRepository - история в PostgreSQL (таблицы analyses и analysis_ranges)
type PostgresAnalysisRepository struct {
	db database.DB
}

// NewPostgresAnalysisRepository создаёт репозиторий
func NewPostgresAnalysisRepository(db database.DB) *PostgresAnalysisRepository {
	return &PostgresAnalysisRepository{db: db}
}

const insertAnalysisQuery = `
	INSERT INTO analyses (
		id, name, solver, status, message, objective,
		num_vars, num_constraints, duration_ms, problem, result
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	RETURNING created_at
`

const insertRangeQuery = `
	INSERT INTO analysis_ranges (
		analysis_id, position, label, current_rhs, shadow_price, increase_limit, decrease_limit
	) VALUES ($1, $2, $3, $4, $5, $6, $7)
`

// Create сохраняет анализ и его диапазоны в одной транзакции
func (r *PostgresAnalysisRepository) Create(ctx context.Context, a *Analysis) error {
	ctx, span := telemetry.StartSpan(ctx, "PostgresAnalysisRepository.Create")
	defer span.End()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	err := database.WithTransaction(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, insertAnalysisQuery,
			a.ID,
			a.Name,
			a.Solver,
			a.Status,
			a.Message,
			a.Objective,
			a.NumVars,
			a.NumConstraints,
			a.DurationMs,
			a.Problem,
			a.Result,
		).Scan(&a.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert analysis: %w", err)
		}

		for _, rr := range a.Ranges {
			if _, err := tx.Exec(ctx, insertRangeQuery,
				a.ID,
				rr.Position,
				rr.Label,
				rr.CurrentRHS,
				rr.ShadowPrice,
				toFloat8(rr.Increase),
				toFloat8(rr.Decrease),
			); err != nil {
				return fmt.Errorf("insert range %s: %w", rr.Label, err)
			}
		}
		return nil
	})
	if err != nil {
		telemetry.SetError(ctx, err)
		return fmt.Errorf("failed to create analysis: %w", err)
	}
	return nil
}

// GetByID загружает анализ вместе с диапазонами; диапазоны из analysis_ranges
// замещают копию в JSON результата
func (r *PostgresAnalysisRepository) GetByID(ctx context.Context, id string) (*Analysis, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresAnalysisRepository.GetByID")
	defer span.End()

	query := `
		SELECT
			id, name, solver, status, message, objective,
			num_vars, num_constraints, duration_ms, problem, result, created_at
		FROM analyses
		WHERE id = $1
	`

	// Заголовок и диапазоны читаются из одного снимка
	a := &Analysis{}
	err := database.WithTransaction(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, query, id).Scan(
			&a.ID,
			&a.Name,
			&a.Solver,
			&a.Status,
			&a.Message,
			&a.Objective,
			&a.NumVars,
			&a.NumConstraints,
			&a.DurationMs,
			&a.Problem,
			&a.Result,
			&a.CreatedAt,
		)
		if err != nil {
			return err
		}

		a.Ranges, err = loadRanges(ctx, tx, id)
		return err
	}, database.ReadOnly(), database.Isolation(pgx.RepeatableRead))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAnalysisNotFound
		}
		telemetry.SetError(ctx, err)
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}
	return a, nil
}

func loadRanges(ctx context.Context, tx pgx.Tx, id string) ([]RangeRow, error) {
	query := `
		SELECT position, label, current_rhs, shadow_price, increase_limit, decrease_limit
		FROM analysis_ranges
		WHERE analysis_id = $1
		ORDER BY position
	`

	rows, err := tx.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load ranges: %w", err)
	}
	defer rows.Close()

	var out []RangeRow
	for rows.Next() {
		var rr RangeRow
		var inc, dec pgtype.Float8
		if err := rows.Scan(&rr.Position, &rr.Label, &rr.CurrentRHS, &rr.ShadowPrice, &inc, &dec); err != nil {
			return nil, fmt.Errorf("failed to scan range: %w", err)
		}
		rr.Increase = fromFloat8(inc)
		rr.Decrease = fromFloat8(dec)
		out = append(out, rr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return out, nil
}

func (r *PostgresAnalysisRepository) List(ctx context.Context, opts *ListOptions) ([]*Summary, int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresAnalysisRepository.List")
	defer span.End()

	o := opts.normalize()
	where, args := buildWhereClause(o)

	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM analyses WHERE %s`, where)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count analyses: %w", err)
	}

	selectQuery := fmt.Sprintf(`
		SELECT id, name, solver, status, objective, num_vars, num_constraints, created_at
		FROM analyses
		WHERE %s
		ORDER BY created_at DESC, id
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)
	args = append(args, o.Limit, o.Offset)

	rows, err := r.db.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	results := []*Summary{}
	for rows.Next() {
		s := &Summary{}
		if err := rows.Scan(
			&s.ID,
			&s.Name,
			&s.Solver,
			&s.Status,
			&s.Objective,
			&s.NumVars,
			&s.NumConstraints,
			&s.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan analysis: %w", err)
		}
		results = append(results, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows iteration error: %w", err)
	}

	return results, total, nil
}

// buildWhereClause строит условия фильтра; без фильтров - TRUE
func buildWhereClause(o ListOptions) (string, []any) {
	conditions := []string{"TRUE"}
	var args []any

	if o.Status != "" {
		args = append(args, o.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if o.Solver != "" {
		args = append(args, o.Solver)
		conditions = append(conditions, fmt.Sprintf("solver = $%d", len(args)))
	}
	return strings.Join(conditions, " AND "), args
}

// Delete удаляет анализ; диапазоны удаляются каскадно
func (r *PostgresAnalysisRepository) Delete(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "PostgresAnalysisRepository.Delete")
	defer span.End()

	result, err := r.db.Exec(ctx, `DELETE FROM analyses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete analysis: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAnalysisNotFound
	}
	return nil
}

func toFloat8(v *float64) pgtype.Float8 {
	if v == nil {
		return pgtype.Float8{}
	}
	return pgtype.Float8{Float64: *v, Valid: true}
}

func fromFloat8(v pgtype.Float8) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
