package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"trailwise/internal/common"
	"trailwise/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

// TourFilter is one comparison parsed from the list query string,
// e.g. price[lte]=1500 becomes {Field: "price", Op: "lte", Value: "1500"}.
type TourFilter struct {
	Field string
	Op    string
	Value string
}

type TourRepository interface {
	Create(ctx context.Context, tour *model.Tour) error
	Update(ctx context.Context, tour *model.Tour) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*model.Tour, error)
	List(ctx context.Context, filters []TourFilter, sortBy []string, limit, offset int) ([]model.Tour, int, error)
	Stats(ctx context.Context, minRating float64) (*model.TourStats, error)
	MonthlyPlan(ctx context.Context, year int) ([]model.MonthlyPlanEntry, error)
}

type pgTourRepository struct {
	db *sql.DB
}

func NewPgTourRepository(db *sql.DB) TourRepository {
	return &pgTourRepository{db: db}
}

// filterableColumns whitelists fields accepted in filters and sorting;
// everything else in the query string is ignored rather than interpolated.
var filterableColumns = map[string]bool{
	"name":             true,
	"duration":         true,
	"max_group_size":   true,
	"difficulty":       true,
	"ratings_average":  true,
	"ratings_quantity": true,
	"price":            true,
	"created_at":       true,
}

var filterOps = map[string]string{
	"eq":  "=",
	"gt":  ">",
	"gte": ">=",
	"lt":  "<",
	"lte": "<=",
}

const tourColumns = `id, name, slug, duration, max_group_size, difficulty,
	ratings_average, ratings_quantity, price, summary, description,
	created_at, updated_at`

// Create writes the tour row and its start dates in one transaction so a
// failed date insert never leaves a half-written tour behind.
func (r *pgTourRepository) Create(ctx context.Context, t *model.Tour) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pgTourRepository.Create begin: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO tours (id, name, slug, duration, max_group_size, difficulty,
	              ratings_average, ratings_quantity, price, summary, description)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err = tx.ExecContext(ctx, query, t.ID, t.Name, t.Slug, t.Duration, t.MaxGroupSize,
		t.Difficulty, t.RatingsAverage, t.RatingsQuantity, t.Price, t.Summary, t.Description)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique constraint for slug
			return fmt.Errorf("tour with this name already exists: %w", common.ErrBadRequest)
		}
		return fmt.Errorf("pgTourRepository.Create: %w", err)
	}
	if err := replaceStartDates(ctx, tx, t); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("pgTourRepository.Create commit: %w", err)
	}
	return nil
}

func (r *pgTourRepository) Update(ctx context.Context, t *model.Tour) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pgTourRepository.Update begin: %w", err)
	}
	defer tx.Rollback()

	query := `UPDATE tours SET
	              name = $2, slug = $3, duration = $4, max_group_size = $5, difficulty = $6,
	              ratings_average = $7, ratings_quantity = $8, price = $9,
	              summary = $10, description = $11, updated_at = now()
	          WHERE id = $1`
	res, err := tx.ExecContext(ctx, query, t.ID, t.Name, t.Slug, t.Duration, t.MaxGroupSize,
		t.Difficulty, t.RatingsAverage, t.RatingsQuantity, t.Price, t.Summary, t.Description)
	if err != nil {
		return fmt.Errorf("pgTourRepository.Update: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	if err := replaceStartDates(ctx, tx, t); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("pgTourRepository.Update commit: %w", err)
	}
	return nil
}

func (r *pgTourRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tours WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgTourRepository.Delete: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgTourRepository) FindByID(ctx context.Context, id string) (*model.Tour, error) {
	query := `SELECT ` + tourColumns + ` FROM tours WHERE id = $1`
	tour := &model.Tour{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&tour.ID, &tour.Name, &tour.Slug, &tour.Duration, &tour.MaxGroupSize, &tour.Difficulty,
		&tour.RatingsAverage, &tour.RatingsQuantity, &tour.Price, &tour.Summary, &tour.Description,
		&tour.CreatedAt, &tour.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgTourRepository.FindByID: %w", err)
	}
	if tour.StartDates, err = r.startDates(ctx, id); err != nil {
		return nil, err
	}
	return tour, nil
}

func (r *pgTourRepository) List(ctx context.Context, filters []TourFilter, sortBy []string, limit, offset int) ([]model.Tour, int, error) {
	var conditions []string
	var args []interface{}
	argID := 1

	for _, f := range filters {
		op, okOp := filterOps[f.Op]
		if !okOp || !filterableColumns[f.Field] {
			continue
		}
		conditions = append(conditions, fmt.Sprintf("%s %s $%d", f.Field, op, argID))
		args = append(args, f.Value)
		argID++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tours`+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgTourRepository.List count: %w", err)
	}

	orderClause := " ORDER BY created_at DESC"
	if clauses := buildOrderClauses(sortBy); len(clauses) > 0 {
		orderClause = " ORDER BY " + strings.Join(clauses, ", ")
	}

	query := `SELECT ` + tourColumns + ` FROM tours` + whereClause + orderClause +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", argID, argID+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgTourRepository.List query: %w", err)
	}
	defer rows.Close()

	tours := []model.Tour{}
	for rows.Next() {
		var t model.Tour
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.Duration, &t.MaxGroupSize, &t.Difficulty,
			&t.RatingsAverage, &t.RatingsQuantity, &t.Price, &t.Summary, &t.Description,
			&t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("pgTourRepository.List scan: %w", err)
		}
		tours = append(tours, t)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgTourRepository.List rows.Err: %w", err)
	}

	return tours, total, nil
}

// buildOrderClauses translates "-price,ratings_average" style sort keys into
// ORDER BY clauses, dropping anything outside the column whitelist.
func buildOrderClauses(sortBy []string) []string {
	var clauses []string
	for _, key := range sortBy {
		dir := "ASC"
		if strings.HasPrefix(key, "-") {
			dir = "DESC"
			key = key[1:]
		}
		if !filterableColumns[key] {
			continue
		}
		clauses = append(clauses, key+" "+dir)
	}
	return clauses
}

func (r *pgTourRepository) Stats(ctx context.Context, minRating float64) (*model.TourStats, error) {
	query := `SELECT COUNT(*), COALESCE(SUM(ratings_quantity), 0),
	                 COALESCE(AVG(ratings_average), 0), COALESCE(AVG(price), 0),
	                 COALESCE(MIN(price), 0), COALESCE(MAX(price), 0)
	          FROM tours WHERE ratings_average >= $1`
	stats := &model.TourStats{}
	err := r.db.QueryRowContext(ctx, query, minRating).Scan(
		&stats.NumTours, &stats.NumRatings, &stats.AvgRating,
		&stats.AvgPrice, &stats.MinPrice, &stats.MaxPrice,
	)
	if err != nil {
		return nil, fmt.Errorf("pgTourRepository.Stats: %w", err)
	}
	return stats, nil
}

func (r *pgTourRepository) MonthlyPlan(ctx context.Context, year int) ([]model.MonthlyPlanEntry, error) {
	query := `SELECT EXTRACT(MONTH FROM sd.start_date)::int AS month,
	                 COUNT(*) AS num_tour_starts,
	                 ARRAY_AGG(t.name) AS tours
	          FROM tour_start_dates sd
	          JOIN tours t ON t.id = sd.tour_id
	          WHERE EXTRACT(YEAR FROM sd.start_date) = $1
	          GROUP BY month
	          ORDER BY num_tour_starts DESC, month ASC`
	rows, err := r.db.QueryContext(ctx, query, year)
	if err != nil {
		return nil, fmt.Errorf("pgTourRepository.MonthlyPlan query: %w", err)
	}
	defer rows.Close()

	var plan []model.MonthlyPlanEntry
	for rows.Next() {
		var entry model.MonthlyPlanEntry
		var names []byte // Postgres text[] literal, parsed below
		if err := rows.Scan(&entry.Month, &entry.NumTourStarts, &names); err != nil {
			return nil, fmt.Errorf("pgTourRepository.MonthlyPlan scan: %w", err)
		}
		entry.Tours = parseTextArray(string(names))
		plan = append(plan, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgTourRepository.MonthlyPlan rows.Err: %w", err)
	}
	return plan, nil
}

// parseTextArray decodes a simple {a,b,"c d"} Postgres array literal. Tour
// names never contain braces or backslashes, so quoted-comma handling is all
// that is needed.
func parseTextArray(lit string) []string {
	lit = strings.TrimPrefix(lit, "{")
	lit = strings.TrimSuffix(lit, "}")
	if lit == "" {
		return nil
	}
	var out []string
	var cur strings.Builder
	inQuotes := false
	for _, r := range lit {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	out = append(out, cur.String())
	return out
}

func (r *pgTourRepository) startDates(ctx context.Context, tourID string) ([]time.Time, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT start_date FROM tour_start_dates WHERE tour_id = $1 ORDER BY start_date ASC`, tourID)
	if err != nil {
		return nil, fmt.Errorf("pgTourRepository.startDates query: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("pgTourRepository.startDates scan: %w", err)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

func replaceStartDates(ctx context.Context, tx *sql.Tx, t *model.Tour) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM tour_start_dates WHERE tour_id = $1`, t.ID); err != nil {
		return fmt.Errorf("pgTourRepository.replaceStartDates delete: %w", err)
	}
	for _, d := range t.StartDates {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tour_start_dates (tour_id, start_date) VALUES ($1, $2)`, t.ID, d); err != nil {
			return fmt.Errorf("pgTourRepository.replaceStartDates insert: %w", err)
		}
	}
	return nil
}
