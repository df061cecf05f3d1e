package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/willow-wellness/bookings-api/internal/domain"
)

type AvailabilityRepository interface {
	HasActiveWindow(ctx context.Context, weekday int) (bool, error)
	IsDateBlocked(ctx context.Context, date time.Time) (bool, error)
	ListWindows(ctx context.Context) ([]domain.AvailabilityWindow, error)
	SetWindowActive(ctx context.Context, weekday int, active bool) error
	ListBlockedDates(ctx context.Context) ([]domain.BlockedDate, error)
	AddBlockedDate(ctx context.Context, date time.Time, reason string) error
	RemoveBlockedDate(ctx context.Context, date time.Time) (bool, error)
}

type availabilityRepository struct {
	pool *pgxpool.Pool
}

func NewAvailabilityRepository(pool *pgxpool.Pool) AvailabilityRepository {
	return &availabilityRepository{pool: pool}
}

func (r *availabilityRepository) HasActiveWindow(ctx context.Context, weekday int) (bool, error) {
	const q = `SELECT EXISTS (
		SELECT 1 FROM availability_windows WHERE weekday=$1 AND active
	)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var open bool
	err := r.pool.QueryRow(ctx, q, weekday).Scan(&open)
	return open, err
}

func (r *availabilityRepository) IsDateBlocked(ctx context.Context, date time.Time) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM blocked_dates WHERE date=$1)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var blocked bool
	err := r.pool.QueryRow(ctx, q, domain.DateOf(date)).Scan(&blocked)
	return blocked, err
}

func (r *availabilityRepository) ListWindows(ctx context.Context) ([]domain.AvailabilityWindow, error) {
	const q = `SELECT weekday, active, updated_at FROM availability_windows ORDER BY weekday`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var windows []domain.AvailabilityWindow
	for rows.Next() {
		var w domain.AvailabilityWindow
		if err := rows.Scan(&w.Weekday, &w.Active, &w.UpdatedAt); err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	return windows, rows.Err()
}

func (r *availabilityRepository) SetWindowActive(ctx context.Context, weekday int, active bool) error {
	const q = `INSERT INTO availability_windows (weekday, active)
		VALUES ($1, $2)
		ON CONFLICT (weekday) DO UPDATE SET active=$2, updated_at=now()`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, weekday, active)
	return err
}

func (r *availabilityRepository) ListBlockedDates(ctx context.Context) ([]domain.BlockedDate, error) {
	const q = `SELECT date, reason, created_at FROM blocked_dates ORDER BY date`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []domain.BlockedDate
	for rows.Next() {
		var d domain.BlockedDate
		if err := rows.Scan(&d.Date, &d.Reason, &d.CreatedAt); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

func (r *availabilityRepository) AddBlockedDate(ctx context.Context, date time.Time, reason string) error {
	const q = `INSERT INTO blocked_dates (date, reason)
		VALUES ($1, $2)
		ON CONFLICT (date) DO NOTHING`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, domain.DateOf(date), reason)
	return err
}

func (r *availabilityRepository) RemoveBlockedDate(ctx context.Context, date time.Time) (bool, error) {
	const q = `DELETE FROM blocked_dates WHERE date=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, domain.DateOf(date))
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}
