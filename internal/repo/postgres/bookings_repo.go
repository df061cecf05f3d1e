package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/willow-wellness/bookings-api/internal/domain"
)

type BookingRepository interface {
	// CreateIfSlotFree inserts the booking only if no confirmed,
	// pending-payment or scheduled booking overlaps its [start, end)
	// interval. The overlap check and the insert run in one
	// transaction holding an advisory lock on the booking date, so
	// concurrent requests for the same date serialize.
	CreateIfSlotFree(ctx context.Context, b *domain.Booking) (*domain.Booking, error)
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	GetByManageToken(ctx context.Context, token string) (*domain.Booking, error)
	SetCheckoutSession(ctx context.Context, id int64, sessionID string, expiresAt time.Time) error
	ConfirmByCheckoutSession(ctx context.Context, sessionID string) (*domain.Booking, error)
	UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus) (*domain.Booking, error)
	List(ctx context.Context, limit, offset int, status *domain.BookingStatus) ([]domain.Booking, error)
	ListByEmail(ctx context.Context, email string, limit, offset int) ([]domain.Booking, error)
	// ExpireOverdue marks unpaid bookings past their payment deadline as
	// expired and returns the rows it released.
	ExpireOverdue(ctx context.Context, now time.Time) ([]domain.Booking, error)
}

type bookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) BookingRepository {
	return &bookingRepository{pool: pool}
}

const bookingCols = `id, manage_token, session_type,
client_name, client_email,
start_time, end_time, duration_minutes, price_cents,
notes, status, checkout_session_id, payment_expires_at,
created_at, updated_at`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(
		&b.ID, &b.ManageToken, &b.SessionType,
		&b.ClientName, &b.ClientEmail,
		&b.StartTime, &b.EndTime, &b.DurationMinutes, &b.PriceCents,
		&b.Notes, &b.Status, &b.CheckoutSessionID, &b.PaymentExpiresAt,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func activeStatusStrings() []string {
	out := make([]string, 0, len(domain.ActiveStatuses))
	for _, s := range domain.ActiveStatuses {
		out = append(out, string(s))
	}
	return out
}

func (r *bookingRepository) CreateIfSlotFree(ctx context.Context, b *domain.Booking) (*domain.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, domain.Upstream("begin booking transaction", err)
	}
	defer tx.Rollback(ctx)

	// Serialize slot checks for every date the session touches, so a
	// booking spanning midnight contends with next-day bookings too.
	// Ascending date order keeps lock acquisition deadlock-free.
	for _, date := range domain.DatesCovered(b.StartTime, b.EndTime) {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, date.Format("2006-01-02")); err != nil {
			return nil, domain.Upstream("acquire date lock", err)
		}
	}

	var taken bool
	const overlapQ = `SELECT EXISTS (
		SELECT 1 FROM bookings
		WHERE status = ANY($1)
		  AND start_time < $2
		  AND end_time > $3
	)`
	if err := tx.QueryRow(ctx, overlapQ, activeStatusStrings(), b.EndTime, b.StartTime).Scan(&taken); err != nil {
		return nil, domain.Upstream("check slot availability", err)
	}
	if taken {
		return nil, domain.Conflictf("this time slot is no longer available")
	}

	const insertQ = `INSERT INTO bookings (
		manage_token, session_type,
		client_name, client_email,
		start_time, end_time, duration_minutes, price_cents,
		notes, status, payment_expires_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	RETURNING ` + bookingCols

	created, err := scanBooking(tx.QueryRow(ctx, insertQ,
		uuid.NewString(), b.SessionType,
		b.ClientName, b.ClientEmail,
		b.StartTime, b.EndTime, b.DurationMinutes, b.PriceCents,
		b.Notes, b.Status, b.PaymentExpiresAt,
	))
	if err != nil {
		return nil, domain.Upstream("insert booking", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.Upstream("commit booking", err)
	}
	return created, nil
}

func (r *bookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	b, err := scanBooking(r.pool.QueryRow(ctx, q, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return b, err
}

func (r *bookingRepository) GetByManageToken(ctx context.Context, token string) (*domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE manage_token=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	b, err := scanBooking(r.pool.QueryRow(ctx, q, token))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return b, err
}

func (r *bookingRepository) SetCheckoutSession(ctx context.Context, id int64, sessionID string, expiresAt time.Time) error {
	const q = `UPDATE bookings
		SET checkout_session_id=$2, payment_expires_at=$3, updated_at=now()
		WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, id, sessionID, expiresAt)
	return err
}

func (r *bookingRepository) ConfirmByCheckoutSession(ctx context.Context, sessionID string) (*domain.Booking, error) {
	const q = `UPDATE bookings
		SET status='confirmed', updated_at=now()
		WHERE checkout_session_id=$1 AND status='pending_payment'
		RETURNING ` + bookingCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	b, err := scanBooking(r.pool.QueryRow(ctx, q, sessionID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return b, err
}

func (r *bookingRepository) UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus) (*domain.Booking, error) {
	const q = `UPDATE bookings SET status=$2, updated_at=now() WHERE id=$1 RETURNING ` + bookingCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	b, err := scanBooking(r.pool.QueryRow(ctx, q, id, status))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return b, err
}

func (r *bookingRepository) List(ctx context.Context, limit, offset int, status *domain.BookingStatus) ([]domain.Booking, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	q := `SELECT ` + bookingCols + ` FROM bookings`
	args := []any{}
	if status != nil {
		q += ` WHERE status=$1 ORDER BY start_time DESC LIMIT $2 OFFSET $3`
		args = append(args, *status, limit, offset)
	} else {
		q += ` ORDER BY start_time DESC LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectBookings(rows)
}

func (r *bookingRepository) ListByEmail(ctx context.Context, email string, limit, offset int) ([]domain.Booking, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	const q = `SELECT ` + bookingCols + ` FROM bookings
		WHERE lower(client_email)=lower($1)
		ORDER BY start_time DESC LIMIT $2 OFFSET $3`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, email, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectBookings(rows)
}

func (r *bookingRepository) ExpireOverdue(ctx context.Context, now time.Time) ([]domain.Booking, error) {
	const q = `UPDATE bookings
		SET status='expired', updated_at=now()
		WHERE status='pending_payment' AND payment_expires_at IS NOT NULL AND payment_expires_at < $1
		RETURNING ` + bookingCols
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectBookings(rows)
}

func collectBookings(rows pgx.Rows) ([]domain.Booking, error) {
	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}
