package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/willow-wellness/bookings-api/internal/domain"
)

type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID string) (*domain.MembershipProfile, error)
	GetByCustomerID(ctx context.Context, customerID string) (*domain.MembershipProfile, error)
	// UpsertMembership overwrites tier, start, expiry and customer id
	// for the user. Replaying the same payment event writes the same
	// values again, so retries are safe.
	UpsertMembership(ctx context.Context, userID string, tier domain.Tier, start, expiry time.Time, customerID string) error
	UpdateExpiryByCustomer(ctx context.Context, customerID string, expiry time.Time) (bool, error)
	DowngradeByCustomer(ctx context.Context, customerID string) (bool, error)
	// AddHub appends the hub slug to the user's purchased hubs only if
	// absent, in a single statement. Returns false when the hub was
	// already owned.
	AddHub(ctx context.Context, userID, slug string) (bool, error)
}

type profileRepository struct {
	pool *pgxpool.Pool
}

func NewProfileRepository(pool *pgxpool.Pool) ProfileRepository {
	return &profileRepository{pool: pool}
}

const profileCols = `user_id, membership_type, membership_start, membership_expiry,
coalesce(stripe_customer_id, ''), coalesce(purchased_hubs, '{}'), updated_at`

func scanProfile(row pgx.Row) (*domain.MembershipProfile, error) {
	var p domain.MembershipProfile
	err := row.Scan(
		&p.UserID, &p.Tier, &p.MembershipStart, &p.MembershipExpiry,
		&p.StripeCustomerID, &p.PurchasedHubs, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *profileRepository) GetByUserID(ctx context.Context, userID string) (*domain.MembershipProfile, error) {
	const q = `SELECT ` + profileCols + ` FROM profiles WHERE user_id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	p, err := scanProfile(r.pool.QueryRow(ctx, q, userID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (r *profileRepository) GetByCustomerID(ctx context.Context, customerID string) (*domain.MembershipProfile, error) {
	const q = `SELECT ` + profileCols + ` FROM profiles WHERE stripe_customer_id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	p, err := scanProfile(r.pool.QueryRow(ctx, q, customerID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (r *profileRepository) UpsertMembership(ctx context.Context, userID string, tier domain.Tier, start, expiry time.Time, customerID string) error {
	const q = `INSERT INTO profiles (user_id, membership_type, membership_start, membership_expiry, stripe_customer_id)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		ON CONFLICT (user_id) DO UPDATE SET
			membership_type   = $2,
			membership_start  = $3,
			membership_expiry = $4,
			stripe_customer_id = COALESCE(NULLIF($5, ''), profiles.stripe_customer_id),
			updated_at = now()`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, userID, tier, start, expiry, customerID)
	return err
}

func (r *profileRepository) UpdateExpiryByCustomer(ctx context.Context, customerID string, expiry time.Time) (bool, error) {
	const q = `UPDATE profiles SET membership_expiry=$2, updated_at=now() WHERE stripe_customer_id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, customerID, expiry)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

func (r *profileRepository) DowngradeByCustomer(ctx context.Context, customerID string) (bool, error) {
	const q = `UPDATE profiles
		SET membership_type='free', membership_expiry=NULL, updated_at=now()
		WHERE stripe_customer_id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, customerID)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

func (r *profileRepository) AddHub(ctx context.Context, userID, slug string) (bool, error) {
	// Single-statement append-if-absent keeps concurrent purchases of
	// different hubs from clobbering each other.
	const q = `UPDATE profiles
		SET purchased_hubs = array_append(coalesce(purchased_hubs, '{}'), $2),
		    updated_at = now()
		WHERE user_id=$1 AND NOT (coalesce(purchased_hubs, '{}') @> ARRAY[$2])`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, userID, slug)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}
