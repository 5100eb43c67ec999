package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Domenick1991/airline-ticketing/internal/domain"
)

type PGProfileRepository struct {
	db *pgxpool.Pool
}

func NewProfileRepository(db *pgxpool.Pool) ProfileRepository {
	return &PGProfileRepository{db: db}
}

func (r *PGProfileRepository) GetByEmail(ctx context.Context, email string) (*domain.UserProfile, error) {
	return scanProfile(r.db.QueryRow(ctx, `SELECT `+profileColumns+` FROM user_profiles WHERE email=$1`, email))
}

func (r *PGProfileRepository) CreateIfAbsent(ctx context.Context, email, tier string) (*domain.UserProfile, bool, error) {
	profile, err := scanProfile(r.db.QueryRow(ctx, `INSERT INTO user_profiles (email, miles_balance, membership_tier)
		VALUES ($1, 0, $2)
		ON CONFLICT (email) DO NOTHING
		RETURNING `+profileColumns, email, tier))
	if err == nil {
		return profile, true, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, fmt.Errorf("insert profile: %w", err)
	}

	profile, err = r.GetByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}
	return profile, false, nil
}

var _ ProfileRepository = (*PGProfileRepository)(nil)
