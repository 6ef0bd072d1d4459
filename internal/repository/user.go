package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/centralrepo/centralrepo/internal/model"
)

// UserRepo resolves identities for the authentication layer. User
// management itself (creation, passwords) lives outside this service;
// the core only ever reads.
type UserRepo struct {
	db DBTX
}

// NewUserRepo creates the user repository.
func NewUserRepo(db DBTX) *UserRepo {
	return &UserRepo{db: db}
}

// GetByID returns one user row.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u := &model.User{}
	err := r.db.QueryRow(ctx,
		`SELECT id, username, is_superuser, active FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Username, &u.IsSuperuser, &u.Active)
	if err != nil {
		return nil, classify(err)
	}
	return u, nil
}
