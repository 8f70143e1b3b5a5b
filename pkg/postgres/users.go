package postgres

import (
	"context"

	"github.com/jakechorley/legacy-migrator/pkg/db"
)

// FindUserByEmail looks a user up by case-insensitive email
func (d *DB) FindUserByEmail(ctx context.Context, email string) (*db.User, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var u db.User
	var photo *string
	err := d.pool.QueryRow(ctx, `
		SELECT id, email, first_name, last_name, name, phone, password_hash, profile_photo, is_migrated, migrated_at, created_at
		FROM users
		WHERE LOWER(email) = LOWER($1)
	`, email).Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Name, &u.Phone, &u.PasswordHash, &photo, &u.IsMigrated, &u.MigratedAt, &u.CreatedAt)
	if err != nil {
		return nil, classifyError("query user", err)
	}
	if photo != nil {
		u.ProfilePhoto = *photo
	}
	return &u, nil
}

// CreateUser inserts a new user record
func (d *DB) CreateUser(ctx context.Context, user *db.User) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var photo *string
	if user.ProfilePhoto != "" {
		photo = &user.ProfilePhoto
	}

	_, err := d.pool.Exec(ctx, `
		INSERT INTO users (id, email, first_name, last_name, name, phone, password_hash, profile_photo, is_migrated, migrated_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, user.ID, user.Email, user.FirstName, user.LastName, user.Name, user.Phone, user.PasswordHash, photo, user.IsMigrated, user.MigratedAt, user.CreatedAt.UTC())
	return classifyError("insert user", err)
}
