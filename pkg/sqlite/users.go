package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jakechorley/legacy-migrator/pkg/db"
)

// FindUserByEmail looks a user up by case-insensitive email
func (d *DB) FindUserByEmail(ctx context.Context, email string) (*db.User, error) {
	var u db.User
	var photo, migratedAt sql.NullString
	var createdAt string
	err := d.conn.QueryRowContext(ctx, `
		SELECT id, email, first_name, last_name, name, phone, password_hash, profile_photo, is_migrated, migrated_at, created_at
		FROM users
		WHERE LOWER(email) = LOWER(?)
	`, email).Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Name, &u.Phone, &u.PasswordHash, &photo, &u.IsMigrated, &migratedAt, &createdAt)
	if err != nil {
		return nil, classifyError("query user", err)
	}

	u.ProfilePhoto = photo.String
	if u.MigratedAt, err = parseNullableTime(migratedAt); err != nil {
		return nil, fmt.Errorf("failed to parse migrated_at for user %s: %w", u.ID, err)
	}
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at for user %s: %w", u.ID, err)
	}
	return &u, nil
}

// CreateUser inserts a new user record
func (d *DB) CreateUser(ctx context.Context, user *db.User) error {
	var photo *string
	if user.ProfilePhoto != "" {
		photo = &user.ProfilePhoto
	}

	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO users (id, email, first_name, last_name, name, phone, password_hash, profile_photo, is_migrated, migrated_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, user.ID, user.Email, user.FirstName, user.LastName, user.Name, user.Phone, user.PasswordHash, photo,
		user.IsMigrated, formatNullableTime(user.MigratedAt), formatTime(user.CreatedAt))
	return classifyError("insert user", err)
}
