package transform

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/jakechorley/legacy-migrator/pkg/core/model"
	"github.com/jakechorley/legacy-migrator/pkg/db"
)

var validate = validator.New()

// generatedPasswordBytes is the entropy of a placeholder credential
const generatedPasswordBytes = 24

// TransformUser maps a legacy user. Users without a usable email are rejected.
func (t *Transformer) TransformUser(user model.LegacyUser) (model.UserDraft, error) {
	email := db.NormalizeEmail(user.Email)
	if email == "" {
		return model.UserDraft{}, &TransformError{Kind: KindUser, LegacyID: user.ID, Err: errors.New("email is required")}
	}
	if err := validate.Var(email, "email"); err != nil {
		return model.UserDraft{}, &TransformError{Kind: KindUser, LegacyID: user.ID, Err: fmt.Errorf("invalid email %q", email)}
	}

	firstName := strings.TrimSpace(user.FirstName)
	lastName := strings.TrimSpace(user.LastName)
	name := strings.TrimSpace(firstName + " " + lastName)
	if name == "" {
		name = email
	}

	createdAt, ok := parseTimestamp(user.ApprovedAt, t.opts.Location)
	if !ok {
		createdAt = t.now()
		if strings.TrimSpace(user.ApprovedAt) == "" {
			t.warn(KindUser, user.ID, "no approval date, using current time")
		} else {
			t.warn(KindUser, user.ID, "unparsable approval date, using current time",
				zap.String("approved_at", user.ApprovedAt))
		}
	}

	hash, err := t.credentialHash()
	if err != nil {
		return model.UserDraft{}, &TransformError{Kind: KindUser, LegacyID: user.ID, Err: err}
	}

	draft := model.UserDraft{
		LegacyID:     user.ID,
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		Name:         name,
		Phone:        strings.TrimSpace(user.Phone),
		PasswordHash: hash,
		CreatedAt:    createdAt,
		PhotoURL:     strings.TrimSpace(user.PhotoURL),
	}
	if t.opts.MarkAsMigrated {
		migratedAt := t.now()
		draft.Migrated = true
		draft.MigratedAt = &migratedAt
	}
	return draft, nil
}

// credentialHash hashes the configured default password, or a random one so migrated
// accounts cannot be logged into until a reset
func (t *Transformer) credentialHash() (string, error) {
	password := t.opts.DefaultPassword
	if password == "" {
		buf := make([]byte, generatedPasswordBytes)
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to generate credential: %w", err)
		}
		password = base64.RawURLEncoding.EncodeToString(buf)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), t.opts.PasswordHashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash credential: %w", err)
	}
	return string(hash), nil
}
