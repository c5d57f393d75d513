package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"backend-tweeter/internal/db"
	"backend-tweeter/internal/shared/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, external_id, username, COALESCE(email,''), COALESCE(bio,''), COALESCE(profile_photo,''), followers, following, created_at, updated_at`

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

// Resolve maps an external identity to the local user, creating the
// record on first sight. Concurrent first contact is safe: the insert
// is keyed by external_id and a losing insert falls back to a re-read.
func (s *Service) Resolve(ctx context.Context, ext ExternalIdentity) (User, error) {
	if ext.ID == "" {
		return User{}, apperr.ErrUnauthorized
	}

	user, err := s.ByExternalID(ctx, ext.ID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return User{}, err
	}
	return s.create(ctx, ext)
}

// Apply handles identity-provider events (user.created / user.updated).
// Duplicate delivery converges on the same record.
func (s *Service) Apply(ctx context.Context, ext ExternalIdentity) (User, error) {
	if ext.ID == "" {
		return User{}, apperr.ErrInvalid
	}

	user, err := s.ByExternalID(ctx, ext.ID)
	if errors.Is(err, apperr.ErrNotFound) {
		return s.create(ctx, ext)
	}
	if err != nil {
		return User{}, err
	}

	if ext.Username != "" && ext.Username != user.Username {
		user.Username, err = s.uniqueUsername(ctx, ext.Username, ext.ID)
		if err != nil {
			return User{}, err
		}
	}
	if ext.Email != "" {
		user.Email = ext.Email
	}
	if ext.AvatarURL != "" {
		user.ProfilePhoto = ext.AvatarURL
	}

	_, err = s.db.Exec(ctx, `
		UPDATE users SET username=$2, email=NULLIF($3,''), profile_photo=NULLIF($4,''), updated_at=now()
		WHERE external_id=$1
	`, ext.ID, user.Username, user.Email, user.ProfilePhoto)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *Service) ByExternalID(ctx context.Context, externalID string) (User, error) {
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE external_id=$1`, externalID)
	return scanUser(row)
}

func (s *Service) create(ctx context.Context, ext ExternalIdentity) (User, error) {
	username, err := s.uniqueUsername(ctx, fallbackUsername(ext), ext.ID)
	if err != nil {
		return User{}, err
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO users (id, external_id, username, email, profile_photo)
		VALUES ($1,$2,$3, NULLIF($4,''), NULLIF($5,''))
		ON CONFLICT (external_id) DO NOTHING
	`, uuid.NewString(), ext.ID, username, ext.Email, ext.AvatarURL)
	if err != nil {
		return User{}, err
	}

	// Either our insert won or a concurrent request created the row;
	// the re-read returns the single record for this external id.
	return s.ByExternalID(ctx, ext.ID)
}

// uniqueUsername appends an incrementing numeric suffix until the name
// is free. The caller's own row (matched by external id) does not count
// as a collision, so renames to unchanged values are no-ops.
func (s *Service) uniqueUsername(ctx context.Context, base, externalID string) (string, error) {
	username := base
	for counter := 1; ; counter++ {
		var taken bool
		err := s.db.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM users WHERE username=$1 AND external_id <> $2)
		`, username, externalID).Scan(&taken)
		if err != nil {
			return "", err
		}
		if !taken {
			return username, nil
		}
		username = fmt.Sprintf("%s%d", base, counter)
	}
}

func fallbackUsername(ext ExternalIdentity) string {
	if ext.Username != "" {
		return ext.Username
	}
	if name := strings.TrimSpace(ext.FirstName + ext.LastName); name != "" {
		return name
	}
	id := ext.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return "user_" + id
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.ExternalID, &u.Username, &u.Email, &u.Bio, &u.ProfilePhoto,
		&u.Followers, &u.Following, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, apperr.ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}
