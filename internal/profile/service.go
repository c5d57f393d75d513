package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"backend-tweeter/internal/db"
	"backend-tweeter/internal/identity"
	"backend-tweeter/internal/shared/apperr"
	"backend-tweeter/internal/timeline"

	"github.com/jackc/pgx/v5"
)

const maxBioLen = 160

type Service struct {
	db       db.Pool
	posts    *timeline.Service
	provider identity.Provider
}

func NewService(db db.Pool, posts *timeline.Service, provider identity.Provider) *Service {
	return &Service{db: db, posts: posts, provider: provider}
}

func (s *Service) Get(ctx context.Context, username, viewerID string) (Profile, error) {
	var (
		p         Profile
		followers []string
		following []string
	)
	row := s.db.QueryRow(ctx, `
		SELECT id, username, COALESCE(bio,''), COALESCE(profile_photo,''), followers, following, created_at
		FROM users
		WHERE username=$1
	`, username)
	err := row.Scan(&p.ID, &p.Username, &p.Bio, &p.ProfilePhoto, &followers, &following, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, apperr.ErrNotFound
		}
		return Profile{}, err
	}

	p.FollowersCount = len(followers)
	p.FollowingCount = len(following)
	p.IsFollowing = viewerID != "" && viewerID != p.ID && contains(followers, viewerID)

	if p.Followers, err = s.summaries(ctx, followers); err != nil {
		return Profile{}, err
	}
	if p.Following, err = s.summaries(ctx, following); err != nil {
		return Profile{}, err
	}

	if p.Posts, err = s.posts.ByAuthor(ctx, p.ID, viewerID); err != nil {
		return Profile{}, err
	}
	if p.Posts == nil {
		p.Posts = []timeline.Post{}
	}
	return p, nil
}

// Follow toggles the viewer's follow edge to the named user. Both
// sides of the edge change inside one transaction.
func (s *Service) Follow(ctx context.Context, username, viewerID string) (FollowResult, error) {
	if viewerID == "" {
		return FollowResult{}, apperr.ErrUnauthorized
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return FollowResult{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		targetID  string
		following bool
	)
	row := tx.QueryRow(ctx, `SELECT id, $2 = ANY(followers) FROM users WHERE username=$1`, username, viewerID)
	if err := row.Scan(&targetID, &following); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FollowResult{}, apperr.ErrNotFound
		}
		return FollowResult{}, err
	}
	if targetID == viewerID {
		return FollowResult{}, apperr.ErrInvalid
	}

	res := FollowResult{Following: !following}
	if following {
		err = tx.QueryRow(ctx, `
			UPDATE users SET followers = array_remove(followers,$2), updated_at = now()
			WHERE id=$1
			RETURNING cardinality(followers)
		`, targetID, viewerID).Scan(&res.FollowersCount)
		if err != nil {
			return FollowResult{}, err
		}
		err = tx.QueryRow(ctx, `
			UPDATE users SET following = array_remove(following,$2), updated_at = now()
			WHERE id=$1
			RETURNING cardinality(following)
		`, viewerID, targetID).Scan(&res.FollowingCount)
		if err != nil {
			return FollowResult{}, err
		}
	} else {
		err = tx.QueryRow(ctx, `
			UPDATE users SET followers = array_append(followers,$2), updated_at = now()
			WHERE id=$1
			RETURNING cardinality(followers)
		`, targetID, viewerID).Scan(&res.FollowersCount)
		if err != nil {
			return FollowResult{}, err
		}
		err = tx.QueryRow(ctx, `
			UPDATE users SET following = array_append(following,$2), updated_at = now()
			WHERE id=$1
			RETURNING cardinality(following)
		`, viewerID, targetID).Scan(&res.FollowingCount)
		if err != nil {
			return FollowResult{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return FollowResult{}, err
	}
	return res, nil
}

// Edit updates the viewer's username and bio. The local row and the
// identity-provider record change together: the provider call happens
// before commit, so a provider failure rolls the local change back.
func (s *Service) Edit(ctx context.Context, viewer identity.User, req EditRequest) (identity.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		username = viewer.Username
	}
	if len(req.Bio) > maxBioLen {
		return identity.User{}, apperr.ErrInvalid
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return identity.User{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if username != viewer.Username {
		var taken bool
		row := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username=$1 AND id <> $2)`, username, viewer.ID)
		if err := row.Scan(&taken); err != nil {
			return identity.User{}, err
		}
		if taken {
			return identity.User{}, apperr.ErrConflict
		}
	}

	// An empty bio means "unchanged", so a username-only edit cannot
	// wipe the stored bio.
	_, err = tx.Exec(ctx, `
		UPDATE users SET username=$2, bio = COALESCE(NULLIF($3,''), bio), updated_at = now()
		WHERE id=$1
	`, viewer.ID, username, req.Bio)
	if err != nil {
		return identity.User{}, err
	}

	if s.provider != nil {
		patch := identity.ProfilePatch{Bio: req.Bio}
		if username != viewer.Username {
			patch.Username = username
		}
		if err := s.provider.UpdateProfile(ctx, viewer.ExternalID, patch); err != nil {
			return identity.User{}, fmt.Errorf("identity provider: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return identity.User{}, err
	}

	updated := viewer
	updated.Username = username
	if req.Bio != "" {
		updated.Bio = req.Bio
	}
	return updated, nil
}

// likeEscaper quotes LIKE metacharacters so a query of "%" or "_"
// matches the literal character, not every user.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search matches usernames by case-insensitive substring. An empty
// query returns an empty list rather than every user.
func (s *Service) Search(ctx context.Context, query string) ([]identity.UserSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []identity.UserSummary{}, nil
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, username, COALESCE(profile_photo,'')
		FROM users
		WHERE username ILIKE '%' || $1 || '%'
		ORDER BY username
		LIMIT 10
	`, likeEscaper.Replace(query))
	if err != nil {
		return nil, err
	}
	return collectSummaries(rows)
}

func (s *Service) summaries(ctx context.Context, ids []string) ([]identity.UserSummary, error) {
	if len(ids) == 0 {
		return []identity.UserSummary{}, nil
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, username, COALESCE(profile_photo,'')
		FROM users
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	return collectSummaries(rows)
}

func collectSummaries(rows pgx.Rows) ([]identity.UserSummary, error) {
	defer rows.Close()

	summaries := []identity.UserSummary{}
	for rows.Next() {
		var s identity.UserSummary
		if err := rows.Scan(&s.ID, &s.Username, &s.ProfilePhoto); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func contains(set []string, id string) bool {
	for _, member := range set {
		if member == id {
			return true
		}
	}
	return false
}
