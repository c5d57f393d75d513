package engagement

import (
	"context"
	"errors"

	"backend-tweeter/internal/db"
	"backend-tweeter/internal/shared/apperr"

	"github.com/jackc/pgx/v5"
)

// Target names a likeable table. The table name is interpolated into
// SQL, so only the two known values are accepted.
type Target string

const (
	TargetPost    Target = "posts"
	TargetComment Target = "comments"
)

type Result struct {
	Liked      bool `json:"liked"`
	LikesCount int  `json:"likes_count"`
}

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

// Toggle flips the viewer's membership in the target's likes set. The
// whole toggle is one UPDATE so concurrent toggles by different viewers
// cannot lose each other's writes.
func (s *Service) Toggle(ctx context.Context, target Target, targetID, viewerID string) (Result, error) {
	if viewerID == "" {
		return Result{}, apperr.ErrUnauthorized
	}
	if target != TargetPost && target != TargetComment {
		return Result{}, apperr.ErrInvalid
	}

	row := s.db.QueryRow(ctx, `
		UPDATE `+string(target)+`
		SET likes = CASE WHEN $2 = ANY(likes) THEN array_remove(likes, $2) ELSE array_append(likes, $2) END,
		    updated_at = now()
		WHERE id=$1
		RETURNING $2 = ANY(likes), cardinality(likes)
	`, targetID, viewerID)

	var res Result
	if err := row.Scan(&res.Liked, &res.LikesCount); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Result{}, apperr.ErrNotFound
		}
		return Result{}, err
	}
	return res, nil
}

// LikedBy reports set membership for read-side annotation.
func LikedBy(likes []string, viewerID string) bool {
	if viewerID == "" {
		return false
	}
	for _, id := range likes {
		if id == viewerID {
			return true
		}
	}
	return false
}
