package comment

import (
	"time"

	"backend-tweeter/internal/identity"
)

// Comment belongs to exactly one post; author and parent references are
// fixed at creation. Likes holds raw member ids, Liked/LikesCount are
// the viewer-relative annotations derived from it.
type Comment struct {
	ID         string               `json:"id"`
	PostID     string               `json:"post_id"`
	Content    string               `json:"content"`
	AuthorID   string               `json:"author_id"`
	Author     identity.UserSummary `json:"author"`
	Likes      []string             `json:"-"`
	Liked      bool                 `json:"is_liked"`
	LikesCount int                  `json:"likes_count"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

type CreateRequest struct {
	PostID  string `json:"post_id"`
	Content string `json:"content"`
}

type UpdateRequest struct {
	Content string `json:"content"`
}
