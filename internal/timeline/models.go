package timeline

import (
	"time"

	"backend-tweeter/internal/comment"
	"backend-tweeter/internal/identity"
)

// Mode selects the feed variant: every post, or only posts authored by
// users the viewer follows.
type Mode string

const (
	ModeGlobal    Mode = "global"
	ModeFollowing Mode = "following"
)

type Post struct {
	ID         string               `json:"id"`
	Content    string               `json:"content"`
	AuthorID   string               `json:"author_id"`
	Author     identity.UserSummary `json:"author"`
	Likes      []string             `json:"-"`
	Liked      bool                 `json:"is_liked"`
	LikesCount int                  `json:"likes_count"`
	Comments   []comment.Comment    `json:"comments"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

type CreateRequest struct {
	Content string `json:"content"`
}
