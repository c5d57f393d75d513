package profile

import (
	"time"

	"backend-tweeter/internal/identity"
	"backend-tweeter/internal/timeline"
)

// Profile is the aggregate returned for a user page: the user record,
// summaries of both sides of the follow graph, and the user's posts
// annotated for the viewer.
type Profile struct {
	ID             string                 `json:"id"`
	Username       string                 `json:"username"`
	Bio            string                 `json:"bio"`
	ProfilePhoto   string                 `json:"profile_photo"`
	Followers      []identity.UserSummary `json:"followers"`
	Following      []identity.UserSummary `json:"following"`
	FollowersCount int                    `json:"followers_count"`
	FollowingCount int                    `json:"following_count"`
	IsFollowing    bool                   `json:"is_following"`
	Posts          []timeline.Post        `json:"posts"`
	CreatedAt      time.Time              `json:"created_at"`
}

type EditRequest struct {
	Username string `json:"username"`
	Bio      string `json:"bio"`
}

type FollowResult struct {
	Following      bool `json:"following"`
	FollowersCount int  `json:"followers_count"`
	FollowingCount int  `json:"following_count"`
}
