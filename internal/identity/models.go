package identity

import "time"

// User is the local record for an externally authenticated identity.
// Followers and Following hold user ids; counts and viewer-relative
// flags are derived at read time.
type User struct {
	ID           string    `json:"id"`
	ExternalID   string    `json:"external_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	Bio          string    `json:"bio,omitempty"`
	ProfilePhoto string    `json:"profile_photo,omitempty"`
	Followers    []string  `json:"-"`
	Following    []string  `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ExternalIdentity is what the identity provider asserts about the
// caller, either inside a session token or in a webhook event.
type ExternalIdentity struct {
	ID        string
	Username  string
	Email     string
	FirstName string
	LastName  string
	AvatarURL string
}

type UserSummary struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	ProfilePhoto string `json:"profile_photo,omitempty"`
}
