package domain

import (
	"strings"

	"github.com/sultanmr/aws-grocery/internal/idset"
)

// DefaultAvatar is the sentinel avatar reference every new user starts with.
const DefaultAvatar = "user_default.png"

// AvatarRoute is the public path prefix avatars are served from.
const AvatarRoute = "/api/me/avatar/"

// User is the account state owned by this service.
type User struct {
	ID            int64     `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	Favorites     idset.Set `json:"fav_products"`
	Purchased     idset.Set `json:"purchased_products"`
	Avatar        string    `json:"-"`
	BasketVersion int64     `json:"basket_version"`
}

// HasDefaultAvatar reports whether the user still carries the sentinel avatar.
func (u *User) HasDefaultAvatar() bool {
	return u.Avatar == "" || u.Avatar == DefaultAvatar
}

// AvatarURL returns the API path the user's avatar is served from. Remote
// references ("avatars/<name>") and legacy full object URLs both reduce to
// their final path segment.
func (u *User) AvatarURL() string {
	if u.HasDefaultAvatar() {
		return AvatarRoute + DefaultAvatar
	}
	name := u.Avatar
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		return AvatarRoute + DefaultAvatar
	}
	return AvatarRoute + name
}

// UserSummary is the public listing view of a user.
type UserSummary struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar"`
}

// Summary returns the listing view of u.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, Email: u.Email, Avatar: u.AvatarURL()}
}

// Profile is the full account view returned to the owning user.
type Profile struct {
	Username  string       `json:"username"`
	Email     string       `json:"email"`
	Favorites idset.Set    `json:"fav_products"`
	Basket    []BasketItem `json:"basket"`
	Purchased idset.Set    `json:"purchased_products"`
	Avatar    string       `json:"avatar"`
}
