// Package domain contains core domain types for the Celiscope application.
package domain

import (
	"time"
)

// DefaultUserName is used in prompts when a user has no first name.
const DefaultUserName = "Пользователь"

// User represents a Telegram user of the mini-app.
type User struct {
	ID         string    `json:"id"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	Username   string    `json:"username"`
	PhotoURL   string    `json:"photoUrl"`
	InviteCode string    `json:"inviteCode"`
	ChatID     string    `json:"chatId"`
	WeekReport string    `json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// InviteCodeFor returns the invite code assigned to a new user.
func InviteCodeFor(userID string) string {
	return "invite_" + userID
}

// DisplayName returns the first name or the generic fallback.
func (u *User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return DefaultUserName
}

// HasChat returns true if the bot can message the user.
func (u *User) HasChat() bool {
	return u.ChatID != ""
}

// Profile is the client-safe projection of a User. It is also what access
// and refresh tokens carry.
type Profile struct {
	ID         string `json:"id"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName,omitempty"`
	Username   string `json:"username,omitempty"`
	PhotoURL   string `json:"photoUrl,omitempty"`
	InviteCode string `json:"inviteCode"`
	ChatID     string `json:"chatId,omitempty"`
}

// Profile returns the client-safe projection of u.
func (u *User) Profile() Profile {
	return Profile{
		ID:         u.ID,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Username:   u.Username,
		PhotoURL:   u.PhotoURL,
		InviteCode: u.InviteCode,
		ChatID:     u.ChatID,
	}
}

// RefreshToken is a persisted refresh token issued to a user.
type RefreshToken struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
