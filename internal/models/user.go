package models

import "strings"

// PlaceholderAuthor is shown when the backend gives neither a profile name nor an email.
const PlaceholderAuthor = "Utilisateur"

// ProfileRecord is the optional profile attached to a user record.
type ProfileRecord struct {
	FullName string `json:"fullName"`
}

// AuthorRecord is the user info the backend embeds in posts and comments.
type AuthorRecord struct {
	ID      string         `json:"id"`
	Email   string         `json:"email"`
	Profile *ProfileRecord `json:"profile,omitempty"`
}

// DisplayName resolves the author name: profile full name, then the email
// local part, then PlaceholderAuthor.
func (a *AuthorRecord) DisplayName() string {
	if a == nil {
		return PlaceholderAuthor
	}
	if a.Profile != nil {
		if name := strings.TrimSpace(a.Profile.FullName); name != "" {
			return name
		}
	}
	if local, _, _ := strings.Cut(strings.TrimSpace(a.Email), "@"); local != "" {
		return local
	}
	return PlaceholderAuthor
}
