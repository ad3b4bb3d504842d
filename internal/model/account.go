package model

import "time"

// AccountID uniquely identifies an account. Assigned by the store and never reused.
type AccountID int64

// Account is the stored credential record for a single user
type Account struct {
	ID          AccountID
	Username    string
	SecretHash  string // bcrypt hash of the PIN, never leaves the authority
	Profile     Profile
	CreatedAt   time.Time
	LastLoginAt *time.Time // nil until the first successful login
	Active      bool
}

// Profile is the schema-free document attached to an account.
// Only the profile-update operation mutates it.
type Profile map[string]any

// Section returns the named top-level object of the document, or nil
func (p Profile) Section(name string) map[string]any {
	section, _ := p[name].(map[string]any)
	return section
}

// DefaultProfile builds the document given to every new account
func DefaultProfile(username string, now time.Time) Profile {
	stamp := now.UTC().Format(time.RFC3339)
	return Profile{
		"profile": map[string]any{
			"displayName": username,
			"avatar":      nil,
			"level":       1,
			"joinDate":    stamp,
		},
		"projects": map[string]any{
			"favorites": []any{},
			"accessed":  []any{},
		},
		"settings": map[string]any{
			"theme":         "retro-dark",
			"notifications": true,
		},
		"activity": map[string]any{
			"lastActive":  stamp,
			"totalLogins": 0,
		},
	}
}
