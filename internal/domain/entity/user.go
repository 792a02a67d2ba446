// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Username length bounds, counted in characters after trimming.
const (
	UsernameMinLength = 3
	UsernameMaxLength = 50
)

// User is the only entity of the account service: a registered "account".
type User struct {
	ID                  string     // Opaque identifier generated by the store.
	Username            string     // Unique display handle, 3-50 characters.
	Email               string     // Unique, lowercased address; also a login identifier.
	Phone               string     // Unique digit string; also a login identifier.
	PasswordHash        string     // Password verifier. Never the plaintext, never serialized.
	ProfileImageURL     string     // Optional profile picture location.
	JoinedAt            time.Time  // Set once when the account is created.
	Verified            bool       // True once the email address has been confirmed.
	VerificationToken   string     // Present only while the account is unverified.
	ResetToken          string     // Present only while a password reset is pending.
	ResetTokenExpiresAt *time.Time // Set together with ResetToken.
}

// HasPendingReset reports whether the user has a reset token that is still valid at now.
func (u *User) HasPendingReset(now time.Time) bool {
	return u.ResetToken != "" && u.ResetTokenExpiresAt != nil && u.ResetTokenExpiresAt.After(now)
}

// Apply copies the provided patch fields onto the user. It mirrors what the stores persist.
func (u *User) Apply(patch *UserPatch) {
	if patch == nil {
		return
	}
	if patch.Username != nil {
		u.Username = *patch.Username
	}
	if patch.Email != nil {
		u.Email = *patch.Email
	}
	if patch.Phone != nil {
		u.Phone = *patch.Phone
	}
	if patch.ProfileImageURL != nil {
		u.ProfileImageURL = *patch.ProfileImageURL
	}
	if patch.PasswordHash != nil {
		u.PasswordHash = *patch.PasswordHash
	}
	if patch.Verified != nil {
		u.Verified = *patch.Verified
	}
	if patch.VerificationToken != nil {
		u.VerificationToken = *patch.VerificationToken
	}
	if patch.ResetToken != nil {
		u.ResetToken = *patch.ResetToken
		if *patch.ResetToken == "" {
			u.ResetTokenExpiresAt = nil
		} else if patch.ResetTokenExpiresAt != nil {
			expiresAt := *patch.ResetTokenExpiresAt
			u.ResetTokenExpiresAt = &expiresAt
		}
	}
}

// UserPatch describes a partial update. Nil fields are left untouched.
// For VerificationToken and ResetToken an empty string clears the value;
// clearing ResetToken also clears ResetTokenExpiresAt.
type UserPatch struct {
	Username            *string
	Email               *string
	Phone               *string
	ProfileImageURL     *string
	PasswordHash        *string
	Verified            *bool
	VerificationToken   *string
	ResetToken          *string
	ResetTokenExpiresAt *time.Time
}

// IsEmpty reports whether the patch changes nothing.
func (p *UserPatch) IsEmpty() bool {
	return p == nil || (p.Username == nil && p.Email == nil && p.Phone == nil &&
		p.ProfileImageURL == nil && p.PasswordHash == nil && p.Verified == nil &&
		p.VerificationToken == nil && p.ResetToken == nil && p.ResetTokenExpiresAt == nil)
}

// UserField names a user attribute that can be looked up by exact value.
type UserField string

const (
	UserFieldUsername          UserField = "username"
	UserFieldEmail             UserField = "email"
	UserFieldPhone             UserField = "phone"
	UserFieldVerificationToken UserField = "verification_token"
	UserFieldResetToken        UserField = "reset_token"
)

// IsValid reports whether f is a known lookup field.
func (f UserField) IsValid() bool {
	switch f {
	case UserFieldUsername, UserFieldEmail, UserFieldPhone, UserFieldVerificationToken, UserFieldResetToken:
		return true
	default:
		return false
	}
}

// String returns the field name.
func (f UserField) String() string {
	return string(f)
}

// NormalizeEmail trims and lowercases an address the way it is stored.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeIdentity trims a username or phone number.
func NormalizeIdentity(value string) string {
	return strings.TrimSpace(value)
}

// ValidUsername reports whether an already normalized username fits the length bounds.
func ValidUsername(username string) bool {
	n := utf8.RuneCountInString(username)
	return n >= UsernameMinLength && n <= UsernameMaxLength
}

// IdentifierField picks the lookup field for a login identifier: addresses contain '@', anything else is a phone.
func IdentifierField(identifier string) (UserField, string) {
	if strings.Contains(identifier, "@") {
		return UserFieldEmail, NormalizeEmail(identifier)
	}

	return UserFieldPhone, NormalizeIdentity(identifier)
}
