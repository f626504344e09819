package credstore

import (
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gosimple/slug"
)

// MinPasswordLength is the shortest password accepted on create and change
const MinPasswordLength = 8

var usernamePattern = regexp.MustCompile(`^[a-z0-9_.-]+$`)

// NewAccount is the input to Manager.Create
type NewAccount struct {
	Username string         `json:"username"`
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Level    *int64         `json:"level,omitempty"`
	Verified bool           `json:"verified,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// Slugify lowercases s, keeps "." and "-" as written and collapses every
// other run outside [a-z0-9] into "_".
func Slugify(s string) string {
	s = strings.ToLower(s)

	var b strings.Builder
	start := 0
	for i, r := range s {
		if r != '.' && r != '-' {
			continue
		}
		b.WriteString(slugWord(s[start:i]))
		b.WriteRune(r)
		start = i + 1
	}
	b.WriteString(slugWord(s[start:]))

	return strings.Trim(b.String(), "._-")
}

func slugWord(s string) string {
	return strings.ReplaceAll(slug.Make(s), "-", "_")
}

// NormalizeEmail lowercases the address
func NormalizeEmail(email string) string {
	return strings.ToLower(email)
}

// normalized is a NewAccount that passed validation
type normalized struct {
	username string
	email    string
	password string
	level    int32
	verified bool
	data     map[string]any
}

// validate checks the input in a fixed order so the first failure is the one
// reported: username, email, password, level.
func (n NewAccount) validate() (*normalized, error) {
	if err := validation.Validate(n.Username, validation.Required); err != nil {
		return nil, validationError("no username specified", TextCodeInvalidUsername)
	}

	username := Slugify(n.Username)
	if err := validation.Validate(username,
		validation.Required,
		validation.Match(usernamePattern),
	); err != nil {
		return nil, validationError("no username specified", TextCodeInvalidUsername).
			WithMetadata(map[string]any{"username": n.Username})
	}

	if err := validation.Validate(n.Email, validation.Required); err != nil {
		return nil, validationError("no email specified", TextCodeInvalidEmail)
	}

	if err := validatePassword(n.Password); err != nil {
		return nil, err
	}

	return &normalized{
		username: username,
		email:    NormalizeEmail(n.Email),
		password: n.Password,
		level:    coerceLevel(n.Level),
		verified: n.Verified,
		data:     n.Data,
	}, nil
}

func validatePassword(password string) error {
	if err := validation.Validate(password,
		validation.Required,
		validation.RuneLength(MinPasswordLength, 0),
	); err != nil {
		return validationError("no valid password specified", TextCodeInvalidPassword)
	}
	return nil
}

// coerceLevel truncates to a signed 32 bit integer, defaulting to zero.
func coerceLevel(level *int64) int32 {
	if level == nil {
		return 0
	}
	return int32(*level)
}
