package credstore

import (
	"encoding/json"

	"github.com/uptrace/bun"
)

// Account is the stored credential record
type Account struct {
	bun.BaseModel     `bun:"table:accounts,alias:acc"`
	ID                int64   `bun:"id,pk,autoincrement" json:"id"`
	Username          string  `bun:"username,notnull,unique" json:"username"`
	Email             string  `bun:"email,notnull,unique" json:"email"`
	PasswordHash      string  `bun:"password_hash,notnull" json:"-"`
	Salt              string  `bun:"salt,notnull" json:"-"`
	VerificationToken *string `bun:"verification_token,unique" json:"-"`
	Verified          bool    `bun:"verified,notnull" json:"verified"`
	Level             int32   `bun:"level,notnull" json:"level"`
	Created           int64   `bun:"created" json:"created"`
	Updated           int64   `bun:"updated" json:"updated"`
	LastLogin         *int64  `bun:"lastlogin" json:"lastlogin"`
	Data              string  `bun:"data" json:"-"`
}

// Profile is the public projection of an account, with data decoded
type Profile struct {
	ID        int64          `json:"id"`
	Username  string         `json:"username"`
	Email     string         `json:"email"`
	Verified  bool           `json:"verified"`
	Level     int32          `json:"level"`
	Created   int64          `json:"created"`
	Updated   int64          `json:"updated"`
	LastLogin *int64         `json:"lastlogin"`
	Data      map[string]any `json:"data"`
}

// Registration is returned by Create. VerificationToken is nil when the
// account was created verified.
type Registration struct {
	ID                int64   `json:"id"`
	Username          string  `json:"username"`
	VerificationToken *string `json:"verification_token"`
}

// LoginResult carries the lastlogin value from before the login being reported.
type LoginResult struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Level     int32  `json:"level"`
	LastLogin *int64 `json:"lastlogin"`
}

// Identity is the public identity returned after verify or password change
type Identity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Level    int32  `json:"level"`
}

// TokenGrant is returned by Reset and Reissue so the token can be delivered
type TokenGrant struct {
	ID                int64  `json:"id"`
	Username          string `json:"username"`
	Email             string `json:"email"`
	VerificationToken string `json:"verification_token"`
}

// IsVerified reports the VERIFIED state: no pending token and the flag set.
func (a *Account) IsVerified() bool {
	return a != nil && a.Verified && a.VerificationToken == nil
}

// Identity returns the public identity of the account
func (a *Account) Identity() *Identity {
	return &Identity{
		ID:       a.ID,
		Username: a.Username,
		Email:    a.Email,
		Level:    a.Level,
	}
}

// Profile decodes the data blob and returns the public projection
func (a *Account) Profile() (*Profile, error) {
	data, err := decodeData(a.Data)
	if err != nil {
		return nil, err
	}

	return &Profile{
		ID:        a.ID,
		Username:  a.Username,
		Email:     a.Email,
		Verified:  a.Verified,
		Level:     a.Level,
		Created:   a.Created,
		Updated:   a.Updated,
		LastLogin: a.LastLogin,
		Data:      data,
	}, nil
}

func encodeData(data map[string]any) (string, error) {
	if data == nil {
		return "{}", nil
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return "", serializationError(err, "unable to encode account data", TextCodeDataEncodeFailed)
	}
	return string(raw), nil
}

func decodeData(raw string) (map[string]any, error) {
	data := map[string]any{}
	if raw == "" {
		return data, nil
	}

	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, serializationError(err, "unable to decode account data", TextCodeDataDecodeFailed)
	}

	if data == nil {
		data = map[string]any{}
	}
	return data, nil
}
