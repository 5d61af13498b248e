package account

import "time"

// User is one stored identity and its credential. Password holds the encoded
// credential string (or a legacy plaintext value awaiting migration); it is
// never serialized outward.
type User struct {
	ID        string
	Username  string
	Email     string
	Password  string
	TeamID    *string
	GroupID   *string
	OrgID     *string
	CreatedAt time.Time
}

// RegisterInput is the untrusted registration payload.
type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// LoginInput is the untrusted login payload.
type LoginInput struct {
	Username string
	Password string
}
