package model

import (
    "time"

    "gopkg.in/guregu/null.v4"
)

// User represents an application user record as stored in the `users`
// table.  The json tags are omitted here because these structs are
// primarily used internally by the repository layer.
//
// Fields:
//  ID               – primary key (uuid string).
//  Email            – unique, lower-cased email address.
//  PasswordHash     – bcrypt hashed password.
//  EmailConfirmedAt – when the address was confirmed (null until then).
//  IsActive         – whether the account is active.
//  CreatedAt        – timestamp of creation.
//  UpdatedAt        – timestamp of last update.
type User struct {
    ID               string    // users.id
    Email            string    // users.email
    PasswordHash     string    // users.password_hash
    EmailConfirmedAt null.Time // users.email_confirmed_at
    IsActive         bool      // users.is_active
    CreatedAt        time.Time // users.created_at
    UpdatedAt        time.Time // users.updated_at
}

// Profile mirrors the `profiles` table.  A profile row is keyed by the
// user id and may legitimately be missing for a freshly created user.
type Profile struct {
    ID       string `json:"id"`
    Email    string `json:"email,omitempty"`
    FullName string `json:"full_name,omitempty"`
}

// AuthUser is the user as seen through a session.  Identities counts the
// sign-in methods linked to the account; zero on a sign-up response means
// the address already belongs to another account.
type AuthUser struct {
    ID         string    `json:"id"`
    Email      string    `json:"email"`
    Identities int       `json:"identities"`
    CreatedAt  time.Time `json:"created_at"`
}

// Session is an authenticated session issued by the store.
type Session struct {
    AccessToken  string    `json:"access_token"`
    RefreshToken string    `json:"refresh_token"`
    ExpiresAt    time.Time `json:"expires_at"`
    User         AuthUser  `json:"user"`
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA-256 hash of the token value is stored.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    UserID    string     // refresh_tokens.user_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}
