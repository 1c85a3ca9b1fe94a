package model

import "time"

// User represents a row in the `users` table.  It is the application's
// record of a person and points back to the identity issued by the auth
// provider through AuthID.  Role is nullable in the schema; an empty
// string means the column was never set and callers fall back to the
// student role.
//
// Fields:
//  ID        – primary key identifier of the user.
//  AuthID    – identity id issued by the auth provider (unique).
//  Email     – email address copied from the identity at registration.
//  Role      – student, teacher or admin (empty when unset).
//  CreatedAt – timestamp of creation.
//  UpdatedAt – timestamp of last update.
type User struct {
    ID        uint64    // users.id
    AuthID    string    // users.auth_id
    Email     string    // users.email
    Role      string    // users.role (nullable)
    CreatedAt time.Time // users.created_at
    UpdatedAt time.Time // users.updated_at
}

// Profile represents a row in the `profiles` table: the display data
// shown next to a user's name.  Each profile belongs to exactly one user.
//
// Fields:
//  UserID      – foreign key into users.id (primary key).
//  DisplayName – name shown in the UI.
//  PhotoURL    – reference to the profile picture (may be empty).
//  UpdatedAt   – timestamp of last update.
type Profile struct {
    UserID      uint64    // profiles.user_id
    DisplayName string    // profiles.display_name
    PhotoURL    string    // profiles.photo_url
    UpdatedAt   time.Time // profiles.updated_at
}

// Credential models an entry in the `credentials` table used by the
// local auth provider.  The hosted provider keeps its own credentials and
// never touches this table.
//
// Fields:
//  AuthID       – identity id handed out to the rest of the application.
//  Email        – unique, lower-cased login email.
//  PasswordHash – bcrypt hashed password.
//  CreatedAt    – timestamp of creation.
type Credential struct {
    AuthID       string    // credentials.auth_id
    Email        string    // credentials.email
    PasswordHash string    // credentials.password_hash
    CreatedAt    time.Time // credentials.created_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to an identity and contains metadata for expiry
// and revocation.  The plain token is not stored; only its
// SHA‑256 hash.
//
// Fields:
//  ID        – primary key identifier.
//  AuthID    – owner of the token.
//  TokenHash – SHA‑256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    AuthID    string     // refresh_tokens.auth_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}
