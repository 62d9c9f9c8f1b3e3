package model

import "time"

// Account mirrors a row of the `accounts` table.
//
// Fields:
//  ID           – primary key identifier of the account.
//  Username     – unique login name.
//  Email        – unique email address.
//  PasswordHash – bcrypt hash; never serialized.
//  IsStaff, IsSuperuser – independent privilege flags; either grants admin access.
//  IsActive     – inactive accounts cannot log in and never verify.
//  DateJoined   – registration timestamp (UTC).
type Account struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	IsStaff      bool      `db:"is_staff" json:"is_staff"`
	IsSuperuser  bool      `db:"is_superuser" json:"is_superuser"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	DateJoined   time.Time `db:"date_joined" json:"date_joined"`
}

// IsAdmin reports whether either privilege flag is set.
func (a Account) IsAdmin() bool { return a.IsStaff || a.IsSuperuser }

// Profile is the public view of an account returned by register, login,
// profile and update.
type Profile struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	IsStaff     bool      `json:"is_staff"`
	IsSuperuser bool      `json:"is_superuser"`
	IsActive    bool      `json:"is_active"`
	DateJoined  time.Time `json:"date_joined"`
}

// Profile strips the password hash.
func (a Account) Profile() Profile {
	return Profile{
		ID:          a.ID,
		Username:    a.Username,
		Email:       a.Email,
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		IsStaff:     a.IsStaff,
		IsSuperuser: a.IsSuperuser,
		IsActive:    a.IsActive,
		DateJoined:  a.DateJoined,
	}
}

// Principal is the identity summary returned by verify and attached to
// requests admitted by the listings gateway.
type Principal struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	IsStaff     bool   `json:"is_staff"`
	IsSuperuser bool   `json:"is_superuser"`
	IsActive    bool   `json:"is_active"`
}

// IsAdmin reports whether the principal may call admin-gated operations.
func (p Principal) IsAdmin() bool { return p.IsStaff || p.IsSuperuser }

// Principal builds the verify summary for a.
func (a Account) Principal() Principal {
	return Principal{
		ID:          a.ID,
		Username:    a.Username,
		Email:       a.Email,
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		IsStaff:     a.IsStaff,
		IsSuperuser: a.IsSuperuser,
		IsActive:    a.IsActive,
	}
}

// AuthToken models a row of `auth_tokens`. Only the SHA-256 hex digest of
// the token is stored; one row per account.
type AuthToken struct {
	TokenHash string    `db:"token_hash"`
	AccountID int64     `db:"account_id"`
	CreatedAt time.Time `db:"created_at"`
}

// ProfileUpdate carries the optional fields of a profile update. Nil
// pointers leave the stored value untouched.
type ProfileUpdate struct {
	Email     *string
	FirstName *string
	LastName  *string
}

// Empty reports whether no field was supplied.
func (u ProfileUpdate) Empty() bool {
	return u.Email == nil && u.FirstName == nil && u.LastName == nil
}

// VerifyResult is the body of the verify endpoint. User is set only when
// Valid is true; Error only when it is false.
type VerifyResult struct {
	Valid bool       `json:"valid"`
	User  *Principal `json:"user,omitempty"`
	Error string     `json:"error,omitempty"`
}
