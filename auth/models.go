package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the account model. The UUID primary key doubles as the stable
// public identifier; it is generated once and never reassigned.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"uuid,omitempty"`
	FirstName     string     `bun:"first_name" json:"first_name,omitempty"`
	LastName      string     `bun:"last_name" json:"last_name,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Username      string     `bun:"username,notnull,unique" json:"username,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	Address       string     `bun:"address" json:"address,omitempty"`
	PostalCode    int        `bun:"postal_code" json:"postal_code,omitempty"`
	City          string     `bun:"city" json:"city,omitempty"`
	Phone         string     `bun:"phone_number" json:"phone_number,omitempty"`
	Slug          string     `bun:"slug,unique,nullzero" json:"slug,omitempty"`
	IsActive      bool       `bun:"is_active" json:"is_active,omitempty"`
	EmailVerified bool       `bun:"is_email_verified" json:"is_email_verified,omitempty"`
	IsStaff       bool       `bun:"is_staff" json:"is_staff,omitempty"`
	IsSuperuser   bool       `bun:"is_superuser" json:"is_superuser,omitempty"`
	LastLoginAt   *time.Time `bun:"last_login_at,nullzero" json:"last_login_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// HasUsablePassword reports whether the account has a credential that can
// be matched on login. Accounts created without a password carry an
// unusable sentinel hash instead of an empty string.
func (u *User) HasUsablePassword() bool {
	return u.PasswordHash != "" && !strings.HasPrefix(u.PasswordHash, unusablePasswordPrefix)
}

// HasPerm is the whole permission model: staff can manage content, nobody
// else can. Superusers are always staff, enforced at creation.
func (u *User) HasPerm() bool {
	return u.IsStaff
}

// Profile is the account summary exposed to authenticated callers. It
// never includes the password hash.
type Profile struct {
	UUID       uuid.UUID  `json:"uuid"`
	FirstName  string     `json:"firstname,omitempty"`
	LastName   string     `json:"lastname,omitempty"`
	Email      string     `json:"email"`
	Username   string     `json:"username"`
	Slug       string     `json:"slug,omitempty"`
	Address    string     `json:"address,omitempty"`
	City       string     `json:"city,omitempty"`
	PostalCode int        `json:"postal_code,omitempty"`
	IsStaff    bool       `json:"is_staff,omitempty"`
	CreatedAt  *time.Time `json:"date_joined,omitempty"`
}

// Summary builds the outward facing view of the account.
func (u *User) Summary() Profile {
	return Profile{
		UUID:       u.ID,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Email:      u.Email,
		Username:   u.Username,
		Slug:       u.Slug,
		Address:    u.Address,
		City:       u.City,
		PostalCode: u.PostalCode,
		IsStaff:    u.IsStaff,
		CreatedAt:  u.CreatedAt,
	}
}
