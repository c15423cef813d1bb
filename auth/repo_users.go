package auth

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
	"github.com/uptrace/bun"

	sluggen "github.com/Endy02/microservice/slug"
)

var ResetUserPasswordSQL = `UPDATE "users" AS "usr"
SET
	"is_email_verified" = TRUE,
	"password_hash" = ?
WHERE (
	"usr"."id" = ?
) RETURNING *;`

// NewAccount carries the attributes needed to create an account.
type NewAccount struct {
	Email      string
	Username   string
	Password   string
	FirstName  string
	LastName   string
	Phone      string
	Address    string
	City       string
	PostalCode int
	// UseHashid derives the account UUID deterministically from the email
	// instead of generating a random one.
	UseHashid bool
}

type Users interface {
	repository.Repository[*User]

	CreateAccount(ctx context.Context, input NewAccount) (*User, error)
	CreateAccountTx(ctx context.Context, tx bun.IDB, input NewAccount) (*User, error)
	CreateSuperuser(ctx context.Context, email, username, password string) (*User, error)
	CreateSuperuserTx(ctx context.Context, tx bun.IDB, email, username, password string) (*User, error)

	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	GetByUUID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByUUIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error)

	Save(ctx context.Context, user *User) (*User, error)
	SaveTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)

	TrackSuccessfulLogin(ctx context.Context, user *User) error
	TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User) error

	ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error
}

type users struct {
	repository.Repository[*User]
	db    *bun.DB
	slugs *sluggen.Generator
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

type UsersOption func(*users)

func NewUsersRepository(db *bun.DB, opts ...UsersOption) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	repoUsers := &users{
		Repository: repo,
		db:         db,
		slugs:      sluggen.NewGenerator(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repoUsers)
		}
	}

	return repoUsers
}

// WithUsersSlugGenerator overrides the slug generator, mostly for tests.
func WithUsersSlugGenerator(g *sluggen.Generator) UsersOption {
	return func(u *users) {
		if g != nil {
			u.slugs = g
		}
	}
}

func (a *users) CreateAccount(ctx context.Context, input NewAccount) (*User, error) {
	return a.CreateAccountTx(ctx, a.db, input)
}

func (a *users) CreateAccountTx(ctx context.Context, tx bun.IDB, input NewAccount) (*User, error) {
	user, err := buildAccount(input)
	if err != nil {
		return nil, err
	}

	// Self registered accounts stay inactive until the activation link is
	// followed. The superuser path below is the only one that flips these.
	user.IsActive = false
	user.EmailVerified = false

	return a.createTx(ctx, tx, user)
}

func (a *users) CreateSuperuser(ctx context.Context, email, username, password string) (*User, error) {
	return a.CreateSuperuserTx(ctx, a.db, email, username, password)
}

func (a *users) CreateSuperuserTx(ctx context.Context, tx bun.IDB, email, username, password string) (*User, error) {
	if password == "" {
		return nil, goerrors.New("superuser accounts require a password", goerrors.CategoryValidation).
			WithTextCode("EMPTY_PASSWORD")
	}

	user, err := buildAccount(NewAccount{
		Email:    email,
		Username: username,
		Password: password,
	})
	if err != nil {
		return nil, err
	}

	user.IsActive = true
	user.EmailVerified = true
	user.IsStaff = true
	user.IsSuperuser = true

	return a.createTx(ctx, tx, user)
}

func (a *users) createTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	prepareUserDefaults(user)

	if err := a.ensureSlugTx(ctx, tx, user); err != nil {
		return nil, err
	}

	record, err := a.Repository.CreateTx(ctx, tx, user)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
	}

	return record, nil
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("lower(?TableAlias.email) = ?", normalizeEmail(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"email": email})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) GetByUUID(ctx context.Context, id uuid.UUID) (*User, error) {
	return a.GetByUUIDTx(ctx, a.db, id)
}

func (a *users) GetByUUIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error) {
	record, err := a.Repository.GetByIDTx(ctx, tx, id.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"id": id.String()})
		}
		return nil, err
	}

	return record, nil
}

// Save persists mutations on an existing record. Slug assignment runs
// right before the write and is a no-op once the slug is set, so the value
// never changes after its first save even if the username does.
func (a *users) Save(ctx context.Context, user *User) (*User, error) {
	return a.SaveTx(ctx, a.db, user)
}

func (a *users) SaveTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	if err := a.ensureSlugTx(ctx, tx, user); err != nil {
		return nil, err
	}

	now := time.Now()
	user.UpdatedAt = &now

	return a.Repository.UpdateTx(ctx, tx, user, repository.UpdateByID(user.ID.String()))
}

func (a *users) TrackSuccessfulLogin(ctx context.Context, user *User) error {
	return a.TrackSuccessfulLoginTx(ctx, a.db, user)
}

func (a *users) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User) error {
	loggedInAt := time.Now()
	_, err := tx.NewUpdate().
		Model((*User)(nil)).
		Set("last_login_at = ?", loggedInAt).
		Where("?TableAlias.id = ?", user.ID).
		Exec(ctx)

	if err == nil {
		user.LastLoginAt = &loggedInAt
	}

	return err
}

func (a *users) ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return a.ResetPasswordTx(ctx, a.db, id, passwordHash)
}

func (a *users) ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	res, err := a.Repository.RawTx(ctx, tx, ResetUserPasswordSQL, passwordHash, id.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}

	return nil
}

// ensureSlugTx assigns a unique slug derived from the username the first
// time a record is persisted. Once set the slug is immutable.
func (a *users) ensureSlugTx(ctx context.Context, tx bun.IDB, user *User) error {
	if user.Slug != "" {
		return nil
	}

	generated, err := a.slugs.Generate(ctx, user.Username, func(ctx context.Context, candidate string) (bool, error) {
		count, err := tx.NewSelect().
			Model((*User)(nil)).
			Where("?TableAlias.slug = ?", candidate).
			Count(ctx)
		if err != nil {
			return false, err
		}
		return count > 0, nil
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate user slug")
	}

	user.Slug = generated
	return nil
}

func buildAccount(input NewAccount) (*User, error) {
	email := normalizeEmail(input.Email)

	if err := validation.Validate(email, validation.Required, is.Email); err != nil {
		return nil, goerrors.New("a valid email is required to register", goerrors.CategoryValidation).
			WithTextCode("INVALID_EMAIL").
			WithMetadata(map[string]any{"email": input.Email})
	}

	user := &User{
		Email:      email,
		Username:   getUsername(input.Username, email),
		FirstName:  input.FirstName,
		LastName:   input.LastName,
		Address:    input.Address,
		City:       input.City,
		PostalCode: input.PostalCode,
	}

	if input.Phone != "" {
		phone, err := normalizePhone(input.Phone)
		if err != nil {
			return nil, goerrors.New("invalid phone number", goerrors.CategoryValidation).
				WithTextCode("INVALID_PHONE").
				WithMetadata(map[string]any{"phone": input.Phone})
		}
		user.Phone = phone
	}

	if input.Password == "" {
		user.PasswordHash = UnusablePassword()
	} else {
		hash, err := HashPassword(input.Password)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}
		user.PasswordHash = hash
	}

	if input.UseHashid {
		if id, err := hashid.NewUUID(email); err == nil {
			user.ID = id
		}
	}

	return user, nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	// Privilege invariant: superuser implies staff and active.
	if record.IsSuperuser {
		record.IsStaff = true
		record.IsActive = true
	}
}

func getUsername(username, email string) string {
	if username != "" {
		return username
	}

	if strings.Contains(email, "@") {
		username = strings.Split(email, "@")[0]
	}

	return username
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizePhone(number string) (string, error) {
	parsed, err := phonenumbers.Parse(number, "FR")
	if err != nil {
		return "", err
	}

	if !phonenumbers.IsValidNumber(parsed) {
		return "", goerrors.New("phone number failed validation", goerrors.CategoryValidation)
	}

	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}
