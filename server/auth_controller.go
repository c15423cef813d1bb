package server

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/google/uuid"

	"github.com/Endy02/microservice/auth"
)

type AuthControllerRoutes struct {
	Register       string
	Activate       string
	Profile        string
	User           string
	ForgotPassword string
	ResetPassword  string
	Token          string
	TokenRefresh   string
	TokenBlacklist string
}

// AuthController serves the account lifecycle endpoints.
type AuthController struct {
	Debug      bool
	Logger     auth.Logger
	Sessions   *auth.SessionManager
	Users      auth.Users
	Register   *auth.RegisterUserHandler
	Activate   *auth.ActivateAccountHandler
	Forgot     *auth.InitializePasswordResetHandler
	Reset      *auth.FinalizePasswordResetHandler
	Routes     *AuthControllerRoutes
	ContextKey string
}

func NewAuthController(sessions *auth.SessionManager) *AuthController {
	return &AuthController{
		Logger:   defControllerLogger{},
		Sessions: sessions,
		Routes: &AuthControllerRoutes{
			Register:       "/users",
			Activate:       "/users/activate/:uuid/:token",
			Profile:        "/users/me",
			User:           "/users/:uuid",
			ForgotPassword: "/users/forgot-password",
			ResetPassword:  "/users/reset-password/:uuid/:token",
			Token:          "/token",
			TokenRefresh:   "/token/refresh",
			TokenBlacklist: "/token/blacklist",
		},
	}
}

// RegisterAuthRoutes mounts the account endpoints on the given router.
// Profile and token blacklisting sit behind the bearer middleware.
func RegisterAuthRoutes(app fiber.Router, controller *AuthController, cfg auth.Config) {
	controller.ContextKey = cfg.GetContextKey()
	requireAuth := RequireAuth(controller.Sessions.TokenService(), cfg)

	app.Post(controller.Routes.Register, controller.RegistrationCreate)
	app.Get(controller.Routes.Activate, controller.ActivateAccount)
	app.Post(controller.Routes.ForgotPassword, controller.ForgotPassword)
	app.Post(controller.Routes.ResetPassword, controller.ResetPassword)

	app.Post(controller.Routes.Token, controller.TokenObtainPair)
	app.Post(controller.Routes.TokenRefresh, controller.TokenRefresh)
	app.Post(controller.Routes.TokenBlacklist, requireAuth, controller.TokenBlacklist)

	// Profile is registered before the :uuid routes so "me" never
	// resolves as an account identifier.
	app.Get(controller.Routes.Profile, requireAuth, controller.Profile)
	app.Get(controller.Routes.User, requireAuth, controller.UserDetail)
	app.Put(controller.Routes.User, requireAuth, controller.UserUpdate)
}

// RegistrationCreatePayload is the registration body.
type RegistrationCreatePayload struct {
	FirstName  string `form:"first_name" json:"first_name"`
	LastName   string `form:"last_name" json:"last_name"`
	Username   string `form:"username" json:"username"`
	Email      string `form:"email" json:"email"`
	Phone      string `form:"phone_number" json:"phone_number"`
	Address    string `form:"address" json:"address"`
	City       string `form:"city" json:"city"`
	PostalCode int    `form:"postal_code" json:"postal_code"`
	Password   string `form:"password" json:"password"`
}

// Validate will validate the payload
func (r RegistrationCreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Username, validation.Length(0, 150)),
		validation.Field(&r.FirstName, validation.Length(0, 200)),
		validation.Field(&r.LastName, validation.Length(0, 200)),
		validation.Field(&r.Password, validation.Length(8, 100)),
	)
}

// RegistrationCreate creates an inactive account and sends the
// activation link. Any failure surfaces as 500, the success status is
// the only contract clients rely on.
func (a *AuthController) RegistrationCreate(c *fiber.Ctx) error {
	payload := new(RegistrationCreatePayload)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("register user parse payload: %v", err)
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("register user validate payload: %v", err)
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	if a.Debug {
		a.Logger.Debug("register user payload: %s", print.MaybePrettyJSON(payload))
	}

	req := auth.RegisterUserMessage{
		FirstName:  payload.FirstName,
		LastName:   payload.LastName,
		Username:   payload.Username,
		Email:      payload.Email,
		Phone:      payload.Phone,
		Address:    payload.Address,
		City:       payload.City,
		PostalCode: payload.PostalCode,
		Password:   payload.Password,
	}

	if err := a.Register.Execute(c.UserContext(), req); err != nil {
		a.Logger.Error("register user execute: %v", err)
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.SendStatus(fiber.StatusCreated)
}

// ActivateAccount flips the account active after verifying the emailed
// token. 202 on success, 404 when no account matches the link, 403 on
// any verification failure.
func (a *AuthController) ActivateAccount(c *fiber.Ctx) error {
	req := auth.ActivateAccountMessage{
		UserUUID: c.Params("uuid"),
		Token:    c.Params("token"),
	}

	if err := a.Activate.Execute(c.UserContext(), req); err != nil {
		if goerrors.IsNotFound(err) {
			return c.SendStatus(fiber.StatusNotFound)
		}
		a.Logger.Warn("account activation rejected: %v", err)
		return c.SendStatus(fiber.StatusForbidden)
	}

	return c.SendStatus(fiber.StatusAccepted)
}

// LoginPayload is the credential body for token issuance.
type LoginPayload struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will validate the payload
func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// TokenObtainPair exchanges credentials for an access/refresh pair.
func (a *AuthController) TokenObtainPair(c *fiber.Ctx) error {
	payload := new(LoginPayload)

	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"detail": "malformed request body",
		})
	}

	if err := payload.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"detail": "email and password are required",
		})
	}

	pair, err := a.Sessions.Login(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return a.unauthorized(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(pair)
}

// RefreshPayload carries the refresh token.
type RefreshPayload struct {
	Refresh string `form:"refresh" json:"refresh"`
}

// TokenRefresh exchanges a live refresh token for a new access token.
func (a *AuthController) TokenRefresh(c *fiber.Ctx) error {
	payload := new(RefreshPayload)

	if err := c.BodyParser(payload); err != nil || payload.Refresh == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"detail": "refresh token is required",
		})
	}

	access, err := a.Sessions.Refresh(c.UserContext(), payload.Refresh)
	if err != nil {
		return a.unauthorized(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"access": access,
	})
}

// BlacklistPayload carries the refresh token to revoke.
type BlacklistPayload struct {
	RefreshToken string `form:"refresh_token" json:"refresh_token"`
}

// TokenBlacklist revokes the refresh token. Revoking an already revoked
// or malformed token fails, logout is not idempotent by design.
func (a *AuthController) TokenBlacklist(c *fiber.Ctx) error {
	payload := new(BlacklistPayload)

	if err := c.BodyParser(payload); err != nil || payload.RefreshToken == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"detail": "refresh_token is required",
		})
	}

	if err := a.Sessions.Logout(c.UserContext(), payload.RefreshToken); err != nil {
		return a.unauthorized(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}

// ForgotPasswordPayload carries the account email.
type ForgotPasswordPayload struct {
	Email string `form:"email" json:"email"`
}

// Validate will validate the payload
func (r ForgotPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

// ForgotPassword sends the reset link. Unknown emails surface as 404,
// matching the lookup semantics of the activation flow.
func (a *AuthController) ForgotPassword(c *fiber.Ctx) error {
	payload := new(ForgotPasswordPayload)

	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"detail": "malformed request body",
		})
	}

	if err := payload.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"detail": "a valid email is required",
		})
	}

	req := auth.InitializePasswordResetMessage{Email: payload.Email}
	if err := a.Forgot.Execute(c.UserContext(), req); err != nil {
		if goerrors.IsNotFound(err) {
			return c.SendStatus(fiber.StatusNotFound)
		}
		a.Logger.Error("forgot password execute: %v", err)
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  "Success",
		"message": "We have sent you an email with the link to reset your password",
	})
}

// ResetPasswordPayload carries the two password submissions.
type ResetPasswordPayload struct {
	Password1 string `form:"password1" json:"password1"`
	Password2 string `form:"password2" json:"password2"`
}

// ResetPassword applies a new password. Every precondition failure
// collapses into 403 with no detail about which check tripped.
func (a *AuthController) ResetPassword(c *fiber.Ctx) error {
	payload := new(ResetPasswordPayload)

	if err := c.BodyParser(payload); err != nil {
		return c.SendStatus(fiber.StatusForbidden)
	}

	req := auth.FinalizePasswordResetMessage{
		UserUUID:        c.Params("uuid"),
		Token:           c.Params("token"),
		Password:        payload.Password1,
		ConfirmPassword: payload.Password2,
	}

	if err := a.Reset.Execute(c.UserContext(), req); err != nil {
		a.Logger.Warn("password reset rejected: %v", err)
		return c.SendStatus(fiber.StatusForbidden)
	}

	return c.SendStatus(fiber.StatusOK)
}

// Profile returns the authenticated account summary.
func (a *AuthController) Profile(c *fiber.Ctx) error {
	claims := ClaimsFromLocals(c, a.ContextKey)
	if claims == nil {
		return c.SendStatus(fiber.StatusForbidden)
	}

	user, err := a.Sessions.User(c.UserContext(), claims)
	if err != nil {
		return c.SendStatus(fiber.StatusForbidden)
	}

	return c.Status(fiber.StatusOK).JSON(user.Summary())
}

// UserDetail returns the account summary for the given identifier.
func (a *AuthController) UserDetail(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("uuid"))
	if err != nil {
		return c.SendStatus(fiber.StatusNotFound)
	}

	user, err := a.Users.GetByUUID(c.UserContext(), id)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return c.SendStatus(fiber.StatusNotFound)
		}
		a.Logger.Error("user detail: %v", err)
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.Status(fiber.StatusOK).JSON(user.Summary())
}

// UserUpdatePayload is the profile update body. Credentials and account
// flags are not updatable through this endpoint.
type UserUpdatePayload struct {
	FirstName  string `form:"first_name" json:"first_name"`
	LastName   string `form:"last_name" json:"last_name"`
	Username   string `form:"username" json:"username"`
	Address    string `form:"address" json:"address"`
	City       string `form:"city" json:"city"`
	PostalCode int    `form:"postal_code" json:"postal_code"`
	Phone      string `form:"phone_number" json:"phone_number"`
}

// Validate will validate the payload
func (r UserUpdatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Length(0, 150)),
		validation.Field(&r.FirstName, validation.Length(0, 200)),
		validation.Field(&r.LastName, validation.Length(0, 200)),
	)
}

// UserUpdate replaces the profile fields of the account and returns the
// updated summary.
func (a *AuthController) UserUpdate(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("uuid"))
	if err != nil {
		return c.SendStatus(fiber.StatusNotFound)
	}

	payload := new(UserUpdatePayload)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"detail": "malformed request body",
		})
	}

	if err := payload.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"detail": err.Error(),
		})
	}

	user, err := a.Users.GetByUUID(c.UserContext(), id)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return c.SendStatus(fiber.StatusNotFound)
		}
		a.Logger.Error("user update lookup: %v", err)
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	user.FirstName = payload.FirstName
	user.LastName = payload.LastName
	user.Address = payload.Address
	user.City = payload.City
	user.PostalCode = payload.PostalCode
	user.Phone = payload.Phone
	if payload.Username != "" {
		user.Username = payload.Username
	}

	updated, err := a.Users.Save(c.UserContext(), user)
	if err != nil {
		a.Logger.Error("user update save: %v", err)
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.Status(fiber.StatusOK).JSON(updated.Summary())
}

func (a *AuthController) unauthorized(c *fiber.Ctx, err error) error {
	var richErr *goerrors.Error
	status := fiber.StatusUnauthorized
	if goerrors.As(err, &richErr) && richErr.Code > 0 {
		status = richErr.Code
	}

	body := fiber.Map{"detail": "authentication failed"}
	if richErr != nil && richErr.TextCode != "" {
		body["code"] = richErr.TextCode
	}

	return c.Status(status).JSON(body)
}
