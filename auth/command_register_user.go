package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode int    `json:"postal_code"`
	Password   string `json:"password"`
	UseHashid  bool   `json:"-"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// RegisterUserHandler creates a new inactive account and sends the
// activation link.
type RegisterUserHandler struct {
	repo     RepositoryManager
	codec    *StateTokenCodec
	notifier Notifier
	domain   string
	logger   Logger
}

func NewRegisterUserHandler(repo RepositoryManager, codec *StateTokenCodec) *RegisterUserHandler {
	return &RegisterUserHandler{
		repo:     repo,
		codec:    codec,
		notifier: noopNotifier{},
		logger:   defLogger{},
	}
}

// WithNotifier sets the notifier used to deliver the activation email.
func (h *RegisterUserHandler) WithNotifier(n Notifier) *RegisterUserHandler {
	h.notifier = normalizeNotifier(n)
	return h
}

// WithDomain sets the public domain embedded in activation links.
func (h *RegisterUserHandler) WithDomain(domain string) *RegisterUserHandler {
	h.domain = domain
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *RegisterUserHandler) WithLogger(logger Logger) *RegisterUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	user := &User{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		created, err := h.repo.Users().CreateAccountTx(ctx, tx, NewAccount{
			Email:      event.Email,
			Username:   event.Username,
			Password:   event.Password,
			FirstName:  event.FirstName,
			LastName:   event.LastName,
			Phone:      event.Phone,
			Address:    event.Address,
			City:       event.City,
			PostalCode: event.PostalCode,
			UseHashid:  event.UseHashid,
		})
		if err != nil {
			return err
		}

		user = created
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	// The account is committed at this point. Notification is best
	// effort and never turns a successful registration into a failure.
	h.sendActivationLink(user)

	return nil
}

func (h *RegisterUserHandler) sendActivationLink(user *User) {
	token, err := h.codec.Issue(user)
	if err != nil {
		h.logger.Error("failed to issue activation token for user %s: %v", user.ID.String(), err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()

		err := h.notifier.Send(ctx, MessageKindActivation, user.Email, MessageContext{
			UserUUID: user.ID,
			Username: user.Username,
			Domain:   h.domain,
			Token:    token,
		})
		if err != nil {
			h.logger.Warn("activation notification for user %s failed: %v", user.ID.String(), err)
		}
	}()
}
