package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// signatureLength is the number of hex characters kept from the HMAC.
const signatureLength = 32

// StateTokenCodec issues and verifies the single purpose tokens used for
// account activation and password reset links. Verification is stateless:
// the signature binds the account UUID, the password hash, and the last
// login timestamp, so the token stops verifying the moment any of those
// change. That is what makes it effectively single use without a
// revocation table. The trade-off: validity depends on every state
// changing action touching one of the bound fields.
type StateTokenCodec struct {
	secret   []byte
	validity time.Duration
	now      func() time.Time
}

// NewStateTokenCodec creates a codec with the given signing secret and
// validity window.
func NewStateTokenCodec(secret []byte, validity time.Duration) *StateTokenCodec {
	return &StateTokenCodec{
		secret:   secret,
		validity: validity,
		now:      time.Now,
	}
}

// WithClock overrides the time source, mostly for tests.
func (c *StateTokenCodec) WithClock(now func() time.Time) *StateTokenCodec {
	if now != nil {
		c.now = now
	}
	return c
}

// Issue produces a token for the account's current state.
func (c *StateTokenCodec) Issue(user *User) (string, error) {
	if user == nil {
		return "", goerrors.New("user is required to issue a token", goerrors.CategoryBadInput)
	}
	if len(c.secret) == 0 {
		return "", goerrors.New("token codec has no signing secret", goerrors.CategoryInternal)
	}

	ts := c.now().Unix()
	return fmt.Sprintf("%s-%s", strconv.FormatInt(ts, 36), c.sign(user, ts)), nil
}

// Verify recomputes the expected signature for the account's current
// state and compares. It returns false for malformed tokens, tokens
// outside the validity window, and any state drift since issuance.
func (c *StateTokenCodec) Verify(user *User, token string) bool {
	if user == nil || token == "" {
		return false
	}

	tsPart, sigPart, ok := strings.Cut(token, "-")
	if !ok {
		return false
	}

	ts, err := strconv.ParseInt(tsPart, 36, 64)
	if err != nil {
		return false
	}

	age := c.now().Unix() - ts
	if age < 0 || time.Duration(age)*time.Second > c.validity {
		return false
	}

	return hmac.Equal([]byte(c.sign(user, ts)), []byte(sigPart))
}

func (c *StateTokenCodec) sign(user *User, ts int64) string {
	var lastLogin int64
	if user.LastLoginAt != nil {
		lastLogin = user.LastLoginAt.Unix()
	}

	mac := hmac.New(sha256.New, c.secret)
	fmt.Fprintf(mac, "%s|%s|%d|%d", user.ID, user.PasswordHash, lastLogin, ts)

	sig := hex.EncodeToString(mac.Sum(nil))
	if len(sig) > signatureLength {
		sig = sig[:signatureLength]
	}
	return sig
}
