package mailer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatMessageHeaders(t *testing.T) {
	msg := string(formatMessage(
		"no-reply@example.com",
		"someone@example.com",
		"Activate your account",
		"<p>hello</p>",
	))

	assert.True(t, strings.HasPrefix(msg, "From: no-reply@example.com\r\n"))
	assert.Contains(t, msg, "To: someone@example.com\r\n")
	assert.Contains(t, msg, "Subject: Activate your account\r\n")
	assert.Contains(t, msg, "Content-Type: text/html; charset=\"UTF-8\"\r\n")

	parts := strings.SplitN(msg, "\r\n\r\n", 2)
	assert.Len(t, parts, 2)
	assert.Equal(t, "<p>hello</p>", parts[1])
}
