package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResetLink(t *testing.T) {
	assert.Equal(t, "https://cases.example.org/reset-password?token=abc.def",
		ResetLink("https://cases.example.org/reset-password/", "abc.def"))
	assert.Equal(t, "abc.def", ResetLink("", "abc.def"))
}

func TestRenderResetBody(t *testing.T) {
	body, err := RenderResetBody("alice", "https://example.org/reset?token=t")
	require.NoError(t, err)
	assert.Contains(t, body, "Hello alice,")
	assert.Contains(t, body, "https://example.org/reset?token=t")
	assert.Contains(t, body, "valid once")
}

func TestNewSMTPMailerValidation(t *testing.T) {
	_, err := NewSMTPMailer(SMTPConfig{From: "noreply@example.org"})
	require.Error(t, err)

	_, err = NewSMTPMailer(SMTPConfig{Host: "smtp.example.org"})
	require.Error(t, err)

	m, err := NewSMTPMailer(SMTPConfig{Host: "smtp.example.org", From: "noreply@example.org"})
	require.NoError(t, err)
	assert.Equal(t, 587, m.cfg.Port)
}
