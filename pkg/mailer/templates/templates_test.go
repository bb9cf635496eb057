package templates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prernathite123/SchoolManagement/config"
)

func testConfig() *config.Config {
	return &config.Config{
		AppName:    "school-management",
		SchoolName: "Springfield High",
		SupportURL: "https://school.example/support",
	}
}

func TestRenderVerifyEmail(t *testing.T) {
	data := NewVerifyEmailData(testConfig(), "Maya Iyer", "maya@example.com",
		"http://localhost:5173/verify-email/abc123",
		WithExpiresIn(24*time.Hour))

	subject, text, html, err := Render(VerifyEmail, data)
	require.NoError(t, err)

	assert.Contains(t, subject, "Springfield High")
	assert.Contains(t, text, "http://localhost:5173/verify-email/abc123")
	assert.Contains(t, html, "http://localhost:5173/verify-email/abc123")
	assert.Contains(t, text, "Maya Iyer")
}

func TestRenderWelcomeFromJobData(t *testing.T) {
	// The worker receives data as map[string]any after the JSON round
	// trip, so render against the map form.
	data := NewWelcomeData(testConfig(), "Maya Iyer", "maya@example.com")

	subject, text, html, err := Render(Welcome, data)
	require.NoError(t, err)
	assert.NotEmpty(t, subject)
	assert.Contains(t, text, "Maya Iyer")
	assert.NotEmpty(t, html)
}

func TestRenderLoginNotification(t *testing.T) {
	data := NewLoginNotificationData(testConfig(), "Maya Iyer", "maya@example.com",
		WithTime(time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)),
		WithIP("203.0.113.7"),
		WithUserAgent("Mozilla/5.0"))

	subject, text, html, err := Render(LoginNotification, data)
	require.NoError(t, err)
	assert.NotEmpty(t, subject)
	assert.Contains(t, text, "203.0.113.7")
	assert.Contains(t, html, "203.0.113.7")
}

func TestRenderUnknownTemplateFails(t *testing.T) {
	_, _, _, err := Render("password_reset", map[string]any{})
	assert.Error(t, err)
}
