package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderVerification(t *testing.T) {
	data := EmailData{
		AppName:        "volt",
		RecipientEmail: "a@b.com",
		VerifyURL:      "https://volt.example.com/api/verify?token=tok",
	}

	html, text, err := Render(TemplateVerification, data)
	require.NoError(t, err)
	assert.Contains(t, html, data.VerifyURL)
	assert.Contains(t, html, "volt")
	assert.Contains(t, text, data.VerifyURL)
}

func TestRenderUnknownTemplate(t *testing.T) {
	_, _, err := Render("does-not-exist", EmailData{})
	assert.Error(t, err)
}

func TestRenderSuccessPage(t *testing.T) {
	page, err := RenderPage(TemplateSuccess, EmailData{AppName: "volt"})
	require.NoError(t, err)
	assert.Contains(t, page, "verified")
}

func TestDataMapRoundTrip(t *testing.T) {
	data := EmailData{AppName: "volt", RecipientEmail: "a@b.com", VerifyURL: "https://x"}
	assert.Equal(t, data, FromMap(ToMap(data)))
}
