package templates

import (
	"bytes"
	"embed"
	"encoding/json"
	htmpl "html/template"
	texttpl "text/template"
)

//go:embed *.tmpl
var FS embed.FS

// Template names known to the renderer.
const (
	TemplateVerification = "verification"
	TemplateSuccess      = "verification_success"
)

// EmailData carries the fields available to email templates.
type EmailData struct {
	AppName        string `json:"AppName"`
	RecipientEmail string `json:"RecipientEmail"`
	VerifyURL      string `json:"VerifyURL"`
	CompanyName    string `json:"CompanyName"`
	SupportURL     string `json:"SupportURL"`
}

// ToMap converts EmailData to a map for EmailJob.Data.
func ToMap(d EmailData) map[string]any {
	b, _ := json.Marshal(d)
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	return m
}

// FromMap rebuilds EmailData from an EmailJob.Data payload.
func FromMap(m map[string]any) EmailData {
	b, _ := json.Marshal(m)
	var d EmailData
	_ = json.Unmarshal(b, &d)
	return d
}

// Render produces the HTML and plain-text bodies for the named template.
func Render(name string, data EmailData) (html string, text string, err error) {
	ht, err := htmpl.ParseFS(FS, name+".tmpl")
	if err != nil {
		return "", "", err
	}
	var hb bytes.Buffer
	if err := ht.Execute(&hb, data); err != nil {
		return "", "", err
	}

	tt, err := texttpl.ParseFS(FS, name+".txt.tmpl")
	if err != nil {
		// No text variant; callers fall back to the HTML body.
		return hb.String(), "", nil
	}
	var tb bytes.Buffer
	if err := tt.Execute(&tb, data); err != nil {
		return "", "", err
	}
	return hb.String(), tb.String(), nil
}

// RenderPage renders a standalone HTML page (no text variant).
func RenderPage(name string, data EmailData) (string, error) {
	ht, err := htmpl.ParseFS(FS, name+".tmpl")
	if err != nil {
		return "", err
	}
	var b bytes.Buffer
	if err := ht.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}
