package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

const (
	SubjectVerification = "Confirm Your Email"
	SubjectOTP          = "Your One-Time Passcode"
)

// Message is a rendered email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// RenderVerification builds the email carrying a verification link.
func RenderVerification(to, link string) (Message, error) {
	body, err := render("verification", struct{ Link string }{link})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: SubjectVerification, HTML: body}, nil
}

// RenderOTP builds the email carrying a one-time passcode.
func RenderOTP(to, otp string, validFor time.Duration) (Message, error) {
	body, err := render("otp", struct {
		OTP      string
		ValidFor string
	}{otp, humanDuration(validFor)})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: SubjectOTP, HTML: body}, nil
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func humanDuration(d time.Duration) string {
	if d%time.Minute == 0 {
		m := int(d / time.Minute)
		if m == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	}
	return d.String()
}
