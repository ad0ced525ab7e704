package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
)

// ResendNotifier sends the welcome email through Resend.
type ResendNotifier struct {
	From   string
	AppURL string
	client *resend.Client
}

// NewResendNotifier returns a notifier backed by the Resend API client.
func NewResendNotifier(apiKey, from, appURL string) *ResendNotifier {
	return &ResendNotifier{
		From:   from,
		AppURL: strings.TrimRight(appURL, "/"),
		client: resend.NewCustomClient(&http.Client{Timeout: 10 * time.Second}, apiKey),
	}
}

// SetBaseURL points the client at another Resend-compatible endpoint.
func (n *ResendNotifier) SetBaseURL(raw string) error {
	u, err := url.Parse(strings.TrimRight(raw, "/") + "/")
	if err != nil {
		return fmt.Errorf("parse resend base url: %w", err)
	}
	n.client.BaseURL = u
	return nil
}

// WelcomeSubject is the subject line of the welcome email.
const WelcomeSubject = "Welcome to Nestodo! 🎉"

// Welcome sends the welcome email to a freshly registered user.
func (n *ResendNotifier) Welcome(ctx context.Context, email, name string) error {
	html, err := WelcomeHTML(name, n.AppURL)
	if err != nil {
		return err
	}
	_, err = n.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    n.From,
		To:      []string{email},
		Subject: WelcomeSubject,
		Html:    html,
	})
	if err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	return nil
}

var welcomeTemplate = template.Must(template.New("welcome").Parse(`<!DOCTYPE html>
<html>
  <body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; color: #333;">
    <h1 style="color: #6366f1; text-align: center;">📝 Nestodo</h1>
    <div style="background-color: #f8fafc; border-radius: 8px; padding: 30px;">
      <h2>Welcome aboard! 🎉</h2>
      <p>Hi{{if .Name}} {{.Name}}{{end}},</p>
      <p>Thank you for signing up for <strong>Nestodo</strong>, your new recursive task manager!</p>
      <ul>
        <li>✅ Create tasks and organize your work</li>
        <li>🔄 Add unlimited nested sub-tasks</li>
        <li>📱 Access your tasks from anywhere</li>
      </ul>
      <a href="{{.Link}}" style="display: inline-block; background-color: #6366f1; color: white; text-decoration: none; padding: 12px 24px; border-radius: 6px;">Start Adding Tasks</a>
    </div>
    <p style="text-align: center; color: #64748b; font-size: 14px;">Happy organizing!</p>
  </body>
</html>
`))

// WelcomeHTML renders the welcome email body.
func WelcomeHTML(name, appURL string) (string, error) {
	var buf bytes.Buffer
	err := welcomeTemplate.Execute(&buf, struct {
		Name string
		Link string
	}{
		Name: strings.TrimSpace(name),
		Link: strings.TrimRight(appURL, "/") + "/todos",
	})
	if err != nil {
		return "", fmt.Errorf("render welcome email: %w", err)
	}
	return buf.String(), nil
}
