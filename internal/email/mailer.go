package email

import (
	"fmt"
	"net/url"

	"github.com/jbabin91/tanstack-start-starter-sub002/internal/config"
)

// Mailer renders the email templates and hands them to a Sender, composing
// links rooted at the application's base URL.
type Mailer struct {
	sender  Sender
	baseURL string
}

// NewMailer builds a Mailer with the sender picked from the configuration.
func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		sender:  NewSender(cfg),
		baseURL: cfg.BaseURL,
	}
}

// NewMailerWithSender builds a Mailer around an explicit sender.
func NewMailerWithSender(sender Sender, baseURL string) *Mailer {
	return &Mailer{sender: sender, baseURL: baseURL}
}

// SendVerificationEmail mails the confirm-your-address link. The link hits
// the API's verification endpoint, which redirects back into the app.
func (m *Mailer) SendVerificationEmail(to, name, token string) error {
	link := m.baseURL + "/auth/verify-email?token=" + url.QueryEscape(token)
	html, err := Render(TemplateVerifyEmail, map[string]string{
		"Name": name,
		"Link": link,
	})
	if err != nil {
		return err
	}
	return m.sender.Send(to, "Verify your email", html)
}

// SendPasswordResetEmail mails the reset link, which points at the app's
// reset screen carrying the token.
func (m *Mailer) SendPasswordResetEmail(to, name, token string) error {
	link := m.baseURL + "/reset-password?token=" + url.QueryEscape(token)
	html, err := Render(TemplateResetPassword, map[string]string{
		"Name": name,
		"Link": link,
	})
	if err != nil {
		return err
	}
	return m.sender.Send(to, "Reset your password", html)
}

// SendOTPEmail mails a one-time sign-in code.
func (m *Mailer) SendOTPEmail(to, code string) error {
	html, err := Render(TemplateOTPCode, map[string]string{
		"Code": code,
	})
	if err != nil {
		return err
	}
	return m.sender.Send(to, "Your sign-in code", html)
}

// SendInvitationEmail mails an organization invitation with a link to the
// app's invitation screen.
func (m *Mailer) SendInvitationEmail(to, orgName, inviterEmail, role, invitationID string) error {
	link := m.baseURL + "/invitations/" + invitationID
	html, err := Render(TemplateOrgInvitation, map[string]string{
		"OrgName":      orgName,
		"InviterEmail": inviterEmail,
		"Role":         role,
		"Link":         link,
	})
	if err != nil {
		return err
	}
	return m.sender.Send(to, fmt.Sprintf("You have been invited to %s", orgName), html)
}
