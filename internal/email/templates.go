package email

import (
	"bytes"
	"fmt"
	"html/template"
)

// Template names.
const (
	TemplateVerifyEmail   = "verify-email"
	TemplateResetPassword = "reset-password"
	TemplateOTPCode       = "otp-code"
	TemplateOrgInvitation = "org-invitation"
)

var templateSources = map[string]string{
	TemplateVerifyEmail: `<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #1a1a1a;">
  <h2>Verify your email</h2>
  <p>Hi {{.Name}},</p>
  <p>Confirm your email address to finish setting up your account.</p>
  <p><a href="{{.Link}}" style="display:inline-block;padding:10px 20px;background:#18181b;color:#ffffff;text-decoration:none;border-radius:6px;">Verify email</a></p>
  <p>If the button does not work, copy this link into your browser:<br>{{.Link}}</p>
  <p>This link expires in 24 hours. If you did not create an account, you can ignore this email.</p>
</body>
</html>`,

	TemplateResetPassword: `<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #1a1a1a;">
  <h2>Reset your password</h2>
  <p>Hi {{.Name}},</p>
  <p>We received a request to reset your password.</p>
  <p><a href="{{.Link}}" style="display:inline-block;padding:10px 20px;background:#18181b;color:#ffffff;text-decoration:none;border-radius:6px;">Reset password</a></p>
  <p>If the button does not work, copy this link into your browser:<br>{{.Link}}</p>
  <p>This link expires in 1 hour. If you did not request a reset, you can ignore this email.</p>
</body>
</html>`,

	TemplateOTPCode: `<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #1a1a1a;">
  <h2>Your sign-in code</h2>
  <p style="font-size:32px;letter-spacing:8px;font-weight:bold;">{{.Code}}</p>
  <p>Enter this code to sign in. It expires in 5 minutes.</p>
  <p>If you did not request a code, you can ignore this email.</p>
</body>
</html>`,

	TemplateOrgInvitation: `<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #1a1a1a;">
  <h2>You have been invited to {{.OrgName}}</h2>
  <p>{{.InviterEmail}} invited you to join <strong>{{.OrgName}}</strong> as {{.Role}}.</p>
  <p><a href="{{.Link}}" style="display:inline-block;padding:10px 20px;background:#18181b;color:#ffffff;text-decoration:none;border-radius:6px;">View invitation</a></p>
  <p>If the button does not work, copy this link into your browser:<br>{{.Link}}</p>
  <p>This invitation expires in 48 hours.</p>
</body>
</html>`,
}

var templates map[string]*template.Template

func init() {
	templates = make(map[string]*template.Template)
	for name, src := range templateSources {
		templates[name] = template.Must(template.New(name).Parse(src))
	}
}

// Render executes a named template against the given data.
func Render(name string, data interface{}) (string, error) {
	ts, ok := templates[name]
	if !ok {
		return "", fmt.Errorf("unknown email template %q", name)
	}

	var buf bytes.Buffer
	if err := ts.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %v", name, err)
	}
	return buf.String(), nil
}
