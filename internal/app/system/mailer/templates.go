// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

// SiteName appears in subjects and headers.
const SiteName = "Flowbase"

// LinkEmailData fills the single-button email layout.
type LinkEmailData struct {
	SiteName  string
	Heading   string
	Intro     string
	Action    string
	Link      string
	ExpiresIn string // e.g. "1 hour"
}

// BuildInviteEmail is sent to a user invited to a workspace.
func BuildInviteEmail(to, workspaceName, link string) Email {
	data := LinkEmailData{
		SiteName:  SiteName,
		Heading:   "Workspace invitation",
		Intro:     fmt.Sprintf("You have been invited to join %s workspace", workspaceName),
		Action:    "Join workspace",
		Link:      link,
		ExpiresIn: "7 days",
	}
	return Email{
		To:       to,
		Subject:  "You have been invited to join a workspace",
		TextBody: buildLinkText(data),
		HTMLBody: buildLinkHTML(data),
	}
}

// BuildVerificationEmail is sent after registration and on login by an
// unverified user whose previous link expired.
func BuildVerificationEmail(to, link string) Email {
	data := LinkEmailData{
		SiteName:  SiteName,
		Heading:   "Verify your email",
		Intro:     "Click the button below to verify your email address.",
		Action:    "Verify email",
		Link:      link,
		ExpiresIn: "1 hour",
	}
	return Email{
		To:       to,
		Subject:  "Email Verification for " + SiteName,
		TextBody: buildLinkText(data),
		HTMLBody: buildLinkHTML(data),
	}
}

// BuildResetEmail carries a password reset link.
func BuildResetEmail(to, link string) Email {
	data := LinkEmailData{
		SiteName:  SiteName,
		Heading:   "Reset your password",
		Intro:     "Click the button below to choose a new password.",
		Action:    "Reset password",
		Link:      link,
		ExpiresIn: "15 minutes",
	}
	return Email{
		To:       to,
		Subject:  "Password Reset Request for " + SiteName,
		TextBody: buildLinkText(data),
		HTMLBody: buildLinkHTML(data),
	}
}

func buildLinkText(data LinkEmailData) string {
	var buf bytes.Buffer
	buf.WriteString(data.Intro + "\n\n")
	buf.WriteString(data.Action + ":\n")
	buf.WriteString(data.Link + "\n\n")
	buf.WriteString(fmt.Sprintf("This link expires in %s.\n\n", data.ExpiresIn))
	buf.WriteString("If you were not expecting this email, you can safely ignore it.\n")
	return buf.String()
}

var linkTmpl = template.Must(template.New("link").Parse(linkHTMLTemplate))

func buildLinkHTML(data LinkEmailData) string {
	var buf bytes.Buffer
	_ = linkTmpl.Execute(&buf, data)
	return buf.String()
}

const linkHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Heading}}</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; background-color: #f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f3f4f6;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 480px; background-color: #ffffff; border-radius: 8px;">
          <tr>
            <td style="padding: 32px 32px 24px; text-align: center; border-bottom: 1px solid #e5e7eb;">
              <h1 style="margin: 0; font-size: 24px; font-weight: 600; color: #3b82f6;">{{.SiteName}}</h1>
            </td>
          </tr>
          <tr>
            <td style="padding: 32px;">
              <h2 style="margin: 0 0 16px; font-size: 18px; color: #1f2937;">{{.Heading}}</h2>
              <p style="margin: 0 0 24px; font-size: 16px; color: #374151; line-height: 1.5;">{{.Intro}}</p>
              <div style="text-align: center; margin-bottom: 24px;">
                <a href="{{.Link}}" style="display: inline-block; padding: 12px 32px; background-color: #3b82f6; color: #ffffff; text-decoration: none; font-weight: 600; border-radius: 6px;">{{.Action}}</a>
              </div>
              <p style="margin: 0; font-size: 14px; color: #6b7280; text-align: center;">This link expires in {{.ExpiresIn}}.</p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>
`
