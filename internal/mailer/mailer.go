package mailer

import "embed"

const (
	FromName                = "Lendbook"
	maxRetries              = 3
	StaffInvitationTemplate = "staff_invitation.tmpl"
	UserWelcomeTemplate     = "user_welcome.tmpl"
)

//go:embed "templates"
var FS embed.FS

type Client interface {
	Send(templateFile, username, email string, data any) (int, error)
}
