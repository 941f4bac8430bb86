package domain

import "context"

// Mailer sends a single email. Implementations may use SES, SMTP, or a noop.
type Mailer interface {
	Send(to, subject, html, text string) error
}

// EmailTemplateRenderer renders a named template into subject, html, and
// text bodies.
type EmailTemplateRenderer interface {
	Render(templateName string, data interface{}) (subject, htmlBody, textBody string, err error)
}

// EventNotification carries the fields every event email shares.
type EventNotification struct {
	EventTitle    string
	OrganizerName string
	ScheduledAt   string
	VenueName     string
	Reason        string
	JoinCode      string
}

// Notifier dispatches best-effort notifications. Calls never block the
// domain write that triggered them and never report errors back; failures
// are logged by the implementation.
type Notifier interface {
	EventInvited(ctx context.Context, emails []string, n EventNotification)
	WaitlistPromoted(ctx context.Context, email string, n EventNotification)
	EventFinalized(ctx context.Context, emails []string, n EventNotification)
	EventCancelled(ctx context.Context, emails []string, n EventNotification)
	EventRescheduled(ctx context.Context, emails []string, n EventNotification)
}
