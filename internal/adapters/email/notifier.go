package email

import (
	"context"
	"log"
	"time"

	"meetspot/internal/domain"
)

const sendTimeout = 10 * time.Second

// notifier sends event emails in the background. Failures are logged and
// never surface to the write that triggered them.
type notifier struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
}

// NewNotifier returns a Notifier backed by the given mailer and template set.
func NewNotifier(mailer domain.Mailer, renderer domain.EmailTemplateRenderer) domain.Notifier {
	return &notifier{mailer: mailer, renderer: renderer}
}

func (s *notifier) EventInvited(ctx context.Context, emails []string, n domain.EventNotification) {
	s.dispatch("event_invited", emails, n)
}

func (s *notifier) WaitlistPromoted(ctx context.Context, email string, n domain.EventNotification) {
	s.dispatch("waitlist_promoted", []string{email}, n)
}

func (s *notifier) EventFinalized(ctx context.Context, emails []string, n domain.EventNotification) {
	s.dispatch("event_finalized", emails, n)
}

func (s *notifier) EventCancelled(ctx context.Context, emails []string, n domain.EventNotification) {
	s.dispatch("event_cancelled", emails, n)
}

func (s *notifier) EventRescheduled(ctx context.Context, emails []string, n domain.EventNotification) {
	s.dispatch("event_rescheduled", emails, n)
}

// dispatch renders once and fans the result out to every recipient on a
// detached goroutine, so a slow SES call never holds up the caller.
func (s *notifier) dispatch(templateName string, emails []string, n domain.EventNotification) {
	subject, htmlBody, textBody, err := s.renderer.Render(templateName, n)
	if err != nil {
		log.Printf("[NOTIFY] Failed to render %s template: %v", templateName, err)
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		for _, to := range emails {
			if ctx.Err() != nil {
				log.Printf("[NOTIFY] Timed out sending %s emails, %s and later recipients skipped", templateName, to)
				return
			}
			if err := s.mailer.Send(to, subject, htmlBody, textBody); err != nil {
				log.Printf("[NOTIFY] Failed to send %s email to %s: %v", templateName, to, err)
			}
		}
	}()
}
