package forms

import (
	"log/slog"

	"github.com/gregdel/pushover"

	"github.com/seedlight/beacon/config"
)

// PushoverNotifier pings the team phone when a submission lands. Delivery is
// best effort; a failed push never fails the submission.
type PushoverNotifier struct {
	app       *pushover.Pushover
	recipient *pushover.Recipient
}

// NewPushoverNotifier returns nil when pushover isn't configured, which the
// Processor treats as notifications disabled.
func NewPushoverNotifier(cfg config.PushoverConfig) *PushoverNotifier {
	if cfg.Token == "" || cfg.Recipient == "" {
		return nil
	}
	return &PushoverNotifier{
		app:       pushover.New(cfg.Token),
		recipient: pushover.NewRecipient(cfg.Recipient),
	}
}

func (n *PushoverNotifier) Notify(title, message string) {
	msg := &pushover.Message{
		Title:   title,
		Message: message,
	}
	if _, err := n.app.SendMessage(msg, n.recipient); err != nil {
		slog.Error("Failed to send pushover notification",
			slog.String("title", title),
			slog.String("stack", err.Error()),
		)
	}
}
