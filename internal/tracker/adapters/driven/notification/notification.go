package notification

import (
	"context"
	"fmt"

	"github.com/nikoksr/notify"
	httpservice "github.com/nikoksr/notify/service/http"

	"freight-tracker/internal/mylogger"
)

// WebhookNotifier delivers user-visible notifications to the configured
// webhook. When no webhook URL is configured the notification is only
// logged, which keeps geofence alerts observable in development.
type WebhookNotifier struct {
	notifier *notify.Notify
	log      mylogger.Logger
}

func New(webhookURL string, log mylogger.Logger) *WebhookNotifier {
	n := &WebhookNotifier{log: log}
	if webhookURL == "" {
		return n
	}

	svc := httpservice.New()
	svc.AddReceiversURLs(webhookURL)

	notifier := notify.New()
	notifier.UseServices(svc)
	n.notifier = notifier
	return n
}

func (n *WebhookNotifier) Notify(ctx context.Context, title, body string) error {
	log := n.log.Action("notify")
	log.Info("local notification", "title", title, "body", body)

	if n.notifier == nil {
		return nil
	}
	if err := n.notifier.Send(ctx, title, body); err != nil {
		return fmt.Errorf("sending notification: %w", err)
	}
	return nil
}
