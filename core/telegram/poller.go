package telegram

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/surokacs/petertrain-bot/core/config"
)

// WebhookOptions declares webhook listener settings.
type WebhookOptions struct {
	Listen string
	Port   int
	URL    string
}

// PollerOptions configures BuildPoller.
type PollerOptions struct {
	RunMode                string
	LongPollTimeoutSeconds int
	Webhook                WebhookOptions
}

// BuildPoller returns a Telebot poller based on provided options.
// Both pollers request pre-checkout queries and payment messages, which
// Telegram only delivers when asked for explicitly.
func BuildPoller(opts PollerOptions) tele.Poller {
	runMode := strings.ToLower(strings.TrimSpace(opts.RunMode))
	if runMode == coreconfig.RunModeWebhook {
		return &tele.Webhook{
			Listen:         fmt.Sprintf("%s:%d", opts.Webhook.Listen, opts.Webhook.Port),
			Endpoint:       &tele.WebhookEndpoint{PublicURL: opts.Webhook.URL},
			AllowedUpdates: allowedUpdates,
		}
	}

	return &tele.LongPoller{
		Timeout:        longPollWindow(opts.LongPollTimeoutSeconds),
		AllowedUpdates: allowedUpdates,
	}
}

var allowedUpdates = []string{"message", "callback_query", "pre_checkout_query"}
