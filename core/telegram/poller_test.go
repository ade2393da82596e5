package telegram

import (
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"
)

func TestBuildPollerLongpollDefaults(t *testing.T) {
	p, ok := BuildPoller(PollerOptions{RunMode: "longpoll"}).(*tele.LongPoller)
	if !ok {
		t.Fatalf("expected long poller")
	}
	if p.Timeout != 10*time.Second {
		t.Fatalf("timeout = %s", p.Timeout)
	}
	if !contains(p.AllowedUpdates, "pre_checkout_query") {
		t.Fatalf("pre_checkout_query must be requested: %v", p.AllowedUpdates)
	}
}

func TestBuildPollerWebhook(t *testing.T) {
	p, ok := BuildPoller(PollerOptions{
		RunMode: " Webhook ",
		Webhook: WebhookOptions{Listen: "0.0.0.0", Port: 8443, URL: "https://shop.example/hook"},
	}).(*tele.Webhook)
	if !ok {
		t.Fatalf("expected webhook poller")
	}
	if p.Listen != "0.0.0.0:8443" || p.Endpoint.PublicURL != "https://shop.example/hook" {
		t.Fatalf("unexpected webhook: %s %s", p.Listen, p.Endpoint.PublicURL)
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
