package telegram

import (
	"testing"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/surokacs/petertrain-bot/core/config"
)

func names(mws []Middleware) []string {
	out := make([]string, 0, len(mws))
	for _, mw := range mws {
		out = append(out, mw.Name)
	}
	return out
}

func TestDefaultMiddlewaresOrder(t *testing.T) {
	got := names(DefaultMiddlewares(&coreconfig.Config{
		RateLimit: coreconfig.RateLimitConfig{IntervalMS: 500, ExcludeUpdates: []string{"payment"}},
	}, nil))
	want := []string{"recover", "logger", "rate_limit", "metrics"}
	if len(got) != len(want) {
		t.Fatalf("middlewares = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("middlewares = %v, want %v", got, want)
		}
	}
}

func TestDefaultMiddlewaresWithoutRateLimit(t *testing.T) {
	for _, n := range names(DefaultMiddlewares(&coreconfig.Config{}, nil)) {
		if n == "rate_limit" {
			t.Fatal("rate limit enabled with zero interval")
		}
	}
}

func TestDefaultRateLimitNeverDropsPayments(t *testing.T) {
	mws := DefaultMiddlewares(&coreconfig.Config{
		RateLimit: coreconfig.RateLimitConfig{IntervalMS: 60000},
	}, nil)
	var limit Middleware
	for _, mw := range mws {
		if mw.Name == "rate_limit" {
			limit = mw
		}
	}
	if limit.Use == nil {
		t.Fatal("rate limit not installed")
	}

	handled := 0
	h := limit.Use(func(tele.Context) error { handled++; return nil })
	b, err := tele.NewBot(tele.Settings{Offline: true})
	if err != nil {
		t.Fatalf("offline bot: %v", err)
	}
	buyer := &tele.User{ID: 42}
	chat := &tele.Chat{ID: 42, Type: tele.ChatPrivate}
	updates := []tele.Update{
		{ID: 1, Message: &tele.Message{Sender: buyer, Chat: chat, Text: "hi"}},
		{ID: 2, PreCheckoutQuery: &tele.PreCheckoutQuery{ID: "q", Sender: buyer, Payload: "482193", Total: 50000}},
		{ID: 3, Message: &tele.Message{Sender: buyer, Chat: chat, Payment: &tele.Payment{Payload: "482193", Total: 50000}}},
		{ID: 4, Message: &tele.Message{Sender: buyer, Chat: chat, Text: "again"}},
	}
	for _, u := range updates {
		if err := h(b.NewContext(u)); err != nil {
			t.Fatalf("update %d: %v", u.ID, err)
		}
	}
	// The second text message falls inside the interval; payments pass.
	if handled != 3 {
		t.Fatalf("handled = %d, want 3", handled)
	}
}
