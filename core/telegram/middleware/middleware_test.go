package middleware

import (
	"errors"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"
)

func offlineBot(t *testing.T) *tele.Bot {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Offline: true})
	if err != nil {
		t.Fatalf("offline bot: %v", err)
	}
	return b
}

func textUpdate(id int, userID int64, text string) tele.Update {
	return tele.Update{
		ID: id,
		Message: &tele.Message{
			Sender: &tele.User{ID: userID},
			Chat:   &tele.Chat{ID: userID, Type: tele.ChatPrivate},
			Text:   text,
		},
	}
}

func TestUpdateKind(t *testing.T) {
	cases := map[string]tele.Update{
		"payment":  {PreCheckoutQuery: &tele.PreCheckoutQuery{}},
		"callback": {Callback: &tele.Callback{}},
		"message":  {Message: &tele.Message{}},
		"other":    {},
	}
	for want, upd := range cases {
		if got := UpdateKind(upd); got != want {
			t.Fatalf("UpdateKind = %s, want %s", got, want)
		}
	}
	paid := tele.Update{Message: &tele.Message{Payment: &tele.Payment{}}}
	if got := UpdateKind(paid); got != "payment" {
		t.Fatalf("successful payment kind = %s", got)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	b := offlineBot(t)
	clock := time.Unix(1700000000, 0)
	limited := 0
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Second,
		Exclude:   map[string]struct{}{"payment": {}},
		OnLimited: func(tele.Context) error { limited++; return nil },
		Now:       func() time.Time { return clock },
	})
	calls := 0
	h := mw(func(tele.Context) error { calls++; return nil })

	_ = h(b.NewContext(textUpdate(1, 7, "hi")))
	_ = h(b.NewContext(textUpdate(2, 7, "again")))
	if calls != 1 || limited != 1 {
		t.Fatalf("calls=%d limited=%d after burst", calls, limited)
	}

	_ = h(b.NewContext(textUpdate(3, 8, "other user")))
	if calls != 2 {
		t.Fatalf("other user throttled: calls=%d", calls)
	}

	pay := tele.Update{ID: 4, PreCheckoutQuery: &tele.PreCheckoutQuery{Sender: &tele.User{ID: 7}}}
	_ = h(b.NewContext(pay))
	if calls != 3 {
		t.Fatalf("excluded payment update throttled: calls=%d", calls)
	}

	clock = clock.Add(2 * time.Second)
	_ = h(b.NewContext(textUpdate(5, 7, "later")))
	if calls != 4 {
		t.Fatalf("update after interval throttled: calls=%d", calls)
	}
}

func TestAdminOnlyMiddleware(t *testing.T) {
	b := offlineBot(t)
	rejected := 0
	mw := AdminOnlyMiddleware(AdminOptions{
		IsAdmin:  func(id int64) bool { return id == 42 },
		OnReject: func(tele.Context) error { rejected++; return nil },
	})
	calls := 0
	h := mw(func(tele.Context) error { calls++; return nil })

	_ = h(b.NewContext(textUpdate(1, 999, "/admin")))
	_ = h(b.NewContext(textUpdate(2, 42, "/admin")))
	if calls != 1 || rejected != 1 {
		t.Fatalf("calls=%d rejected=%d", calls, rejected)
	}

	closed := AdminOnlyMiddleware(AdminOptions{})(func(tele.Context) error { calls++; return nil })
	_ = closed(b.NewContext(textUpdate(3, 42, "/admin")))
	if calls != 1 {
		t.Fatal("nil allow-list must reject everyone")
	}
}

func TestRecoverMiddleware(t *testing.T) {
	b := offlineBot(t)
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	if err := h(b.NewContext(textUpdate(1, 1, "x"))); err != nil {
		t.Fatalf("recovered handler returned %v", err)
	}
}

func TestMessageMetricsMiddlewareCounts(t *testing.T) {
	b := offlineBot(t)
	sentinel := errors.New("fail")
	var msgs int
	h := MessageMetricsMiddleware(func(c tele.Context) error {
		mc := c.(metricsContext)
		mc.incMessages(true)
		mc.incMessages(false)
		msgs, _ = GetCounters(c)
		return sentinel
	})
	c := b.NewContext(textUpdate(1, 1, "x"))
	if err := h(c); !errors.Is(err, sentinel) {
		t.Fatalf("err = %v", err)
	}
	if msgs != 2 {
		t.Fatalf("messages = %d, want 2", msgs)
	}
	if _, kb := GetCounters(c); !kb {
		t.Fatal("keyboard flag not set")
	}
}
