package middleware

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/surokacs/petertrain-bot/core/logger"
	"github.com/surokacs/petertrain-bot/core/telegram/callbacks"
	tghelpers "github.com/surokacs/petertrain-bot/core/telegram/helpers"
)

const seenTTL = 10 * time.Second

// seen remembers recently logged update ids; the middleware may wrap more
// than one handler branch for the same update.
var seen = struct {
	sync.Mutex
	at map[int]time.Time
}{at: make(map[int]time.Time)}

func firstSighting(updateID int) bool {
	now := time.Now()
	seen.Lock()
	defer seen.Unlock()
	for id, ts := range seen.at {
		if now.Sub(ts) > seenTTL {
			delete(seen.at, id)
		}
	}
	if _, dup := seen.at[updateID]; dup {
		return false
	}
	seen.at[updateID] = now
	return true
}

// LoggerMiddleware assigns the update's rid, caches its logging context and
// emits one sampled debug line per update.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		upd := c.Update()
		userID := tghelpers.UserID(c)
		var chatID int64
		if chat := c.Chat(); chat != nil {
			chatID = chat.ID
		}
		rid := logger.BuildRID(upd.ID, chatID, userID)
		c.Set("rid", rid)
		c.Set("update_start", time.Now())

		ctx := logger.WithUpdateMeta(logger.WithRID(logger.Background(), rid), upd.ID, userID, chatID)
		ctx = logger.WithLogger(ctx, logger.Component("tg"))
		tghelpers.StoreContext(c, ctx)

		if logger.ShouldSampleDebug() && firstSighting(upd.ID) {
			attrs := append(senderAttrs(c, rid), payloadAttrs(c)...)
			logger.LogEvent(ctx, logger.Component("tg"), slog.LevelDebug, "update.received", attrs...)
		}
		return next(c)
	}
}

func senderAttrs(c tele.Context, rid string) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("status", "ok"),
		slog.String("rid", rid),
		slog.Int("update_id", c.Update().ID),
	}
	if chat := c.Chat(); chat != nil {
		attrs = append(attrs, slog.Int64("chat_id", chat.ID), slog.String("chat_type", string(chat.Type)))
	}
	if user := c.Sender(); user != nil {
		attrs = append(attrs, slog.Int64("user_id", user.ID))
		if user.Username != "" {
			attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
		}
		if user.LanguageCode != "" {
			attrs = append(attrs, slog.String("lang", user.LanguageCode))
		}
	}
	return attrs
}

// payloadAttrs describes what the update carries. Typed e-mail addresses are
// masked.
func payloadAttrs(c tele.Context) []slog.Attr {
	upd := c.Update()
	switch {
	case upd.Callback != nil:
		var attrs []slog.Attr
		key, payload := callbacks.Split(upd.Callback)
		if key != "" {
			attrs = append(attrs, slog.String("cb_key", logger.SanitizeLimit(key, 128)))
		}
		if payload != "" {
			attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(payload, 256)))
		}
		return attrs
	case upd.PreCheckoutQuery != nil:
		q := upd.PreCheckoutQuery
		return invoiceAttrs(q.Payload, q.Total, q.Currency)
	case upd.Message != nil && upd.Message.Payment != nil:
		p := upd.Message.Payment
		return invoiceAttrs(p.Payload, p.Total, p.Currency)
	case upd.Message != nil:
		t := logger.SanitizeLimit(c.Text(), 256)
		if t == "" {
			return nil
		}
		if strings.Contains(t, "@") {
			t = logger.MaskEmail(t)
		}
		return []slog.Attr{slog.String("payload", t)}
	}
	return nil
}

func invoiceAttrs(payload string, total int, currency string) []slog.Attr {
	return []slog.Attr{
		slog.String("payload", logger.SanitizeLimit(payload, 64)),
		slog.Int("amount", total),
		slog.String("currency", currency),
	}
}
