package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Split returns the callback key and payload. Telebot encodes button data as
// "\f<unique>|<payload>"; when a dedicated handler matched, Unique is already
// set and Data holds only the payload.
func Split(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	raw := strings.TrimPrefix(cb.Data, "\f")
	key, payload, _ := strings.Cut(raw, "|")
	return strings.TrimSpace(key), payload
}

// CallbackKey returns the unique key of the callback in c.
func CallbackKey(c tele.Context) string {
	key, _ := Split(c.Callback())
	return key
}

// CallbackPayload returns the payload (after '|') of the callback in c.
func CallbackPayload(c tele.Context) string {
	_, payload := Split(c.Callback())
	return payload
}
