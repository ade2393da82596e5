package callbacks

import (
	"fmt"
	"strconv"

	tele "gopkg.in/telebot.v4"
)

// PayloadInt parses the callback payload as a non-negative index, the form
// used by list buttons ("cat|2").
func PayloadInt(c tele.Context) (int, error) {
	raw := CallbackPayload(c)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("callback payload %q: %w", raw, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("callback payload %q: negative index", raw)
	}
	return n, nil
}
