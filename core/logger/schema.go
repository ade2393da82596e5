package logger

import "strings"

var levelNames = map[string]string{
	"debug":   "DEBUG",
	"info":    "INFO",
	"warn":    "WARN",
	"warning": "WARN",
	"error":   "ERROR",
}

var statusAliases = map[string]string{
	"ok":        "ok",
	"success":   "ok",
	"fail":      "fail",
	"failed":    "fail",
	"error":     "fail",
	"skip":      "skip",
	"retry":     "retry",
	"rejected":  "rejected",
	"duplicate": "duplicate",
}

var allowedOutcome = map[string]struct{}{
	"ok":           {},
	"fail":         {},
	"rejected":     {},
	"ignored":      {},
	"cancelled":    {},
	"rate_limited": {},
}

func normalizeLevel(level string) string {
	if level == "" {
		return "INFO"
	}
	if mapped, ok := levelNames[strings.ToLower(level)]; ok {
		return mapped
	}
	return strings.ToUpper(level)
}

func normalizeStatus(status string) string {
	status = strings.ToLower(strings.TrimSpace(status))
	if mapped, ok := statusAliases[status]; ok {
		return mapped
	}
	return status
}

func normalizeOutcome(outcome string) (string, bool) {
	outcome = strings.ToLower(strings.TrimSpace(outcome))
	_, ok := allowedOutcome[outcome]
	return outcome, ok
}

var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"handler",
	"op",
	"cb_key",
	"state",
	"from_state",
	"to_state",
	"order_id",
	"outcome",
	"duration_ms",
	"messages",
	"kb",
	"count",
	"amount",
	"currency",
	"payload",
	"lang",
	"username",
	"mode",
	"listen",
	"public_url",
	"driver",
	"db",
	"host",
	"port",
	"err",
	"err_code",
	"cause",
	"attempts",
	"backoff_ms",
}
