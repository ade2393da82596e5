package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
	tele "gopkg.in/telebot.v4"
)

var updatesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "petertrain_tg_updates_total",
	Help: "Telegram updates handled, by kind and result.",
}, []string{"kind", "outcome"})

var messagesSent = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "petertrain_tg_messages_sent_total",
	Help: "Messages sent or edited in reply to updates.",
})

// Collectors returns the Telegram transport metrics for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{updatesTotal, messagesSent}
}

// metricsContext wraps tele.Context to count sent messages and detect keyboard usage.
type metricsContext struct{ tele.Context }

func (m metricsContext) incMessages(hasKB bool) {
	n, _ := m.Get("messages").(int)
	m.Set("messages", n+1)
	if hasKB {
		m.Set("kb", true)
	}
	messagesSent.Inc()
}

func hasKeyboard(opts []interface{}) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return true
			}
		case *tele.ReplyMarkup:
			if v != nil {
				return true
			}
		}
	}
	return false
}

// Send proxies tele.Context.Send while updating message counters.
func (m metricsContext) Send(what interface{}, opts ...interface{}) error {
	err := m.Context.Send(what, opts...)
	if err == nil {
		m.incMessages(hasKeyboard(opts))
	}
	return err
}

// Reply proxies tele.Context.Reply while updating message counters.
func (m metricsContext) Reply(what interface{}, opts ...interface{}) error {
	err := m.Context.Reply(what, opts...)
	if err == nil {
		m.incMessages(hasKeyboard(opts))
	}
	return err
}

// Edit proxies tele.Context.Edit while updating message counters.
func (m metricsContext) Edit(what interface{}, opts ...interface{}) error {
	err := m.Context.Edit(what, opts...)
	if err == nil {
		m.incMessages(hasKeyboard(opts))
	}
	return err
}

// EditOrSend proxies tele.Context.EditOrSend while updating message counters.
func (m metricsContext) EditOrSend(what interface{}, opts ...interface{}) error {
	err := m.Context.EditOrSend(what, opts...)
	if err == nil {
		m.incMessages(hasKeyboard(opts))
	}
	return err
}

// MessageMetricsMiddleware instruments context to track messages count and
// keyboard usage, and counts handled updates per kind.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		c.Set("messages", 0)
		c.Set("kb", false)
		err := next(metricsContext{Context: c})
		outcome := "ok"
		if err != nil {
			outcome = "fail"
		}
		updatesTotal.WithLabelValues(UpdateKind(c.Update()), outcome).Inc()
		return err
	}
}

// GetCounters reads message count and keyboard presence flags from context.
func GetCounters(c tele.Context) (int, bool) {
	msgs, _ := c.Get("messages").(int)
	kb, _ := c.Get("kb").(bool)
	return msgs, kb
}
