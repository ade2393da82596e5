package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"
)

var (
	// ErrNotBound is returned when an invoice is requested before the bot started.
	ErrNotBound = errors.New("payment: gateway is not bound to a bot")
	// ErrNoProviderToken is returned when payments are not configured.
	ErrNoProviderToken = errors.New("payment: provider token is empty")
)

// Sender is the part of *tele.Bot used to deliver invoices.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// TelegramOptions configures invoice delivery.
type TelegramOptions struct {
	ProviderToken string
	Timeout       time.Duration
}

// TelegramGateway sends Telegram invoices. The bot is bound after it has been
// created by the runtime.
type TelegramGateway struct {
	opts TelegramOptions

	mu     sync.RWMutex
	sender Sender
}

// NewTelegramGateway returns an unbound gateway.
func NewTelegramGateway(opts TelegramOptions) *TelegramGateway {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &TelegramGateway{opts: opts}
}

// Bind attaches the bot used for sending invoices.
func (g *TelegramGateway) Bind(s Sender) {
	g.mu.Lock()
	g.sender = s
	g.mu.Unlock()
}

// Invoice builds the invoice for req.
func (g *TelegramGateway) Invoice(req Request) tele.Invoice {
	return tele.Invoice{
		Title:       req.Title,
		Description: invoiceDescription(req),
		Payload:     req.CorrelationID.String(),
		Currency:    req.Currency,
		Token:       g.opts.ProviderToken,
		Prices:      []tele.Price{{Label: req.Title, Amount: int(req.Amount)}},
		Total:       int(req.Amount),
	}
}

// invoiceDescription falls back to the title; Telegram rejects an empty one.
func invoiceDescription(req Request) string {
	if d := strings.TrimSpace(req.Description); d != "" {
		return d
	}
	return req.Title
}

// RequestPayment implements Gateway. The call is abandoned once ctx is done
// or the configured timeout elapses.
func (g *TelegramGateway) RequestPayment(ctx context.Context, req Request) error {
	if strings.TrimSpace(g.opts.ProviderToken) == "" {
		return ErrNoProviderToken
	}
	g.mu.RLock()
	s := g.sender
	g.mu.RUnlock()
	if s == nil {
		return ErrNotBound
	}
	if req.Amount <= 0 {
		return fmt.Errorf("payment: non-positive amount %d", req.Amount)
	}

	ctx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	inv := g.Invoice(req)
	done := make(chan error, 1)
	go func() {
		_, err := s.Send(tele.ChatID(req.UserID), &inv)
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("payment: send invoice: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("payment: send invoice: %w", ctx.Err())
	}
}
