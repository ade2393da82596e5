package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type fakeSender struct {
	to    tele.Recipient
	what  interface{}
	err   error
	block chan struct{}
}

func (f *fakeSender) Send(to tele.Recipient, what interface{}, _ ...interface{}) (*tele.Message, error) {
	if f.block != nil {
		<-f.block
	}
	f.to, f.what = to, what
	return &tele.Message{}, f.err
}

func ticketRequest() Request {
	return Request{UserID: 42, CorrelationID: "482193", Title: "Ticket", Description: "d", Amount: 50000, Currency: "RUB"}
}

func TestTelegramGatewaySendsInvoice(t *testing.T) {
	g := NewTelegramGateway(TelegramOptions{ProviderToken: "381764678:TEST:1"})
	s := &fakeSender{}
	g.Bind(s)

	require.NoError(t, g.RequestPayment(context.Background(), ticketRequest()))
	assert.Equal(t, "42", s.to.Recipient())
	inv, ok := s.what.(*tele.Invoice)
	require.True(t, ok)
	assert.Equal(t, "482193", inv.Payload)
	assert.Equal(t, "RUB", inv.Currency)
	assert.Equal(t, "381764678:TEST:1", inv.Token)
	assert.Equal(t, []tele.Price{{Label: "Ticket", Amount: 50000}}, inv.Prices)
}

func TestTelegramGatewayDescriptionFallback(t *testing.T) {
	g := NewTelegramGateway(TelegramOptions{ProviderToken: "x"})
	req := ticketRequest()
	req.Description = " "
	assert.Equal(t, "Ticket", g.Invoice(req).Description)
}

func TestTelegramGatewayPreconditions(t *testing.T) {
	g := NewTelegramGateway(TelegramOptions{})
	assert.ErrorIs(t, g.RequestPayment(context.Background(), ticketRequest()), ErrNoProviderToken)

	g = NewTelegramGateway(TelegramOptions{ProviderToken: "x"})
	assert.ErrorIs(t, g.RequestPayment(context.Background(), ticketRequest()), ErrNotBound)

	g.Bind(&fakeSender{})
	req := ticketRequest()
	req.Amount = 0
	assert.Error(t, g.RequestPayment(context.Background(), req))
}

func TestTelegramGatewayErrors(t *testing.T) {
	g := NewTelegramGateway(TelegramOptions{ProviderToken: "x"})
	g.Bind(&fakeSender{err: errors.New("telegram: PAYMENT_PROVIDER_INVALID (400)")})
	assert.ErrorContains(t, g.RequestPayment(context.Background(), ticketRequest()), "PAYMENT_PROVIDER_INVALID")

	block := make(chan struct{})
	defer close(block)
	g = NewTelegramGateway(TelegramOptions{ProviderToken: "x", Timeout: 20 * time.Millisecond})
	g.Bind(&fakeSender{block: block})
	assert.ErrorIs(t, g.RequestPayment(context.Background(), ticketRequest()), context.DeadlineExceeded)
}

func TestGatewayFunc(t *testing.T) {
	var got Request
	var gw Gateway = GatewayFunc(func(_ context.Context, req Request) error {
		got = req
		return nil
	})
	require.NoError(t, gw.RequestPayment(context.Background(), ticketRequest()))
	assert.Equal(t, ticketRequest(), got)
}
