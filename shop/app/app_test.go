package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/surokacs/petertrain-bot/core/config"
	tg "github.com/surokacs/petertrain-bot/core/telegram"
	"github.com/surokacs/petertrain-bot/shop/config"
	"github.com/surokacs/petertrain-bot/shop/orders"
)

const products = `[{"category":"Concerts","items":[{"name":"Ticket","description":"Evening show","price":50000}]}]`

func quietLogger(*coreconfig.Config) error { return nil }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "products.json")
	require.NoError(t, os.WriteFile(catalogPath, []byte(products), 0o644))

	cfg := &config.Config{}
	cfg.Telegram.Token = "123:abc"
	cfg.Telegram.AdminIDs = []int64{1371340477}
	cfg.Catalog.Path = catalogPath
	cfg.Database.Path = filepath.Join(dir, "orders.json")
	require.NoError(t, config.Normalize(cfg))
	return cfg
}

func TestNewWiresFileBackedApp(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg, Options{LoggerInit: quietLogger})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close()) })

	assert.IsType(t, &orders.FileStore{}, a.orders)
	assert.NotNil(t, a.memory)
	assert.Nil(t, a.redis)
	assert.Nil(t, a.events)

	var names []string
	for _, s := range a.Services() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"ops", "sessions.sweep"}, names)
}

func TestTelegramRunOptions(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), Options{LoggerInit: quietLogger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	opts, err := a.TelegramRunOptions()
	require.NoError(t, err)
	assert.Same(t, a.cfg.CoreConfig(), opts.Config)
	assert.NotEmpty(t, opts.Middlewares)

	endpoints := map[any]bool{}
	for _, r := range opts.Routes {
		endpoints[r.Endpoint] = true
	}
	for _, e := range []any{"/start", "/cancel", "/admin", tele.OnCallback, tele.OnText, tele.OnCheckout, tele.OnPayment} {
		assert.True(t, endpoints[e], "missing route %v", e)
	}

	b, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)
	require.NoError(t, opts.OnStart(context.Background(), tg.Runtime{Bot: b}))
}

func TestNewFailsWithoutCatalog(t *testing.T) {
	cfg := testConfig(t)
	cfg.Catalog.Path = filepath.Join(t.TempDir(), "missing.json")
	_, err := New(context.Background(), cfg, Options{LoggerInit: quietLogger})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "startup check failed")
}

func TestNewWiresKafkaHook(t *testing.T) {
	cfg := testConfig(t)
	cfg.Kafka.Brokers = []string{"localhost:9092"}
	require.NoError(t, config.Normalize(cfg))

	producer := mocks.NewSyncProducer(t, nil)
	a, err := New(context.Background(), cfg, Options{
		LoggerInit: quietLogger,
		KafkaProducer: func(brokers []string) (sarama.SyncProducer, error) {
			assert.Equal(t, []string{"localhost:9092"}, brokers)
			return producer, nil
		},
	})
	require.NoError(t, err)
	assert.NotNil(t, a.events)
	assert.NoError(t, a.Close())
}

func TestNewReportsKafkaFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.Kafka.Brokers = []string{"localhost:9092"}
	_, err := New(context.Background(), cfg, Options{
		LoggerInit: quietLogger,
		KafkaProducer: func([]string) (sarama.SyncProducer, error) {
			return nil, errors.New("kafka: client has run out of available brokers")
		},
	})
	assert.ErrorContains(t, err, "kafka producer")
}

func TestBootstrapRejectsForeignConfig(t *testing.T) {
	_, err := Bootstrap(context.Background(), foreignConfig{})
	assert.Error(t, err)
}

type foreignConfig struct{}

func (foreignConfig) CoreConfig() *coreconfig.Config { return &coreconfig.Config{} }
