package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/quizbot/internal/config"
)

func testConfig(t *testing.T) *config.App {
	t.Helper()
	root := t.TempDir()
	path := filepath.Join(root, "science", "planets.csv")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("question,option1,option2,answer\nLargest?,Jupiter,Mars,1\n"), 0o644))

	return &config.App{
		Name:                    "quizbot-test",
		Env:                     "test",
		LogLevel:                "disabled",
		HTTPAddr:                "127.0.0.1:0",
		Transport:               config.TransportWebSocket,
		GracefulShutdownTimeout: 2 * time.Second,
		Quiz: config.Quiz{
			BankDir:         root,
			TimerChoices:    []int{30},
			DefaultTimeout:  30 * time.Second,
			TransitionDelay: time.Millisecond,
		},
	}
}

func TestNewWebSocketWithoutRedis(t *testing.T) {
	cfg := testConfig(t)

	a, err := New(context.Background(), cfg, Options{Registerer: prometheus.NewRegistry()})
	require.NoError(t, err)

	assert.Nil(t, a.redis)
	assert.Nil(t, a.warmer)
	assert.Nil(t, a.bot)
	assert.NotNil(t, a.sessions)
}

func TestNewWithRedisEnablesWarmer(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Redis = config.Redis{Addr: mr.Addr(), PoolSize: 2, BankTTL: time.Minute, WarmInterval: time.Minute}

	a, err := New(context.Background(), cfg, Options{Registerer: prometheus.NewRegistry()})
	require.NoError(t, err)
	require.NotNil(t, a.redis)
	require.NotNil(t, a.warmer)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool {
		return mr.Exists("question:bank:science:planets")
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestNewRejectsUnknownTransport(t *testing.T) {
	cfg := testConfig(t)
	cfg.Transport = "carrier-pigeon"

	_, err := New(context.Background(), cfg, Options{Registerer: prometheus.NewRegistry()})
	require.Error(t, err)
}
