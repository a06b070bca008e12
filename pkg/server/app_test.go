package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendPulse/pkg/config"
	xhttp "TrendPulse/pkg/http"
	applogger "TrendPulse/pkg/logger"
)

type closer struct {
	closed *[]string
	name   string
	err    error
}

func (c closer) Close() error {
	*c.closed = append(*c.closed, c.name)
	return c.err
}

type pruner struct{}

func (*pruner) Prune() int { return 0 }

func TestRunContextShutsDownInOrder(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.Server.Port = 0

	var closed []string
	var nilPruner *pruner
	srv := xhttp.NewServer(nil, xhttp.WithHost("127.0.0.1"), xhttp.WithPort(0), xhttp.WithMetrics(false, ""))
	app := New(cfg, applogger.Nop(), srv,
		WithCloser("publisher", closer{closed: &closed, name: "publisher"}),
		WithCloser("store", closer{closed: &closed, name: "store", err: errors.New("already closed")}),
		WithCloser("disabled", nil),
		WithLimiter(nilPruner),
	)
	assert.Nil(t, app.pruner)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, app.RunContext(ctx))
	assert.Equal(t, []string{"publisher", "store"}, closed)
}
