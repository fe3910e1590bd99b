package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"scangofer/internal/scanner"
)

// BalanceSource reads wallet balances
type BalanceSource interface {
	GetBalance(ctx context.Context, address string) (float64, error)
	GetTokenBalance(ctx context.Context, address, contract string) (float64, error)
}

// Watcher polls the balances of every watched address on a cron schedule and
// publishes them through the hub
type Watcher struct {
	hub    *Hub
	source BalanceSource
	tokens scanner.Tokens
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	logger zerolog.Logger
	now    func() time.Time
}

// NewWatcher creates a new Watcher. schedule uses the standard cron syntax, including
// descriptors such as "@every 30s".
func NewWatcher(hub *Hub, source BalanceSource, tokens scanner.Tokens, schedule string, logger zerolog.Logger) (*Watcher, error) {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		hub:    hub,
		source: source,
		tokens: tokens,
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		ctx:    ctx,
		cancel: cancel,
		logger: logger.With().Str("component", "feed-watcher").Logger(),
		now:    time.Now,
	}

	if _, err := w.cron.AddFunc(schedule, w.run); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid feed schedule %q: %w", schedule, err)
	}
	return w, nil
}

// Start starts the schedule
func (w *Watcher) Start() {
	w.cron.Start()
	w.logger.Info().Msg("balance watcher started")
}

// Stop stops the schedule and waits for a running poll to finish or ctx to expire
func (w *Watcher) Stop(ctx context.Context) {
	w.cancel()
	done := w.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
	w.logger.Info().Msg("balance watcher stopped")
}

func (w *Watcher) run() {
	published := w.Poll(w.ctx)
	w.logger.Debug().Int("published", published).Msg("poll finished")
}

// Poll reads the balances of every watched address once and publishes them. It
// returns the number of addresses published.
func (w *Watcher) Poll(ctx context.Context) int {
	published := 0
	for _, address := range w.hub.Addresses() {
		if ctx.Err() != nil {
			break
		}

		update, err := w.read(ctx, address)
		if err != nil {
			// a partial read would publish zeros
			w.logger.Debug().Err(err).Str("address", address).Msg("skipping balance update")
			continue
		}

		data, err := json.Marshal(update)
		if err != nil {
			w.logger.Error().Err(err).Msg("failed to marshal balance update")
			continue
		}
		w.hub.Publish(address, marshalMessage(ServerMessage{
			Type:    TypeBalance,
			Address: address,
			Data:    data,
		}))
		published++
	}
	return published
}

func (w *Watcher) read(ctx context.Context, address string) (*BalanceUpdate, error) {
	bnb, err := w.source.GetBalance(ctx, address)
	if err != nil {
		return nil, err
	}
	plex, err := w.source.GetTokenBalance(ctx, address, w.tokens.PLEX.Address.Hex())
	if err != nil {
		return nil, err
	}
	usdt, err := w.source.GetTokenBalance(ctx, address, w.tokens.USDT.Address.Hex())
	if err != nil {
		return nil, err
	}
	return &BalanceUpdate{
		Address:   address,
		BNB:       bnb,
		PLEX:      plex,
		USDT:      usdt,
		UpdatedAt: w.now().UTC(),
	}, nil
}
