// waitmux-demo runs the canonical readiness loop against in-process
// producers: goroutines trigger a guard condition and notify subscriptions
// while the main goroutine repeats clear → add → wait → inspect.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/smnsjas/go-waitmux"
	"github.com/smnsjas/go-waitmux/guard"
	"github.com/smnsjas/go-waitmux/subscription"
	"github.com/smnsjas/go-waitmux/waitset"
)

func main() {
	var (
		subscribers = flag.Int("subscriptions", 2, "number of subscriptions to wait on")
		interval    = flag.Duration("interval", 250*time.Millisecond, "producer interval")
		timeout     = flag.Duration("timeout", time.Second, "per-cycle wait timeout")
		debug       = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if !*debug {
		logger = logger.Level(zerolog.InfoLevel)
	}

	// Trap Ctrl+C for clean shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, logger, *subscribers, *interval, *timeout); err != nil {
		logger.Fatal().Err(err).Msg("demo failed")
	}
}

func run(ctx context.Context, logger zerolog.Logger, nSubs int, interval, timeout time.Duration) error {
	wctx := waitmux.NewContext(waitmux.Options{Logger: logger})
	defer wctx.Shutdown()

	gc, err := guard.New(wctx, guard.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer gc.Fini()

	subs := make([]*subscription.Subscription, nSubs)
	for i := range subs {
		sub, err := subscription.New(wctx, subscription.Options{Logger: logger})
		if err != nil {
			return err
		}
		defer sub.Fini()
		subs[i] = sub
	}

	opts := waitset.DefaultOptions()
	opts.Logger = logger
	ws, err := waitset.New(nSubs, 1, opts)
	if err != nil {
		return err
	}
	defer ws.Fini()

	// Producers: one triggers the guard, one notifies each subscription as a
	// stand-in for a transport delivering messages.
	g, prodCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ticker := time.NewTicker(interval * 3)
		defer ticker.Stop()
		for {
			select {
			case <-prodCtx.Done():
				return nil
			case <-ticker.C:
				if err := gc.Trigger(); err != nil {
					return err
				}
				logger.Info().Msg("guard triggered")
			}
		}
	})
	for i, sub := range subs {
		i := i
		handle, err := sub.Handle()
		if err != nil {
			return err
		}
		g.Go(func() error {
			ticker := time.NewTicker(interval + time.Duration(i)*interval/2)
			defer ticker.Stop()
			for {
				select {
				case <-prodCtx.Done():
					return nil
				case <-ticker.C:
					handle.Notify()
					logger.Info().Int("subscription", i).Msg("message arrived")
				}
			}
		})
	}

	// Consumer: the canonical wait loop.
	for cycle := 0; ctx.Err() == nil; cycle++ {
		if err := ws.ClearSubscriptions(); err != nil {
			return err
		}
		if err := ws.ClearGuardConditions(); err != nil {
			return err
		}
		for _, sub := range subs {
			if _, err := ws.AddSubscription(sub); err != nil {
				return err
			}
		}
		if _, err := ws.AddGuardCondition(gc); err != nil {
			return err
		}

		err := ws.Wait(ctx, timeout)
		if errors.Is(err, waitmux.ErrTimeout) {
			logger.Info().Int("cycle", cycle).Msg("nothing ready")
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				// Interrupted; drain producers and exit cleanly.
				break
			}
			return err
		}

		if ws.GuardConditions()[0] != nil {
			logger.Info().Int("cycle", cycle).Msg("guard ready")
		}
		for i, sub := range ws.Subscriptions() {
			if sub == nil {
				continue
			}
			handle, err := sub.Handle()
			if err != nil {
				return err
			}
			taken := 0
			for handle.Consume() {
				taken++
			}
			logger.Info().
				Int("cycle", cycle).
				Int("subscription", i).
				Int("messages", taken).
				Msg("subscription ready")
		}
	}

	logger.Info().Msg("shutting down")
	return g.Wait()
}
