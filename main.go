package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/milk9111/gridpatrol/levels"
	"github.com/milk9111/gridpatrol/nav"
	"github.com/milk9111/gridpatrol/prefabs"
	"github.com/milk9111/gridpatrol/sim"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

func main() {
	levelName := flag.String("level", "perimeter", "level name in levels/ (basename, .json optional)")
	ticks := flag.Int("ticks", 3600, "steps to run, 0 runs until interrupted")
	tps := flag.Int("tps", sim.DefaultTickRate, "steps per simulated second")
	realtime := flag.Bool("realtime", false, "pace steps to wall-clock time")
	async := flag.Bool("async", false, "run path searches on a worker goroutine")
	watch := flag.Bool("watch", false, "reload edited specs and scripts under -prefabs")
	prefabDir := flag.String("prefabs", prefabs.DiskRoot, "directory checked for specs and scripts before the embedded copies")
	debug := flag.Bool("debug", false, "enable debug logging and path invariant checks")
	metricsAddr := flag.String("metrics", "", "serve prometheus metrics on this address, e.g. :2112")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
		nav.SetDebugChecks(true)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	prefabs.DiskRoot = *prefabDir

	lvl, err := levels.LoadLevelFromFS(*levelName)
	if err != nil {
		log.Fatalf("failed to load level %s: %v", *levelName, err)
	}
	world, err := sim.Build(lvl, nil,
		sim.WithLogger(logger),
		sim.WithTickRate(*tps),
		sim.WithAsyncSearch(*async),
	)
	if err != nil {
		log.Fatalf("failed to build level %s: %v", *levelName, err)
	}
	if err := world.Start(); err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	game := NewGame(world, logger, *ticks, *realtime, *debug)
	g, ctx := errgroup.WithContext(ctx)

	if *async {
		g.Go(func() error {
			return ignoreCanceled(world.PathScheduler().Run(ctx))
		})
	}

	if *watch {
		w, err := prefabs.NewWatcher(*prefabDir, filepath.Join(*prefabDir, "scripts"))
		if err != nil {
			log.Fatalf("failed to watch %s: %v", *prefabDir, err)
		}
		defer w.Close()
		g.Go(func() error {
			return forwardReloads(ctx, w.Events, w.Errors, game, logger)
		})
	}

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: *metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
		logger.Info("serving metrics", "addr", *metricsAddr)
	}

	g.Go(func() error {
		defer cancel()
		return ignoreCanceled(game.Run(ctx))
	})

	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
}

// forwardReloads hands edited paths to game until ctx ends or events
// closes. A closed errs is dropped from the select.
func forwardReloads(ctx context.Context, events <-chan string, errs <-chan error, game *Game, logger *slog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case path, ok := <-events:
			if !ok {
				return nil
			}
			game.Reload(ctx, path)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("prefab watcher", "err", err)
		}
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
