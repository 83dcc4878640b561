// shaktrisd is the Shaktris game server: a websocket endpoint for
// interactive clients and an HTTP API for external computer players.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/shaktris/shaktris/internal/ai"
	"github.com/shaktris/shaktris/internal/board"
	"github.com/shaktris/shaktris/internal/events"
	"github.com/shaktris/shaktris/internal/game"
	"github.com/shaktris/shaktris/internal/server"
	"github.com/shaktris/shaktris/internal/session"
	"github.com/shaktris/shaktris/internal/storage"
)

type serveOptions struct {
	port       int
	bind       string
	dataDir    string
	minTurnMs  int
	clearWidth int
	queueSize  int
	verbose    bool
}

func main() {
	root := &cobra.Command{
		Use:           "shaktrisd",
		Short:         "Shaktris game server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCommand())

	if err := root.Execute(); err != nil {
		log.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func serveCommand() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the game server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Env values back unset flags, so container deploys can
			// configure the listener without touching the command line.
			if !cmd.Flags().Changed("port") {
				if v := os.Getenv("PORT"); v != "" {
					p, err := strconv.Atoi(v)
					if err != nil {
						return fmt.Errorf("invalid PORT %q: %w", v, err)
					}
					opts.port = p
				}
			}
			if !cmd.Flags().Changed("bind") {
				if v := os.Getenv("BIND_ADDRESS"); v != "" {
					opts.bind = v
				}
			}
			return serve(cmd.Context(), opts)
		},
	}
	cmd.Flags().IntVar(&opts.port, "port", 8080, "listening port (env PORT)")
	cmd.Flags().StringVar(&opts.bind, "bind", "0.0.0.0", "bind address (env BIND_ADDRESS)")
	cmd.Flags().StringVar(&opts.dataDir, "data-dir", "", "data directory (default: platform data dir)")
	cmd.Flags().IntVar(&opts.minTurnMs, "min-turn-ms", 10000, "minimum milliseconds between a player's moves")
	cmd.Flags().IntVar(&opts.clearWidth, "clear-width", 8, "contiguous run length that clears a row")
	cmd.Flags().IntVar(&opts.queueSize, "queue-size", 128, "per-game work queue size")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	return cmd
}

func serve(ctx context.Context, opts *serveOptions) error {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
	})
	if opts.verbose {
		logger.SetLevel(log.DebugLevel)
	}

	dataDir := opts.dataDir
	if dataDir == "" {
		var err error
		if dataDir, err = storage.DataDir(); err != nil {
			return fmt.Errorf("resolve data dir: %w", err)
		}
	}
	dbDir, err := storage.DatabaseDir(dataDir)
	if err != nil {
		return fmt.Errorf("prepare database dir: %w", err)
	}
	store, err := storage.Open(dbDir)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()
	logger.Info("store opened", "dir", dbDir)

	bus := events.NewBus(events.DefaultConfig(), logger)
	coord := session.NewCoordinator(session.Config{
		Game: game.Config{
			MinTurnDuration: time.Duration(opts.minTurnMs) * time.Millisecond,
			QueueSize:       opts.queueSize,
			Rules: board.Config{
				ClearWidth:        opts.clearWidth,
				PromotionDistance: board.DefaultConfig().PromotionDistance,
			},
		},
	}, bus, store, logger)
	defer coord.Shutdown()

	sched := ai.NewScheduler(coord, logger)
	defer sched.Stop()
	registry := ai.NewRegistry(store, logger)

	srv := server.New(server.Config{
		Addr: net.JoinHostPort(opts.bind, strconv.Itoa(opts.port)),
	}, coord, sched, registry, logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return srv.Run(ctx)
	})
	eg.Go(func() error {
		<-ctx.Done()
		logger.Info("shutdown requested")
		return nil
	})
	if err := eg.Wait(); err != nil {
		return err
	}
	logger.Info("bye")
	return nil
}
