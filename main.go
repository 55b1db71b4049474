package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/wdlord/discord-pokebot/broadcast"
	"github.com/wdlord/discord-pokebot/config"
	"github.com/wdlord/discord-pokebot/encounter"
	"github.com/wdlord/discord-pokebot/logger"
	"github.com/wdlord/discord-pokebot/monitor"
	"github.com/wdlord/discord-pokebot/persistence"
	"github.com/wdlord/discord-pokebot/rpc"
	"github.com/wdlord/discord-pokebot/server"
	"github.com/wdlord/discord-pokebot/services"
	"github.com/wdlord/discord-pokebot/session"
	"github.com/wdlord/discord-pokebot/species"
	"github.com/wdlord/discord-pokebot/timer"
)

const (
	sweepInterval = time.Minute
	heartbeat     = 30 * time.Second
)

func main() {
	configPath := flag.String("config", ".", "directory containing config.yaml")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Init()
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.Log.Development {
		logger.InitDevelopment()
	} else {
		logger.Init()
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Log.Fatalw("server exited", "error", err)
	}
	logger.Log.Info("shutdown complete")
}

func openStore(db config.DatabaseConfig) (persistence.Store, error) {
	pg := db.Postgres
	switch db.Driver {
	case config.DriverMemory:
		return persistence.NewMemoryStore(), nil
	case config.DriverSQLite:
		return persistence.NewSQLite(db.SQLite.Path)
	case config.DriverPostgres:
		return persistence.NewGormPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName, pg.SSLMode)
	case config.DriverPostgresSQL:
		return persistence.NewPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName, pg.SSLMode)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", db.Driver)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	// Initialize Database
	store, err := openStore(cfg.Database)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()
	logger.Log.Infow("database ready", "driver", cfg.Database.Driver)

	dir, err := species.LoadDirectory(cfg.Game.SpeciesFile)
	if err != nil {
		return err
	}
	if dir.Len() == 0 {
		return errors.New("species file lists no species")
	}
	graph := species.NewPokeAPIClient(species.PokeAPIConfig{BaseURL: cfg.Game.PokeAPIURL})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := monitor.NewMetrics("pokebot", reg)

	ledger := services.NewLedger(store, cfg.Game.MaxRolls, metrics)
	roster := services.NewRoster(ledger)
	trades := services.NewTrades(ledger)

	sessions := session.NewManager()
	broadcaster := broadcast.NewSessionBroadcaster(sessions)
	encounters := encounter.NewManager(ledger, dir, broadcaster, encounter.Options{
		TTL:             cfg.Game.EncounterTTL,
		EncounterChance: cfg.Game.EncounterChance,
		BerryChance:     cfg.Game.BerryChance,
		ShinyChance:     cfg.Game.ShinyChance,
	})

	gameServer := server.NewGameServer(server.Options{
		Addr:      cfg.Server.HTTPAddress,
		Heartbeat: heartbeat,
		Metrics:   metrics,
	}, sessions, broadcaster, server.Services{
		Ledger:     ledger,
		Favorites:  services.NewFavorites(ledger),
		Roster:     roster,
		Evolution:  services.NewEvolution(ledger, graph),
		Trades:     trades,
		Rolls:      services.NewRolls(ledger, dir, cfg.Game.ShinyChance),
		Encounters: encounters,
		Directory:  dir,
	})

	adminServer, err := rpc.NewServer(cfg.Server.RPCAddress, rpc.NewAdminService(ledger, roster, dir))
	if err != nil {
		return fmt.Errorf("listen rpc: %w", err)
	}

	timers := timer.NewTimerManager()
	defer timers.Stop()
	timers.AddTimer(sweepInterval, sweepInterval, func() {
		swept := encounters.Sweep()
		expired := trades.Expire(cfg.Game.TradeTTL)
		if swept > 0 || expired > 0 {
			logger.Log.Debugw("swept expired state", "encounters", swept, "trades", expired)
		}
	})
	scheduler := timer.NewDailyScheduler(timers, cfg.ResetTimes(), func(ctx context.Context) error {
		_, err := ledger.ResetAllRolls(ctx)
		return err
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return gameServer.Run(gctx) })
	g.Go(func() error { return adminServer.Run(gctx) })
	g.Go(func() error { return monitor.Serve(gctx, cfg.Server.MetricsAddress, reg) })
	g.Go(func() error { return scheduler.Run(gctx) })
	return g.Wait()
}
