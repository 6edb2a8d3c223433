package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/citydefense/server/internal/config"
	"github.com/citydefense/server/internal/game"
	"github.com/citydefense/server/internal/persist"
	"github.com/citydefense/server/internal/render/termview"
	"github.com/citydefense/server/internal/telemetry"
	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(seed int64) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m            City Defense  v0.1.0           \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m        missile defense simulation         \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mseed:\033[0m %d\n\n", seed)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main loop ─────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := config.Path()
	cfg, err := config.Load(cfgPath)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = config.Defaults()
		err = nil
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger. The terminal view owns stdout, so logs go to a file.
	if cfg.View.Terminal && cfg.Logging.File == "" {
		cfg.Logging.File = "citydefense.log"
	}
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Sim.Seed)

	// 3. Optional result store
	var results game.ResultStore
	if cfg.Database.Enabled {
		printSection("database")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL connected")

		version, err := db.Migrate(ctx)
		if err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK(fmt.Sprintf("schema at version %d", version))

		repo := persist.NewRunRepo(db)
		if top, err := repo.Top(ctx, 1); err == nil && len(top) > 0 {
			printStat("best score", top[0].Score)
		}
		results = repo
		fmt.Println()
	}

	// 4. Terminal view
	var view *termview.View
	var screen tcell.Screen
	if cfg.View.Terminal {
		screen, err = tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("terminal: %w", err)
		}
		if err := screen.Init(); err != nil {
			return fmt.Errorf("terminal: %w", err)
		}
		defer screen.Fini()
		screen.EnableMouse()
		view = termview.New(screen, cfg.View.Scale)
	}

	// 5. Game
	printSection("simulation")
	opts := game.Options{Results: results}
	if view != nil {
		opts.Scene = view
	}
	g, err := game.New(cfg, log, opts)
	if err != nil {
		return fmt.Errorf("game: %w", err)
	}
	defer g.Close()
	city := g.City()
	printStat("buildings", city.Accepted)
	printStat("rejected placements", city.Rejected)
	printStat("rescuable points", city.Rescuable)
	fmt.Println()

	// 6. Telemetry
	var tele *telemetry.Server
	if cfg.Telemetry.Enabled {
		tele = telemetry.NewServer(g, telemetry.Options{
			TokenHash: cfg.Telemetry.TokenHash,
			SendRate:  cfg.Telemetry.SendRate,
		}, log)
		go func() {
			if err := tele.ListenAndServe(cfg.Telemetry.BindAddress); err != nil {
				log.Error("telemetry stopped", zap.Error(err))
			}
		}()
		printOK(fmt.Sprintf("telemetry on %s", cfg.Telemetry.BindAddress))
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	eventCh := make(chan tcell.Event, 64)
	if screen != nil {
		go func() {
			for {
				ev := screen.PollEvent()
				if ev == nil {
					return
				}
				eventCh <- ev
			}
		}()
	}

	ticker := time.NewTicker(cfg.Sim.TickRate)
	defer ticker.Stop()
	printReady(fmt.Sprintf("game loop started (tick: %s)", cfg.Sim.TickRate))

	last := time.Now()
	for {
		select {
		case now := <-ticker.C:
			g.Update(now.Sub(last))
			last = now
			if view != nil {
				view.Draw(g.HUD())
			} else if g.Over() {
				printSummary(g)
				return shutdown(tele, log)
			}

		case ev := <-eventCh:
			if !handleInput(g, view, ev) {
				return shutdown(tele, log)
			}

		case sig := <-shutdownCh:
			log.Info("shutdown signal", zap.String("signal", sig.String()))
			return shutdown(tele, log)
		}
	}
}

// handleInput reacts to terminal events; false quits.
func handleInput(g *game.Game, view *termview.View, ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
			return false
		}
		if ev.Key() == tcell.KeyRune {
			switch ev.Rune() {
			case 'q':
				return false
			case 'd':
				g.ToggleDebug()
			}
		}
	case *tcell.EventMouse:
		if ev.Buttons()&tcell.Button1 == 0 || g.Over() {
			return true
		}
		g.FireAt(view.FromCell(ev.Position()))
	}
	return true
}

func printSummary(g *game.Game) {
	res := g.Result()
	if res == nil {
		return
	}
	fmt.Println()
	printSection("game over")
	printStat("score", res.Score)
	printStat("seconds survived", int(res.Survived))
	printStat("waves", g.Waves().Wave())
	printStat("buildings lost", g.State().Score.BuildingsLost())
	printStat("missiles destroyed", g.State().Score.MissilesDestroyed())
}

func shutdown(tele *telemetry.Server, log *zap.Logger) error {
	if tele != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tele.Shutdown(ctx); err != nil {
			log.Warn("telemetry shutdown", zap.Error(err))
		}
	}
	log.Info("stopped")
	return nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	if cfg.File != "" {
		zapCfg.OutputPaths = []string{cfg.File}
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
