package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"plannerd/internal/alert"
	"plannerd/internal/config"
	"plannerd/internal/ics"
	"plannerd/internal/log"
	"plannerd/internal/recurrence"
	"plannerd/internal/storage"
	"plannerd/internal/store"
	"plannerd/internal/update"
	"plannerd/internal/worksession"
)

func newRootCmd() *cobra.Command {
	var configPath string
	var cfg *config.Config

	root := &cobra.Command{
		Use:           "plannerd",
		Short:         "Terminal calendar with deadline-aware work-session planning",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfg = loaded
			log.SetLevel(log.ParseLevel(cfg.LogLevel))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), cfg)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "path to the config file")

	root.AddCommand(&cobra.Command{
		Use:   "tui",
		Short: "Open the interactive calendar",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), cfg)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "import [source...]",
		Short: "Import ICS feeds into the calendar",
		Long:  "Import the given ICS files or URLs, or every configured feed when no source is named.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), cfg, args)
		},
	})

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	migrate.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cfg, storage.MigrateUp)
		},
	})
	migrate.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll the schema back",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cfg, storage.MigrateDown)
		},
	})
	root.AddCommand(migrate)

	return root
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "plannerd.yaml"
	}
	return filepath.Join(home, ".plannerd", "plannerd.yaml")
}

func withDB(cfg *config.Config, fn func(*sql.DB) error) error {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	return fn(db)
}

func openState(ctx context.Context, cfg *config.Config) (*storage.SQLiteRepository, *store.Store, *recurrence.Engine, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o700); err != nil {
		return nil, nil, nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := storage.MigrateUp(db); err != nil {
		_ = db.Close()
		return nil, nil, nil, fmt.Errorf("migrate: %w", err)
	}
	repo, err := storage.NewSQLiteRepository(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, nil, err
	}

	st := store.New()
	eng := recurrence.New(st)
	if err := storage.LoadState(ctx, repo, st, eng); err != nil {
		_ = repo.Close()
		return nil, nil, nil, fmt.Errorf("load state: %w", err)
	}
	return repo, st, eng, nil
}

func strategyFor(cfg *config.Config) worksession.Orderer {
	if cfg.Strategy == "procrastinator" {
		return worksession.Procrastinator{}
	}
	return worksession.MorningPerson{}
}

func runTUI(ctx context.Context, cfg *config.Config) error {
	repo, st, eng, err := openState(ctx, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	planner := worksession.NewScheduler(st, strategyFor(cfg))
	alerts := alert.NewEngine(16)
	for _, a := range alert.PlanSchedule(st, time.Now(), 10*time.Minute) {
		if err := alerts.Schedule(a); err != nil {
			log.Error("schedule alert", err, "event", a.EventID)
		}
	}
	alerts.Start()
	defer alerts.Stop()

	m := update.NewModel(update.Deps{
		Store:   st,
		Engine:  eng,
		Planner: planner,
		Alerts:  alerts,
		Cfg:     cfg,
	})
	m.SetNotifier(update.ExecNotifier{})

	program := tea.NewProgram(m)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	if err := storage.SaveState(ctx, repo, st, eng); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func runImport(ctx context.Context, cfg *config.Config, sources []string) error {
	if len(sources) == 0 {
		for _, feed := range cfg.Feeds {
			sources = append(sources, feed.Source)
		}
	}
	if len(sources) == 0 {
		log.Info("no feeds configured")
		return nil
	}
	repo, st, eng, err := openState(ctx, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	importer := ics.NewImporter(st)
	now := time.Now()
	expand := ics.ExpandConfig{
		Location: cfg.Location(),
		From:     now.AddDate(0, 0, -1),
		To:       now.AddDate(0, 0, cfg.HorizonDays),
	}
	total := 0
	for _, source := range sources {
		added, err := importer.ImportFeed(ctx, source, expand)
		if err != nil {
			return fmt.Errorf("import feed %s: %w", source, err)
		}
		total += added
	}
	if err := storage.SaveState(ctx, repo, st, eng); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	fmt.Printf("imported %d new events from %d feed(s)\n", total, len(sources))
	return nil
}
