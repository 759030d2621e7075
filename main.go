package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/seedlight/beacon/config"
	"github.com/seedlight/beacon/content"
	"github.com/seedlight/beacon/db"
	"github.com/seedlight/beacon/events"
	"github.com/seedlight/beacon/forms"
	"github.com/seedlight/beacon/migrations"
	"github.com/seedlight/beacon/playback"
	"github.com/seedlight/beacon/utils"
)

func main() {

	if err := godotenv.Load(); err != nil {
		fmt.Println(err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.GetLogLevel(),
	}))
	slog.SetDefault(logger)

	store, err := db.NewSqliteStore(cfg.Beacon.DbPath)
	if err != nil {
		slog.Error("Failed to open database", slog.String("stack", err.Error()))
		os.Exit(1)
	}

	if err := store.ApplyMigrations(migrations.GetMigrations()); err != nil {
		slog.Error("Failed to apply migrations", slog.String("stack", err.Error()))
		os.Exit(1)
	}

	events.Init()

	source := playback.NewBeepSource(cfg.Player.MediaDir, utils.NewHTTPClient())
	controller := playback.NewController(source, store)

	client := content.NewClient(cfg.Content)

	var notifier forms.Notifier
	if pn := forms.NewPushoverNotifier(cfg.Pushover); pn != nil {
		notifier = pn
	}
	processor := forms.NewProcessor(store, client, notifier, cfg.Payments)

	scheduler, err := SetupInBackground(store, client)
	if err != nil {
		slog.Error("Failed to set up background jobs", slog.String("stack", err.Error()))
		os.Exit(1)
	}

	if cfg.Beacon.SyncEnabled {
		scheduler.Start()
		slog.Info("Background jobs have started up in the background.")
	} else {
		slog.Info("Background jobs are disabled.")
	}

	router := RegisterRoutes(http.NewServeMux(), cfg, controller, store, client, processor)

	fmt.Printf("Beacon is running at http://localhost:%s\n", cfg.Beacon.Port)

	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.Beacon.Port), router); err != nil {
		fmt.Println(err)
		scheduler.Shutdown()
		source.Close()
		os.Exit(1)
	}
}
