package main

import (
	"context"
	"net/http"
	"time"

	"scribe/internal/api"
	"scribe/internal/config"
	"scribe/internal/storage"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		cancel()
		log.Fatal(err)
	}
	if err := storage.Migrate(ctx, db); err != nil {
		cancel()
		log.Fatal(err)
	}
	cancel()
	db.Close()

	h := api.NewServer(cfg)
	defer h.Shutdown()

	log.WithFields(log.Fields{
		"addr":       cfg.APIAddr,
		"task_queue": cfg.TemporalTaskQueue,
		"data_root":  cfg.DataRoot,
	}).Info("scribe api listening")
	if err := http.ListenAndServe(cfg.APIAddr, h.Routes()); err != nil {
		log.Fatal(err)
	}
}
