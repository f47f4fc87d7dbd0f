package main

import (
	"context"
	"time"

	"scribe/internal/activities"
	"scribe/internal/config"
	"scribe/internal/storage"
	"scribe/internal/workflows"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	c, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()

	w := worker.New(c, cfg.TemporalTaskQueue, worker.Options{})
	workflows.Register(w)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	if err := storage.Migrate(ctx, db); err != nil {
		log.Fatal(err)
	}
	activities.Register(w, activities.New(cfg, db))

	log.WithFields(log.Fields{
		"temporal":   cfg.TemporalAddress,
		"task_queue": cfg.TemporalTaskQueue,
	}).Info("scribe worker listening")
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatal(err)
	}
}
