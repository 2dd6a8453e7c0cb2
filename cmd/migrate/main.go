package main

import (
	"context"
	"os"

	_ "github.com/lib/pq"

	"github.com/fides-dpp/trust-engine/internal/config"
	"github.com/fides-dpp/trust-engine/internal/db/schema"
	"github.com/fides-dpp/trust-engine/internal/log"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Error(context.Background(), "cannot load config", err)
		return
	}

	ctx := log.NewContext(context.Background(), cfg.Log.Level, cfg.Log.Mode, os.Stdout)
	log.Debug(ctx, "database", "url", cfg.Database.URL)

	if err := schema.Migrate(cfg.Database.URL); err != nil {
		log.Error(ctx, "error migrating database", err)
		return
	}

	log.Info(ctx, "migration done!")
}
