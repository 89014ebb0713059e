package main

import (
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/scribe/internal/pkg/migration"
)

func main() {
	goapp.StartWithDefault()
	cfg := goapp.Config
	cfg.SetDefault("migration.path", "file://db/migrations")
	cfg.SetDefault("migration.action", "up")

	m, err := migration.NewMigrator(cfg.GetString("db.url"), cfg.GetString("migration.path"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init migrator")
	}
	action := cfg.GetString("migration.action")
	goapp.Log.Info().Str("action", action).Msg("migrating")
	switch action {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	default:
		goapp.Log.Fatal().Msgf("unknown migration action '%s'", action)
	}
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("migration failed")
	}
	goapp.Log.Info().Msg("migration done")
}
