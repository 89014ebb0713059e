package main

import (
	"context"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/scribe/internal/pkg/collect"
	"github.com/airenas/scribe/internal/pkg/filestore"
	"github.com/airenas/scribe/internal/pkg/postgres"
	"github.com/airenas/scribe/internal/pkg/scrub"
	"github.com/airenas/scribe/internal/pkg/utils"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/gommon/color"
	"github.com/spf13/viper"
	"github.com/vgarvardt/gue/v5"
	"github.com/vgarvardt/gue/v5/adapter/pgxv5"
)

func main() {
	goapp.StartWithDefault()

	printBanner()

	cfg := goapp.Config
	setDefaults(cfg)
	data := &collect.Data{}
	data.Port = cfg.GetInt("port")
	data.MaxTranscriptions = cfg.GetInt("collect.maxTranscriptions")
	data.LeaseTimeout = cfg.GetDuration("collect.leaseTimeout")

	ctx := context.Background()

	dbConfig, err := pgxpool.ParseConfig(cfg.GetString("db.url"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	goapp.Log.Info().Int32("max_conn", dbConfig.MaxConns).Int32("min_conn", dbConfig.MinConns).Msg("db info")

	dbPool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	defer dbPool.Close()

	db, err := postgres.NewDB(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db")
	}
	data.DB = db

	filer, err := filestore.NewStore(ctx, filestore.Options{
		URL: cfg.GetString("filer.url"), User: cfg.GetString("filer.user"), Key: cfg.GetString("filer.key"),
		Bucket: cfg.GetString("filer.bucket"), HTTPS: cfg.GetBool("filer.https"),
		URLExpiry: cfg.GetDuration("filer.urlExpiry")})
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init filer")
	}
	data.Filer = filer

	data.MsgSender, err = postgres.NewSender(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init gue sender")
	}

	wData := &scrub.ServiceData{}
	wData.Filer = filer
	wData.WorkerCount = cfg.GetInt("worker.count")
	wData.Testing = cfg.GetBool("worker.testing")
	wData.GueClient, err = gue.NewClient(pgxv5.NewConnPool(dbPool))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init gue")
	}

	goapp.Log.Info().Msg("starting scrub worker")
	ctx, cancelFunc := context.WithCancel(context.Background())
	doneCh, err := scrub.StartWorkerService(ctx, wData)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start scrub worker service")
	}

	go utils.RunPerfEndpoint()

	goapp.Log.Info().Msg("starting web service")
	if err := collect.StartWebServer(data); err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start web server")
	}
	goapp.Log.Info().Msg("exit web service")
	cancelFunc()
	select {
	case <-doneCh:
		goapp.Log.Info().Msg("All code returned. Now exit. Bye")
	case <-time.After(time.Second * 15):
		goapp.Log.Warn().Msg("Timeout graceful shutdown")
	}
}

func setDefaults(cfg *viper.Viper) {
	cfg.SetDefault("collect.maxTranscriptions", 2)
	cfg.SetDefault("collect.leaseTimeout", 15*time.Minute)
	cfg.SetDefault("filer.urlExpiry", time.Hour)
	cfg.SetDefault("worker.count", 2)
}

var (
	version = "DEV"
)

func printBanner() {
	banner := `
   _____ __________  ________  ______
  / ___// ____/ __ \/  _/ __ )/ ____/
  \__ \/ /   / /_/ // // __  / __/
 ___/ / /___/ _, _// // /_/ / /___
/____/\____/_/ |_/___/_____/_____/

               ____          __
  _________  / / /__  _____/ /_
 / ___/ __ \/ / / _ \/ ___/ __/
/ /__/ /_/ / / /  __/ /__/ /_
\___/\____/_/_/\___/\___/\__/   v: %s

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/airenas/scribe"))
}
