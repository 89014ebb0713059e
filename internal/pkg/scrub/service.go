package scrub

import (
	"context"
	"fmt"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/scribe/internal/pkg/messages"
	"github.com/airenas/scribe/internal/pkg/utils"
	"github.com/airenas/scribe/internal/pkg/utils/handler"
	"github.com/vgarvardt/gue/v5"
)

// Filer removes stored objects
type Filer interface {
	Delete(ctx context.Context, name string) (bool, error)
}

// ServiceData keeps data required for service work
type ServiceData struct {
	GueClient   *gue.Client
	WorkerCount int
	Filer       Filer
	Testing     bool
}

// StartWorkerService starts the event queue listener service to clean dropped audio
// returns channel for tracking if all jobs are finished
func StartWorkerService(ctx context.Context, data *ServiceData) (chan struct{}, error) {
	if err := validate(data); err != nil {
		return nil, err
	}
	goapp.Log.Info().Int("workers", data.WorkerCount).Msg("Starting listen for messages")
	if data.Testing {
		goapp.Log.Warn().Msg("SERVICE IN TEST MODE")
	}

	wm := gue.WorkMap{
		messages.Scrub: handler.Create(data, handleScrub, handler.DefaultOpts[messages.ScrubMessage]().
			WithTimeout(time.Minute).WithBackoff(handler.DefaultBackoffOrTest(data.Testing))),
	}

	pool, err := gue.NewWorkerPool(
		data.GueClient, wm, data.WorkerCount,
		gue.WithPoolQueue(messages.Scrub),
		gue.WithPoolLogger(utils.NewGueLoggerAdapter()),
		gue.WithPoolPollInterval(500*time.Millisecond),
		gue.WithPoolPollStrategy(gue.RunAtPollStrategy),
		gue.WithPoolID("scrub-worker"),
	)
	if err != nil {
		return nil, fmt.Errorf("could not build gue workers pool: %w", err)
	}
	res := make(chan struct{}, 1)
	go func() {
		goapp.Log.Info().Msg("Starting workers")
		if err := pool.Run(ctx); err != nil {
			goapp.Log.Error().Err(err).Msg("pool error")
		}
		goapp.Log.Info().Msg("Pool workers finished")
		res <- struct{}{}
	}()
	return res, nil
}

func handleScrub(ctx context.Context, m *messages.ScrubMessage, data *ServiceData) error {
	goapp.Log.Info().Str("ID", m.ID).Str("file", m.Filename).Msg("handling scrub")
	if m.Filename == "" {
		goapp.Log.Warn().Str("ID", m.ID).Msg("no filename in msg")
		return nil
	}
	deleted, err := data.Filer.Delete(ctx, m.Filename)
	if err != nil {
		return fmt.Errorf("can't delete file: %w", err)
	}
	if !deleted {
		goapp.Log.Warn().Str("file", m.Filename).Msg("file not in storage")
		return nil
	}
	goapp.Log.Info().Str("file", m.Filename).Msg("file deleted")
	return nil
}

func validate(data *ServiceData) error {
	if data.GueClient == nil {
		return fmt.Errorf("no gue client")
	}
	if data.WorkerCount < 1 {
		return fmt.Errorf("no worker count provided")
	}
	if data.Filer == nil {
		return fmt.Errorf("no filer")
	}
	return nil
}
