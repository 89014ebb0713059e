package collect

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/facebookgo/grace/gracehttp"
	"github.com/pkg/errors"

	amessages "github.com/airenas/async-api/pkg/messages"
	"github.com/airenas/scribe/internal/pkg/filestore"
	"github.com/airenas/scribe/internal/pkg/persistence"
	"github.com/airenas/scribe/internal/pkg/utils"

	"github.com/airenas/go-app/pkg/goapp"

	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// DB provides clip and transcription persistence
type DB interface {
	ClaimAudio(ctx context.Context, maxCount int, lease time.Duration) (*persistence.AudioClip, error)
	TryLeaseAudio(ctx context.Context, id string, lease time.Duration) (bool, error)
	ReleaseAudio(ctx context.Context, id string) (bool, error)
	LoadAudio(ctx context.Context, id string) (*persistence.AudioClip, error)
	ListAudioFilenames(ctx context.Context) ([]string, error)
	ImportAudio(ctx context.Context, entries []persistence.ImportEntry) (*persistence.ImportResult, error)
	SubmitTranscription(ctx context.Context, tr *persistence.Transcription) (*persistence.Transcription, error)
	GetValidationCandidates(ctx context.Context, limit int) ([]*persistence.ValidationCandidate, error)
	ValidateTranscription(ctx context.Context, id string, upd *persistence.Transcription) (*persistence.Transcription, error)
	LoadValidationStats(ctx context.Context) (*persistence.ValidationStats, error)
	LoadLeaderboard(ctx context.Context, rng string) ([]*persistence.LeaderboardEntry, error)
}

// Filer provides audio payload operations
type Filer interface {
	SignURL(ctx context.Context, name string) (string, error)
	List(ctx context.Context) ([]filestore.FileData, error)
	Delete(ctx context.Context, name string) (bool, error)
}

// MsgSender provides send msg functionality
type MsgSender interface {
	SendMessage(context.Context, amessages.Message, string) error
}

// Data keeps data required for service work
type Data struct {
	Port              int
	MaxTranscriptions int
	LeaseTimeout      time.Duration
	DB                DB
	Filer             Filer
	MsgSender         MsgSender
}

// StartWebServer starts echo web service
func StartWebServer(data *Data) error {
	goapp.Log.Info().Msgf("Starting HTTP SCRIBE collect service at %d", data.Port)
	if err := validate(data); err != nil {
		return err
	}

	portStr := strconv.Itoa(data.Port)

	e := initRoutes(data)

	e.Server.Addr = ":" + portStr
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 60 * time.Second
	e.Server.WriteTimeout = 30 * time.Second

	gracehttp.SetLogger(log.New(goapp.Log, "", 0))

	return gracehttp.Serve(e.Server)
}

func validate(data *Data) error {
	if data.DB == nil {
		return fmt.Errorf("no DB")
	}
	if data.Filer == nil {
		return errors.New("no filer")
	}
	if data.MsgSender == nil {
		return fmt.Errorf("no msg sender")
	}
	if data.MaxTranscriptions < 1 {
		return fmt.Errorf("wrong maxTranscriptions %d", data.MaxTranscriptions)
	}
	if data.LeaseTimeout <= 0 {
		return fmt.Errorf("wrong leaseTimeout %v", data.LeaseTimeout)
	}
	return nil
}

var promMdlw *prometheus.Prometheus

func init() {
	promMdlw = prometheus.NewPrometheus("scribe_collect", nil)
}

func initRoutes(data *Data) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Logger())
	promMdlw.Use(e)

	e.GET("/audio/next", claimAudio(data))
	e.POST("/audio/import", importAudio(data))
	e.GET("/audio/files", listFiles(data))
	e.GET("/audio/compare", compareAudio(data))
	e.POST("/audio/bulk-delete", bulkDelete(data))
	e.POST("/transcriptions", submitTranscription(data))
	e.GET("/validation/next", validationNext(data))
	e.PUT("/validation/:id", validateTranscription(data))
	e.GET("/validation/stats", validationStats(data))
	e.GET("/leaderboard", leaderboard(data))
	e.GET("/live", live(data))

	goapp.Log.Info().Msg("Routes:")
	for _, r := range e.Routes() {
		goapp.Log.Info().Msgf("  %s %s", r.Method, r.Path)
	}
	return e
}

func live(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		return c.JSONBlob(http.StatusOK, []byte(`{"service":"OK"}`))
	}
}

type audioInfo struct {
	ID                 string `json:"id"`
	Filename           string `json:"filename"`
	ReferenceText      string `json:"referenceText,omitempty"`
	TranscriptionCount int    `json:"transcriptionCount"`
	SegmentStartMs     *int32 `json:"segmentStartMs,omitempty"`
	SegmentEndMs       *int32 `json:"segmentEndMs,omitempty"`
	URL                string `json:"url,omitempty"`
}

type transInfo struct {
	ID             string     `json:"id"`
	AudioID        string     `json:"audioID"`
	Text           string     `json:"text"`
	SpeakerGender  string     `json:"speakerGender,omitempty"`
	HasNoise       *bool      `json:"hasNoise,omitempty"`
	IsCodeMixed    *bool      `json:"codeMixed,omitempty"`
	SpeakerOverlap *bool      `json:"speakerOverlap,omitempty"`
	Suitable       *bool      `json:"suitable,omitempty"`
	Admin          string     `json:"admin,omitempty"`
	ValidatedAt    *time.Time `json:"validatedAt,omitempty"`
	Created        time.Time  `json:"created"`
}

func mapAudio(clip *persistence.AudioClip, url string) *audioInfo {
	return &audioInfo{ID: clip.ID, Filename: clip.Filename, ReferenceText: utils.FromSQLStr(clip.ReferenceText),
		TranscriptionCount: clip.TranscriptionCount, SegmentStartMs: utils.FromSQLInt32(clip.SegmentStartMs),
		SegmentEndMs: utils.FromSQLInt32(clip.SegmentEndMs), URL: url}
}

func mapTrans(tr *persistence.Transcription) *transInfo {
	return &transInfo{ID: tr.ID, AudioID: tr.AudioID, Text: tr.Text,
		SpeakerGender: utils.FromSQLStr(tr.SpeakerGender), HasNoise: utils.FromSQLBool(tr.HasNoise),
		IsCodeMixed: utils.FromSQLBool(tr.IsCodeMixed), SpeakerOverlap: utils.FromSQLBool(tr.HasSpeakerOverlap),
		Suitable: utils.FromSQLBool(tr.Suitable), Admin: utils.FromSQLStr(tr.Admin),
		ValidatedAt: utils.FromSQLTime(tr.ValidatedAt), Created: tr.Created}
}
