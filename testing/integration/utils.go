//go:build integration
// +build integration

package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/airenas/scribe/internal/pkg/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

func WaitForOpenOrFail(ctx context.Context, URL string) {
	u, err := url.Parse(URL)
	if err != nil {
		log.Fatalf("FAIL: can't parse %s", URL)
	}
	for {
		err = listen(net.JoinHostPort(u.Hostname(), u.Port()))
		if err == nil {
			return
		}
		select {
		case <-ctx.Done():
			log.Fatalf("FAIL: can't access %s", URL)
			break
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func GetEnvOrFail(s string) string {
	res := os.Getenv(s)
	if res == "" {
		log.Fatalf("no env '%s'", s)
	}
	return res
}

func listen(urlStr string) error {
	log.Printf("dial %s", urlStr)
	conn, err := net.DialTimeout("tcp", urlStr, time.Second)
	if err != nil {
		return err
	}
	defer conn.Close()
	return nil
}

func NewRequest(t *testing.T, method string, srv, urlSuffix string, body interface{}) *http.Request {
	t.Helper()
	path, _ := url.JoinPath(srv, urlSuffix)
	req, err := http.NewRequest(method, path, ToReader(body))
	require.Nil(t, err, "not nil error = %v", err)
	if body != nil {
		req.Header.Add(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	return req
}

func ToReader(data interface{}) io.Reader {
	bytes, _ := json.Marshal(data)
	return strings.NewReader(string(bytes))
}

func waitForDB(ctx context.Context, URL string) *pgxpool.Pool {
	dbPool, err := pgxpool.New(ctx, URL)
	if err != nil {
		log.Fatalf("FAIL: can't init db pool")
	}
	for {
		log.Printf("check db live ...")
		db, err := postgres.NewDB(dbPool)
		if err == nil {
			if err = db.Live(ctx); err == nil {
				return dbPool
			}
			log.Printf(err.Error())
		}
		select {
		case <-ctx.Done():
			log.Fatalf("FAIL: can't access db")
			break
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func uniqueName(base string) string {
	return fmt.Sprintf("it-%s-%s.mp3", base, uuid.NewString())
}

// insertClip seeds a clip directly, bypassing the import endpoint
func insertClip(t *testing.T, filename string) string {
	t.Helper()
	id := uuid.NewString()
	_, err := cfg.pool.Exec(context.Background(),
		`INSERT INTO audio_clips(audio_id, filename, reference_text) VALUES($1, $2, $3)`, id, filename, "ref")
	require.Nil(t, err)
	return id
}

// lockOthers leases out every clip except the given ones, so claims are deterministic
func lockOthers(t *testing.T, keep ...string) {
	t.Helper()
	_, err := cfg.pool.Exec(context.Background(),
		`UPDATE audio_clips SET leased_until = now() + interval '1 hour' WHERE NOT (audio_id = ANY($1))`, keep)
	require.Nil(t, err)
}

// expireLease rewinds the lease so the clip is claimable again
func expireLease(t *testing.T, id string) {
	t.Helper()
	_, err := cfg.pool.Exec(context.Background(),
		`UPDATE audio_clips SET leased_until = now() - interval '1 minute' WHERE audio_id = $1`, id)
	require.Nil(t, err)
}

func clipState(t *testing.T, id string) (int, bool, string) {
	t.Helper()
	var count int
	var leased sql.NullTime
	var fn string
	err := cfg.pool.QueryRow(context.Background(),
		`SELECT transcription_count, leased_until, filename FROM audio_clips WHERE audio_id = $1`, id).
		Scan(&count, &leased, &fn)
	require.Nil(t, err)
	return count, leased.Valid && leased.Time.After(time.Now()), fn
}
