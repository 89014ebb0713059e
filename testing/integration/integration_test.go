//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/airenas/scribe/internal/pkg/test"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type config struct {
	collectURL string
	dbURL      string
	httpclient *http.Client
	pool       *pgxpool.Pool
}

var cfg config

func TestMain(m *testing.M) {
	cfg.collectURL = GetEnvOrFail("COLLECT_URL")
	cfg.dbURL = GetEnvOrFail("DB_URL")
	cfg.httpclient = &http.Client{Timeout: time.Second * 30}

	tCtx, cf := context.WithTimeout(context.Background(), time.Second*20)
	defer cf()
	WaitForOpenOrFail(tCtx, cfg.collectURL)
	cfg.pool = waitForDB(tCtx, cfg.dbURL)

	code := m.Run()
	cfg.pool.Close()
	os.Exit(code)
}

func TestLive(t *testing.T) {
	test.CheckCode(t, test.Invoke(t, cfg.httpclient, NewRequest(t, http.MethodGet, cfg.collectURL, "/live", nil)), http.StatusOK)
}

type audioResult struct {
	ID                 string `json:"id"`
	Filename           string `json:"filename"`
	ReferenceText      string `json:"referenceText"`
	TranscriptionCount int    `json:"transcriptionCount"`
	URL                string `json:"url"`
}

type transResult struct {
	ID            string     `json:"id"`
	AudioID       string     `json:"audioID"`
	Text          string     `json:"text"`
	SpeakerGender string     `json:"speakerGender"`
	Suitable      *bool      `json:"suitable"`
	Admin         string     `json:"admin"`
	ValidatedAt   *time.Time `json:"validatedAt"`
}

func claimResp(t *testing.T) *http.Response {
	t.Helper()
	return test.Invoke(t, cfg.httpclient, NewRequest(t, http.MethodGet, cfg.collectURL, "/audio/next", nil))
}

func claimOK(t *testing.T) audioResult {
	t.Helper()
	resp := claimResp(t)
	test.CheckCode(t, resp, http.StatusOK)
	return test.Decode[audioResult](t, resp)
}

func submitOK(t *testing.T, body map[string]interface{}) transResult {
	t.Helper()
	resp := test.Invoke(t, cfg.httpclient, NewRequest(t, http.MethodPost, cfg.collectURL, "/transcriptions", body))
	test.CheckCode(t, resp, http.StatusCreated)
	return test.Decode[transResult](t, resp)
}

func TestClaim_Leases(t *testing.T) {
	id := insertClip(t, uniqueName("claim"))
	lockOthers(t, id)

	res := claimOK(t)
	require.Equal(t, id, res.ID)
	assert.NotEmpty(t, res.URL)
	assert.Equal(t, 0, res.TranscriptionCount)
	_, leased, _ := clipState(t, id)
	assert.True(t, leased)

	test.CheckCode(t, claimResp(t), http.StatusNotFound)
}

func TestClaim_TwoClips(t *testing.T) {
	id1 := insertClip(t, uniqueName("two1"))
	id2 := insertClip(t, uniqueName("two2"))
	lockOthers(t, id1, id2)

	got := map[string]bool{}
	got[claimOK(t).ID] = true
	got[claimOK(t).ID] = true
	assert.True(t, got[id1], "clip 1 not claimed")
	assert.True(t, got[id2], "clip 2 not claimed")
	test.CheckCode(t, claimResp(t), http.StatusNotFound)
}

func TestClaim_ExpiredLease(t *testing.T) {
	id := insertClip(t, uniqueName("expired"))
	lockOthers(t, id)
	res := claimOK(t)
	require.Equal(t, id, res.ID)
	test.CheckCode(t, claimResp(t), http.StatusNotFound)

	expireLease(t, id)

	res = claimOK(t)
	assert.Equal(t, id, res.ID)
	assert.Equal(t, 0, res.TranscriptionCount)
}

func TestSubmit_Counts(t *testing.T) {
	id := insertClip(t, uniqueName("submit"))
	lockOthers(t, id)
	_ = claimOK(t)

	tr := submitOK(t, map[string]interface{}{"audioID": id, "text": "olia", "speakerGender": "male", "admin": "it-admin"})
	assert.NotEmpty(t, tr.ID)
	assert.Equal(t, id, tr.AudioID)
	count, leased, _ := clipState(t, id)
	assert.Equal(t, 1, count)
	assert.False(t, leased)

	res := claimOK(t)
	require.Equal(t, id, res.ID)
	assert.Equal(t, 1, res.TranscriptionCount)

	_ = submitOK(t, map[string]interface{}{"audioID": id, "text": "olia antra", "speakerGender": "female"})
	count, _, _ = clipState(t, id)
	assert.Equal(t, 2, count)

	test.CheckCode(t, claimResp(t), http.StatusNotFound)
	resp := test.Invoke(t, cfg.httpclient, NewRequest(t, http.MethodPost, cfg.collectURL, "/transcriptions",
		map[string]interface{}{"audioID": id, "text": "trecia", "speakerGender": "male"}))
	test.CheckCode(t, resp, http.StatusBadRequest)
}

func TestSubmit_Unsuitable(t *testing.T) {
	id := insertClip(t, uniqueName("unsuitable"))

	_ = submitOK(t, map[string]interface{}{"audioID": id, "suitable": false})
	count, _, fn := clipState(t, id)
	assert.Equal(t, 1, count)
	assert.Equal(t, "deleted:"+id, fn)

	var ref sql.NullString
	err := cfg.pool.QueryRow(context.Background(),
		`SELECT reference_text FROM audio_clips WHERE audio_id = $1`, id).Scan(&ref)
	require.Nil(t, err)
	assert.False(t, ref.Valid)

	var content string
	var suitable sql.NullBool
	var gender sql.NullString
	err = cfg.pool.QueryRow(context.Background(),
		`SELECT content, is_audio_suitable, speaker_gender FROM transcriptions WHERE audio_id = $1`, id).
		Scan(&content, &suitable, &gender)
	require.Nil(t, err)
	assert.Equal(t, "Audio not suitable for transcription", content)
	assert.True(t, suitable.Valid)
	assert.False(t, suitable.Bool)
	assert.False(t, gender.Valid)
}

func TestSubmit_UnknownAudio(t *testing.T) {
	resp := test.Invoke(t, cfg.httpclient, NewRequest(t, http.MethodPost, cfg.collectURL, "/transcriptions",
		map[string]interface{}{"audioID": "it-no-such-id", "text": "olia", "speakerGender": "male"}))
	test.CheckCode(t, resp, http.StatusNotFound)
}

type pairResult struct {
	Audio         audioResult `json:"audio"`
	Transcription transResult `json:"transcription"`
}

func TestValidation_Flow(t *testing.T) {
	id := insertClip(t, uniqueName("validate"))
	lockOthers(t, id)
	_ = submitOK(t, map[string]interface{}{"audioID": id, "text": "olia", "speakerGender": "male", "admin": "it-admin"})

	lockOthers(t, id)
	resp := test.Invoke(t, cfg.httpclient, NewRequest(t, http.MethodGet, cfg.collectURL, "/validation/next", nil))
	test.CheckCode(t, resp, http.StatusOK)
	pair := test.Decode[pairResult](t, resp)
	require.Equal(t, id, pair.Transcription.AudioID)
	assert.Equal(t, "olia", pair.Transcription.Text)
	assert.Equal(t, id, pair.Audio.ID)
	assert.NotEmpty(t, pair.Audio.URL)

	// the validation lease blocks transcription claims too
	test.CheckCode(t, claimResp(t), http.StatusNotFound)

	resp = test.Invoke(t, cfg.httpclient, NewRequest(t, http.MethodPut, cfg.collectURL,
		"/validation/"+pair.Transcription.ID,
		map[string]interface{}{"text": "olia fixed", "speakerGender": "female", "hasNoise": true}))
	test.CheckCode(t, resp, http.StatusOK)
	validated := test.Decode[transResult](t, resp)
	assert.Equal(t, "olia fixed", validated.Text)
	assert.Equal(t, "female", validated.SpeakerGender)
	require.NotNil(t, validated.ValidatedAt)

	// validation may be repeated to fix mistakes
	resp = test.Invoke(t, cfg.httpclient, NewRequest(t, http.MethodPut, cfg.collectURL,
		"/validation/"+pair.Transcription.ID,
		map[string]interface{}{"text": "olia galutinis", "speakerGender": "female"}))
	test.CheckCode(t, resp, http.StatusOK)
	validated = test.Decode[transResult](t, resp)
	assert.Equal(t, "olia galutinis", validated.Text)
	require.NotNil(t, validated.ValidatedAt)

	res := claimOK(t)
	assert.Equal(t, id, res.ID)

	resp = test.Invoke(t, cfg.httpclient, NewRequest(t, http.MethodGet, cfg.collectURL, "/validation/next", nil))
	test.CheckCode(t, resp, http.StatusNotFound)
}

func TestValidation_FIFO(t *testing.T) {
	id1 := insertClip(t, uniqueName("fifo1"))
	id2 := insertClip(t, uniqueName("fifo2"))
	lockOthers(t, id1, id2)
	_ = submitOK(t, map[string]interface{}{"audioID": id1, "text": "pirmas", "speakerGender": "male"})
	_ = submitOK(t, map[string]interface{}{"audioID": id2, "text": "antras", "speakerGender": "male"})

	lockOthers(t, id1, id2)
	resp := test.Invoke(t, cfg.httpclient, NewRequest(t, http.MethodGet, cfg.collectURL, "/validation/next", nil))
	test.CheckCode(t, resp, http.StatusOK)
	pair := test.Decode[pairResult](t, resp)
	assert.Equal(t, id1, pair.Transcription.AudioID, "oldest submission goes first")

	resp = test.Invoke(t, cfg.httpclient, NewRequest(t, http.MethodGet, cfg.collectURL, "/validation/next", nil))
	test.CheckCode(t, resp, http.StatusOK)
	pair = test.Decode[pairResult](t, resp)
	assert.Equal(t, id2, pair.Transcription.AudioID)
}

func TestValidation_UnknownID(t *testing.T) {
	resp := test.Invoke(t, cfg.httpclient, NewRequest(t, http.MethodPut, cfg.collectURL, "/validation/it-no-such-id",
		map[string]interface{}{"text": "olia", "speakerGender": "male"}))
	test.CheckCode(t, resp, http.StatusNotFound)
}

type statsResult struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
}

func getStats(t *testing.T) statsResult {
	t.Helper()
	resp := test.Invoke(t, cfg.httpclient, NewRequest(t, http.MethodGet, cfg.collectURL, "/validation/stats", nil))
	test.CheckCode(t, resp, http.StatusOK)
	return test.Decode[statsResult](t, resp)
}

func TestStats(t *testing.T) {
	before := getStats(t)

	id := insertClip(t, uniqueName("stats"))
	tr := submitOK(t, map[string]interface{}{"audioID": id, "text": "olia", "speakerGender": "male"})

	mid := getStats(t)
	assert.Equal(t, before.Total+1, mid.Total)
	assert.Equal(t, before.Pending+1, mid.Pending)

	resp := test.Invoke(t, cfg.httpclient, NewRequest(t, http.MethodPut, cfg.collectURL, "/validation/"+tr.ID,
		map[string]interface{}{"text": "olia", "speakerGender": "male"}))
	test.CheckCode(t, resp, http.StatusOK)

	after := getStats(t)
	assert.Equal(t, mid.Total, after.Total)
	assert.Equal(t, mid.Pending-1, after.Pending)
	assert.Equal(t, mid.Completed+1, after.Completed)
}

type leaderboardResult struct {
	Range   string `json:"range"`
	Total   int    `json:"total"`
	Leaders []struct {
		Admin string `json:"admin"`
		Count int    `json:"count"`
	} `json:"leaders"`
}

func getLeaderCount(t *testing.T, rng, admin string) int {
	t.Helper()
	resp := test.Invoke(t, cfg.httpclient, NewRequest(t, http.MethodGet, cfg.collectURL, "/leaderboard?range="+rng, nil))
	test.CheckCode(t, resp, http.StatusOK)
	res := test.Decode[leaderboardResult](t, resp)
	require.Equal(t, rng, res.Range)
	for _, l := range res.Leaders {
		if l.Admin == admin {
			return l.Count
		}
	}
	return 0
}

func TestLeaderboard(t *testing.T) {
	admin := strings.TrimSuffix(uniqueName("adm"), ".mp3")
	require.Equal(t, 0, getLeaderCount(t, "all", admin))

	id1 := insertClip(t, uniqueName("ldr1"))
	id2 := insertClip(t, uniqueName("ldr2"))
	_ = submitOK(t, map[string]interface{}{"audioID": id1, "text": "olia", "speakerGender": "male", "admin": admin})
	_ = submitOK(t, map[string]interface{}{"audioID": id2, "text": "olia", "speakerGender": "male", "admin": admin})

	assert.Equal(t, 2, getLeaderCount(t, "all", admin))
	assert.Equal(t, 2, getLeaderCount(t, "week", admin))
	assert.Equal(t, 2, getLeaderCount(t, "month", admin))
}

type importResult struct {
	Total       int `json:"total"`
	Inserted    int `json:"inserted"`
	Skipped     int `json:"skipped"`
	SkippedRows []struct {
		Row      int    `json:"row"`
		Filename string `json:"filename"`
	} `json:"skippedRows"`
}

func newImportRequest(t *testing.T, csv string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "audio.csv")
	require.Nil(t, err)
	_, _ = io.Copy(part, strings.NewReader(csv))
	writer.Close()
	path, err := url.JoinPath(cfg.collectURL, "/audio/import")
	require.Nil(t, err)
	req, err := http.NewRequest(http.MethodPost, path, body)
	require.Nil(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestImport(t *testing.T) {
	n1, n2 := uniqueName("imp1"), uniqueName("imp2")
	csv := "filename,transcription\n" + n1 + ",labas\n" + n2 + ",\n" + n1 + ",dup"

	resp := test.Invoke(t, cfg.httpclient, newImportRequest(t, csv))
	test.CheckCode(t, resp, http.StatusOK)
	res := test.Decode[importResult](t, resp)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, 1, res.Skipped)
	require.Equal(t, 1, len(res.SkippedRows))
	assert.Equal(t, 3, res.SkippedRows[0].Row)
	assert.Equal(t, n1, res.SkippedRows[0].Filename)

	resp = test.Invoke(t, cfg.httpclient, newImportRequest(t, csv))
	test.CheckCode(t, resp, http.StatusOK)
	res = test.Decode[importResult](t, resp)
	assert.Equal(t, 0, res.Inserted)
	assert.Equal(t, 3, res.Skipped)
}

func TestImport_Segments(t *testing.T) {
	n := uniqueName("seg")
	csv := "filename,transcription,segment_start_ms,segment_end_ms\n" + n + ",labas,1000,2500"

	resp := test.Invoke(t, cfg.httpclient, newImportRequest(t, csv))
	test.CheckCode(t, resp, http.StatusOK)

	var start, end sql.NullInt32
	err := cfg.pool.QueryRow(context.Background(),
		`SELECT segment_start_ms, segment_end_ms FROM audio_clips WHERE filename = $1`, n).Scan(&start, &end)
	require.Nil(t, err)
	assert.Equal(t, int32(1000), start.Int32)
	assert.Equal(t, int32(2500), end.Int32)
}

func TestImport_Fail_BadCSV(t *testing.T) {
	resp := test.Invoke(t, cfg.httpclient, newImportRequest(t, "filename,olia\na.mp3,x"))
	test.CheckCode(t, resp, http.StatusBadRequest)
}

func TestFiles(t *testing.T) {
	resp := test.Invoke(t, cfg.httpclient, NewRequest(t, http.MethodGet, cfg.collectURL, "/audio/files", nil))
	test.CheckCode(t, resp, http.StatusOK)
}

func TestCompare(t *testing.T) {
	n := uniqueName("cmp")
	_ = insertClip(t, n)

	resp := test.Invoke(t, cfg.httpclient, NewRequest(t, http.MethodGet, cfg.collectURL, "/audio/compare", nil))
	test.CheckCode(t, resp, http.StatusOK)
	res := test.Decode[struct {
		DBOnly []string `json:"dbOnly"`
	}](t, resp)
	assert.Contains(t, res.DBOnly, n)
}

func TestBulkDelete(t *testing.T) {
	n := uniqueName("bulk")
	resp := test.Invoke(t, cfg.httpclient, NewRequest(t, http.MethodPost, cfg.collectURL, "/audio/bulk-delete",
		map[string]interface{}{"filenames": []string{n}}))
	test.CheckCode(t, resp, http.StatusOK)
	res := test.Decode[struct {
		NotFound []string `json:"notFound"`
	}](t, resp)
	assert.Contains(t, res.NotFound, n)
}
