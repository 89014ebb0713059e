package collect

import (
	"mime/multipart"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/scribe/internal/pkg/api"
	"github.com/airenas/scribe/internal/pkg/ingest"
	"github.com/airenas/scribe/internal/pkg/persistence"
	"github.com/airenas/scribe/internal/pkg/utils"
	"github.com/labstack/echo/v4"
)

func claimAudio(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("claimAudio method")()
		ctx := c.Request().Context()

		clip, err := data.DB.ClaimAudio(ctx, data.MaxTranscriptions, data.LeaseTimeout)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		if clip == nil {
			return echo.NewHTTPError(http.StatusNotFound, "No audio files available for transcription")
		}
		url, err := data.Filer.SignURL(ctx, clip.Filename)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		goapp.Log.Info().Str("ID", clip.ID).Msg("claimed")
		return c.JSON(http.StatusOK, mapAudio(clip, url))
	}
}

type skippedRow struct {
	Row      int    `json:"row"`
	Filename string `json:"filename,omitempty"`
}

type importResult struct {
	Total       int          `json:"total"`
	Inserted    int          `json:"inserted"`
	Skipped     int          `json:"skipped"`
	SkippedRows []skippedRow `json:"skippedRows"`
}

func importAudio(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("importAudio method")()
		ctx := c.Request().Context()

		form, err := c.MultipartForm()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "no multipart form data")
		}
		defer cleanFiles(form)
		file, handler, err := takeFile(form, api.PrmFile)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "no form file parameter 'file'")
		}
		defer file.Close()
		if !strings.EqualFold(filepath.Ext(handler.Filename), ".csv") {
			return echo.NewHTTPError(http.StatusBadRequest, "file must be a CSV")
		}

		entries, err := ingest.ParseCSV(file)
		if err != nil {
			var errBI *utils.ErrBadInput
			if errors.As(err, &errBI) {
				return echo.NewHTTPError(http.StatusBadRequest, errBI.Error())
			}
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		res, err := data.DB.ImportAudio(ctx, entries)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		goapp.Log.Info().Int("total", res.Total).Int("inserted", res.Inserted).Int("skipped", res.Skipped).Msg("imported")
		return c.JSON(http.StatusOK, mapImportResult(res))
	}
}

func mapImportResult(res *persistence.ImportResult) *importResult {
	mapped := &importResult{Total: res.Total, Inserted: res.Inserted, Skipped: res.Skipped, SkippedRows: []skippedRow{}}
	for _, r := range res.SkippedRows {
		mapped.SkippedRows = append(mapped.SkippedRows, skippedRow{Row: r.Row, Filename: r.Filename})
	}
	return mapped
}

type fileInfo struct {
	Name        string    `json:"name"`
	Path        string    `json:"path"`
	Size        int64     `json:"size"`
	ContentType string    `json:"contentType,omitempty"`
	Updated     time.Time `json:"updated"`
	MD5         string    `json:"md5,omitempty"`
	IsAudio     bool      `json:"isAudio"`
}

type filesResult struct {
	Total      int        `json:"total"`
	AudioCount int        `json:"audioCount"`
	Files      []fileInfo `json:"files"`
}

func listFiles(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("listFiles method")()
		ctx := c.Request().Context()

		files, err := data.Filer.List(ctx)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		res := &filesResult{Total: len(files), Files: []fileInfo{}}
		for _, f := range files {
			if f.IsAudio {
				res.AudioCount++
			}
			res.Files = append(res.Files, fileInfo{Name: f.Name, Path: f.Path, Size: f.Size,
				ContentType: f.ContentType, Updated: f.Updated, MD5: f.ETag, IsAudio: f.IsAudio})
		}
		return c.JSON(http.StatusOK, res)
	}
}

type compareSummary struct {
	CloudTotal int `json:"cloudTotal"`
	DBTotal    int `json:"dbTotal"`
	Matched    int `json:"matched"`
}

type compareResult struct {
	Summary   compareSummary `json:"summary"`
	CloudOnly []string       `json:"cloudOnly"`
	DBOnly    []string       `json:"dbOnly"`
}

func compareAudio(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("compareAudio method")()
		ctx := c.Request().Context()

		files, err := data.Filer.List(ctx)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		dbNames, err := data.DB.ListAudioFilenames(ctx)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}

		inCloud := map[string]bool{}
		for _, f := range files {
			if f.IsAudio {
				inCloud[f.Path] = true
			}
		}
		inDB := map[string]bool{}
		for _, n := range dbNames {
			inDB[n] = true
		}

		res := &compareResult{CloudOnly: []string{}, DBOnly: []string{}}
		res.Summary.CloudTotal = len(inCloud)
		res.Summary.DBTotal = len(inDB)
		for n := range inCloud {
			if inDB[n] {
				res.Summary.Matched++
			} else {
				res.CloudOnly = append(res.CloudOnly, n)
			}
		}
		for n := range inDB {
			if !inCloud[n] {
				res.DBOnly = append(res.DBOnly, n)
			}
		}
		sort.Strings(res.CloudOnly)
		sort.Strings(res.DBOnly)
		return c.JSON(http.StatusOK, res)
	}
}

type bulkDeleteInput struct {
	Filenames []string `json:"filenames"`
}

type failedDelete struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

type bulkDeleteSummary struct {
	Requested int `json:"requested"`
	Deleted   int `json:"deleted"`
	NotFound  int `json:"notFound"`
	Failed    int `json:"failed"`
}

type bulkDeleteResult struct {
	Summary  bulkDeleteSummary `json:"summary"`
	Deleted  []string          `json:"deleted"`
	NotFound []string          `json:"notFound"`
	Failed   []failedDelete    `json:"failed"`
}

// bulkDelete drops objects from the file storage only, clip records are kept
func bulkDelete(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("bulkDelete method")()
		ctx := c.Request().Context()

		var input bulkDeleteInput
		if err := c.Bind(&input); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "can't decode input")
		}
		if len(input.Filenames) == 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "no filenames provided")
		}

		res := &bulkDeleteResult{Deleted: []string{}, NotFound: []string{}, Failed: []failedDelete{}}
		res.Summary.Requested = len(input.Filenames)
		for _, n := range input.Filenames {
			deleted, err := data.Filer.Delete(ctx, n)
			if err != nil {
				goapp.Log.Error().Err(err).Str("file", n).Send()
				res.Failed = append(res.Failed, failedDelete{Filename: n, Error: err.Error()})
				continue
			}
			if !deleted {
				res.NotFound = append(res.NotFound, n)
				continue
			}
			res.Deleted = append(res.Deleted, n)
		}
		res.Summary.Deleted = len(res.Deleted)
		res.Summary.NotFound = len(res.NotFound)
		res.Summary.Failed = len(res.Failed)
		return c.JSON(http.StatusOK, res)
	}
}

func cleanFiles(f *multipart.Form) {
	if f != nil {
		_ = f.RemoveAll()
	}
}

func takeFile(form *multipart.Form, paramName string) (multipart.File, *multipart.FileHeader, error) {
	handler := takeFirst(form.File[paramName], nil)
	if handler == nil {
		return nil, nil, http.ErrMissingFile
	}
	file, err := handler.Open()
	return file, handler, err
}

func takeFirst[K interface{}](a []K, d K) K {
	if len(a) > 0 {
		return a[0]
	}
	return d
}
