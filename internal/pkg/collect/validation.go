package collect

import (
	"net/http"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/scribe/internal/pkg/persistence"
	"github.com/labstack/echo/v4"
)

// validationWindow limits how many candidates one request tries to lease
const validationWindow = 5

type validationPair struct {
	Audio         *audioInfo `json:"audio"`
	Transcription *transInfo `json:"transcription"`
}

func validationNext(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("validationNext method")()
		ctx := c.Request().Context()

		candidates, err := data.DB.GetValidationCandidates(ctx, validationWindow)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		for _, cand := range candidates {
			leased, err := data.DB.TryLeaseAudio(ctx, cand.Audio.ID, data.LeaseTimeout)
			if err != nil {
				goapp.Log.Error().Err(err).Send()
				return echo.NewHTTPError(http.StatusInternalServerError)
			}
			if !leased {
				continue
			}
			url, err := data.Filer.SignURL(ctx, cand.Audio.Filename)
			if err != nil {
				goapp.Log.Error().Err(err).Send()
				return echo.NewHTTPError(http.StatusInternalServerError)
			}
			goapp.Log.Info().Str("ID", cand.Trans.ID).Msg("validation claimed")
			return c.JSON(http.StatusOK, &validationPair{Audio: mapAudio(&cand.Audio, url), Transcription: mapTrans(&cand.Trans)})
		}
		return echo.NewHTTPError(http.StatusNotFound, "No transcriptions pending validation")
	}
}

func validateTranscription(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("validateTranscription method")()
		ctx := c.Request().Context()

		id := c.Param("id")
		if id == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "no ID")
		}
		var input transcriptionInput
		if err := c.Bind(&input); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "can't decode input")
		}
		upd := &persistence.Transcription{}
		if err := applyContentRules(&input, upd); err != nil {
			return err
		}
		res, err := data.DB.ValidateTranscription(ctx, id, upd)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		if res == nil {
			return echo.NewHTTPError(http.StatusNotFound, "Transcription not found")
		}
		released, err := data.DB.ReleaseAudio(ctx, res.AudioID)
		if err != nil {
			goapp.Log.Error().Err(err).Str("audioID", res.AudioID).Msg("can't release audio")
		} else if !released {
			goapp.Log.Warn().Str("audioID", res.AudioID).Msg("no audio to release")
		}
		goapp.Log.Info().Str("ID", res.ID).Msg("validated")
		return c.JSON(http.StatusOK, mapTrans(res))
	}
}

type statsResult struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
}

func validationStats(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("validationStats method")()

		st, err := data.DB.LoadValidationStats(c.Request().Context())
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		completed := st.Total - st.Pending
		if completed < 0 {
			completed = 0
		}
		return c.JSON(http.StatusOK, &statsResult{Total: st.Total, Pending: st.Pending, Completed: completed})
	}
}
