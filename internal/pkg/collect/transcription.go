package collect

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/scribe/internal/pkg/gender"
	"github.com/airenas/scribe/internal/pkg/messages"
	"github.com/airenas/scribe/internal/pkg/persistence"
	"github.com/airenas/scribe/internal/pkg/utils"
	"github.com/labstack/echo/v4"
)

// unsuitableText is stored instead of real content when a submitter marks the audio unusable
const unsuitableText = "Audio not suitable for transcription"

type transcriptionInput struct {
	AudioID        string `json:"audioID"`
	Text           string `json:"text"`
	SpeakerGender  string `json:"speakerGender"`
	HasNoise       *bool  `json:"hasNoise"`
	CodeMixed      *bool  `json:"codeMixed"`
	SpeakerOverlap *bool  `json:"speakerOverlap"`
	Suitable       *bool  `json:"suitable"`
	Admin          string `json:"admin"`
}

func submitTranscription(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("submitTranscription method")()
		ctx := c.Request().Context()

		var input transcriptionInput
		if err := c.Bind(&input); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "can't decode input")
		}
		if input.AudioID == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "no audioID")
		}
		clip, err := data.DB.LoadAudio(ctx, input.AudioID)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		if clip == nil {
			return echo.NewHTTPError(http.StatusNotFound, "Audio file not found")
		}
		if clip.TranscriptionCount >= data.MaxTranscriptions {
			return echo.NewHTTPError(http.StatusBadRequest,
				fmt.Sprintf("audio already has %d transcriptions", clip.TranscriptionCount))
		}

		tr := &persistence.Transcription{AudioID: input.AudioID, Admin: utils.ToSQLStr(strings.TrimSpace(input.Admin))}
		if err := applyContentRules(&input, tr); err != nil {
			return err
		}
		res, err := data.DB.SubmitTranscription(ctx, tr)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		if res == nil {
			return echo.NewHTTPError(http.StatusNotFound, "Audio file not found")
		}
		if tr.Suitable.Valid && !tr.Suitable.Bool {
			dropAudioPayload(ctx, data, clip)
		}
		goapp.Log.Info().Str("ID", res.ID).Str("audioID", res.AudioID).Msg("transcription saved")
		return c.JSON(http.StatusCreated, mapTrans(res))
	}
}

// applyContentRules fills the content fields, returns *echo.HTTPError on wrong input
func applyContentRules(input *transcriptionInput, tr *persistence.Transcription) error {
	if input.Suitable != nil && !*input.Suitable {
		tr.Text = unsuitableText
		tr.Suitable = sql.NullBool{Bool: false, Valid: true}
		return nil
	}
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "no text")
	}
	g := gender.From(input.SpeakerGender)
	if g == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("wrong speakerGender '%s'", input.SpeakerGender))
	}
	tr.Text = text
	tr.SpeakerGender = utils.ToSQLStr(g.String())
	tr.HasNoise = sql.NullBool{Bool: boolOr(input.HasNoise, false), Valid: true}
	tr.IsCodeMixed = sql.NullBool{Bool: boolOr(input.CodeMixed, false), Valid: true}
	tr.HasSpeakerOverlap = sql.NullBool{Bool: boolOr(input.SpeakerOverlap, false), Valid: true}
	tr.Suitable = sql.NullBool{Bool: true, Valid: true}
	return nil
}

func boolOr(v *bool, d bool) bool {
	if v != nil {
		return *v
	}
	return d
}

// dropAudioPayload tries to remove the object right away, on failure the scrub queue retries
func dropAudioPayload(ctx context.Context, data *Data, clip *persistence.AudioClip) {
	deleted, err := data.Filer.Delete(ctx, clip.Filename)
	if err != nil {
		goapp.Log.Error().Err(err).Str("file", clip.Filename).Msg("can't delete audio file")
		if errSend := data.MsgSender.SendMessage(ctx, messages.NewScrubMessage(clip.ID, clip.Filename), messages.Scrub); errSend != nil {
			goapp.Log.Error().Err(errSend).Msg("can't send scrub message")
		}
		return
	}
	if !deleted {
		goapp.Log.Warn().Str("file", clip.Filename).Msg("audio file not in storage")
		return
	}
	goapp.Log.Info().Str("file", clip.Filename).Msg("audio file deleted")
}
