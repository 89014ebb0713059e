package collect

import (
	"net/http"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/scribe/internal/pkg/api"
	"github.com/labstack/echo/v4"
)

type leaderInfo struct {
	Admin string `json:"admin"`
	Count int    `json:"count"`
}

type leaderboardResult struct {
	Range   string       `json:"range"`
	Total   int          `json:"total"`
	Leaders []leaderInfo `json:"leaders"`
}

func leaderboard(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("leaderboard method")()

		rng := c.QueryParam(api.PrmRange)
		if rng != "week" && rng != "month" {
			rng = "all"
		}
		leaders, err := data.DB.LoadLeaderboard(c.Request().Context(), rng)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		res := &leaderboardResult{Range: rng, Total: len(leaders), Leaders: []leaderInfo{}}
		for _, l := range leaders {
			res.Leaders = append(res.Leaders, leaderInfo{Admin: l.Admin, Count: l.Count})
		}
		return c.JSON(http.StatusOK, res)
	}
}
