package collect

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/airenas/scribe/internal/pkg/persistence"
	"github.com/airenas/scribe/internal/pkg/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLeaderboard_Returns(t *testing.T) {
	initTest(t)
	dbMock.On("LoadLeaderboard", mock.Anything, "all").Return(
		[]*persistence.LeaderboardEntry{{Admin: "jonas", Count: 10}, {Admin: "petras", Count: 5}}, nil)
	req := httptest.NewRequest(http.MethodGet, "/leaderboard", nil)
	resp := testCode(t, req, http.StatusOK)
	res := test.Decode[leaderboardResult](t, resp.Result())
	assert.Equal(t, "all", res.Range)
	assert.Equal(t, 2, res.Total)
	require.Equal(t, 2, len(res.Leaders))
	assert.Equal(t, "jonas", res.Leaders[0].Admin)
	assert.Equal(t, 10, res.Leaders[0].Count)
	assert.Equal(t, "petras", res.Leaders[1].Admin)
}

func TestLeaderboard_Range(t *testing.T) {
	tests := []struct {
		name string
		rng  string
		want string
	}{
		{name: "week", rng: "week", want: "week"},
		{name: "month", rng: "month", want: "month"},
		{name: "all", rng: "all", want: "all"},
		{name: "empty", rng: "", want: "all"},
		{name: "wrong", rng: "olia", want: "all"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			initTest(t)
			dbMock.On("LoadLeaderboard", mock.Anything, tt.want).Return([]*persistence.LeaderboardEntry{}, nil)
			req := httptest.NewRequest(http.MethodGet, "/leaderboard?range="+tt.rng, nil)
			resp := testCode(t, req, http.StatusOK)
			res := test.Decode[leaderboardResult](t, resp.Result())
			assert.Equal(t, tt.want, res.Range)
			assert.Equal(t, 0, res.Total)
		})
	}
}

func TestLeaderboard_Fail(t *testing.T) {
	initTest(t)
	dbMock.On("LoadLeaderboard", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("olia"))
	req := httptest.NewRequest(http.MethodGet, "/leaderboard", nil)
	testCode(t, req, http.StatusInternalServerError)
}
