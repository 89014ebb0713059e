package api

const (
	// PrmFile - import form file parameter
	PrmFile = "file"
	// PrmRange - leaderboard range query parameter
	PrmRange = "range"
)
