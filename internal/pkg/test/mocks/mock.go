package mocks

import (
	"context"
	"time"

	"github.com/airenas/async-api/pkg/messages"
	"github.com/airenas/scribe/internal/pkg/filestore"
	"github.com/airenas/scribe/internal/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// DB is postgres DB mock
type DB struct{ mock.Mock }

func (m *DB) ClaimAudio(ctx context.Context, maxCount int, lease time.Duration) (*persistence.AudioClip, error) {
	args := m.Called(ctx, maxCount, lease)
	return to[*persistence.AudioClip](args.Get(0)), args.Error(1)
}

func (m *DB) TryLeaseAudio(ctx context.Context, id string, lease time.Duration) (bool, error) {
	args := m.Called(ctx, id, lease)
	return args.Bool(0), args.Error(1)
}

func (m *DB) ReleaseAudio(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *DB) LoadAudio(ctx context.Context, id string) (*persistence.AudioClip, error) {
	args := m.Called(ctx, id)
	return to[*persistence.AudioClip](args.Get(0)), args.Error(1)
}

func (m *DB) ListAudioFilenames(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return to[[]string](args.Get(0)), args.Error(1)
}

func (m *DB) ImportAudio(ctx context.Context, entries []persistence.ImportEntry) (*persistence.ImportResult, error) {
	args := m.Called(ctx, entries)
	return to[*persistence.ImportResult](args.Get(0)), args.Error(1)
}

func (m *DB) SubmitTranscription(ctx context.Context, tr *persistence.Transcription) (*persistence.Transcription, error) {
	args := m.Called(ctx, tr)
	return to[*persistence.Transcription](args.Get(0)), args.Error(1)
}

func (m *DB) GetValidationCandidates(ctx context.Context, limit int) ([]*persistence.ValidationCandidate, error) {
	args := m.Called(ctx, limit)
	return to[[]*persistence.ValidationCandidate](args.Get(0)), args.Error(1)
}

func (m *DB) ValidateTranscription(ctx context.Context, id string, upd *persistence.Transcription) (*persistence.Transcription, error) {
	args := m.Called(ctx, id, upd)
	return to[*persistence.Transcription](args.Get(0)), args.Error(1)
}

func (m *DB) LoadValidationStats(ctx context.Context) (*persistence.ValidationStats, error) {
	args := m.Called(ctx)
	return to[*persistence.ValidationStats](args.Get(0)), args.Error(1)
}

func (m *DB) LoadLeaderboard(ctx context.Context, rng string) ([]*persistence.LeaderboardEntry, error) {
	args := m.Called(ctx, rng)
	return to[[]*persistence.LeaderboardEntry](args.Get(0)), args.Error(1)
}

// Filer is minio mock
type Filer struct{ mock.Mock }

func (m *Filer) SignURL(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Error(1)
}

func (m *Filer) List(ctx context.Context) ([]filestore.FileData, error) {
	args := m.Called(ctx)
	return to[[]filestore.FileData](args.Get(0)), args.Error(1)
}

func (m *Filer) Delete(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

// Sender is postgres queue mock
type Sender struct{ mock.Mock }

func (m *Sender) SendMessage(ctx context.Context, msg messages.Message, queue string) error {
	args := m.Called(ctx, msg, queue)
	return args.Error(0)
}

func to[T interface{}](val interface{}) T {
	if val == nil {
		var res T
		return res
	}
	return val.(T)
}
