package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/airenas/scribe/internal/pkg/persistence"
	"github.com/airenas/scribe/internal/pkg/utils"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB provides operations with postgresql
type DB struct {
	pool *pgxpool.Pool
}

//NewDB creates DB instance
func NewDB(pool *pgxpool.Pool) (*DB, error) {
	res := &DB{pool: pool}
	return res, nil
}

const audioFields = `audio_id, filename, reference_text, transcription_count, leased_until, segment_start_ms, segment_end_ms, created`

// ClaimAudio atomically selects one claimable clip and leases it.
// Claimable: transcription_count < maxCount and lease unset or expired.
// Clips are handed out by lowest transcription_count first.
// Returns nil if there is no claimable clip
func (db *DB) ClaimAudio(ctx context.Context, maxCount int, lease time.Duration) (*persistence.AudioClip, error) {
	var res persistence.AudioClip
	err := db.pool.QueryRow(ctx, `UPDATE audio_clips SET leased_until = now() + make_interval(secs => $2)
		WHERE audio_id = (
			SELECT audio_id FROM audio_clips
			WHERE transcription_count < $1 AND (leased_until IS NULL OR leased_until < now())
			ORDER BY transcription_count ASC, audio_id ASC
			FOR UPDATE SKIP LOCKED
			LIMIT 1)
		RETURNING `+audioFields, maxCount, lease.Seconds()).
		Scan(&res.ID, &res.Filename, &res.ReferenceText, &res.TranscriptionCount, &res.LeasedUntil,
			&res.SegmentStartMs, &res.SegmentEndMs, &res.Created)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("can't claim audio: %w", err)
	}
	return &res, nil
}

// TryLeaseAudio leases the clip if its lease is unset or expired.
// No transcription_count check - used to lock a clip for validation
func (db *DB) TryLeaseAudio(ctx context.Context, id string, lease time.Duration) (bool, error) {
	var resID string
	err := db.pool.QueryRow(ctx, `UPDATE audio_clips SET leased_until = now() + make_interval(secs => $2)
		WHERE audio_id = $1 AND (leased_until IS NULL OR leased_until < now())
		RETURNING audio_id`, id, lease.Seconds()).Scan(&resID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("can't lease audio: %w", err)
	}
	return true, nil
}

// ReleaseAudio drops the lease and makes the clip claimable again.
// Returns false if the clip does not exist
func (db *DB) ReleaseAudio(ctx context.Context, id string) (bool, error) {
	var resID string
	err := db.pool.QueryRow(ctx, `UPDATE audio_clips SET leased_until = now()
		WHERE audio_id = $1 RETURNING audio_id`, id).Scan(&resID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("can't release audio: %w", err)
	}
	return true, nil
}

// LoadAudio loads clip from DB, nil if not found
func (db *DB) LoadAudio(ctx context.Context, id string) (*persistence.AudioClip, error) {
	var res persistence.AudioClip
	err := db.pool.QueryRow(ctx, `SELECT `+audioFields+` FROM audio_clips
		WHERE audio_id = $1`, id).
		Scan(&res.ID, &res.Filename, &res.ReferenceText, &res.TranscriptionCount, &res.LeasedUntil,
			&res.SegmentStartMs, &res.SegmentEndMs, &res.Created)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("can't load audio: %w", err)
	}
	return &res, nil
}

// ListAudioFilenames returns all clip filenames
func (db *DB) ListAudioFilenames(ctx context.Context) ([]string, error) {
	rows, err := db.pool.Query(ctx, `SELECT filename FROM audio_clips ORDER BY filename`)
	if err != nil {
		return nil, fmt.Errorf("can't select filenames: %w", err)
	}
	defer rows.Close()

	res := []string{}
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("can't scan filename: %w", err)
		}
		res = append(res, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("can't select filenames: %w", err)
	}
	return res, nil
}

// ImportAudio inserts parsed csv rows in one transaction.
// Rows with empty or already existing filenames are skipped and reported in the result
func (db *DB) ImportAudio(ctx context.Context, entries []persistence.ImportEntry) (*persistence.ImportResult, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("can't begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Filename != "" {
			names = append(names, e.Filename)
		}
	}
	existing, err := selectExisting(ctx, tx, names)
	if err != nil {
		return nil, err
	}

	res := &persistence.ImportResult{Total: len(entries), SkippedRows: []persistence.SkippedRow{}}
	for _, e := range entries {
		if e.Filename == "" || existing[e.Filename] {
			res.Skipped++
			res.SkippedRows = append(res.SkippedRows, persistence.SkippedRow{Row: e.Row, Filename: e.Filename})
			continue
		}
		_, err := tx.Exec(ctx, `INSERT INTO audio_clips(audio_id, filename, reference_text, segment_start_ms, segment_end_ms)
		VALUES($1, $2, $3, $4, $5)`, uuid.NewString(), e.Filename, utils.ToSQLStr(e.Text), e.SegmentStartMs, e.SegmentEndMs)
		if err != nil {
			return nil, fmt.Errorf("can't insert audio: %w", err)
		}
		existing[e.Filename] = true
		res.Inserted++
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("can't commit: %w", err)
	}
	return res, nil
}

func selectExisting(ctx context.Context, tx pgx.Tx, names []string) (map[string]bool, error) {
	res := map[string]bool{}
	if len(names) == 0 {
		return res, nil
	}
	rows, err := tx.Query(ctx, `SELECT filename FROM audio_clips WHERE filename = ANY($1)`, names)
	if err != nil {
		return nil, fmt.Errorf("can't select filenames: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("can't scan filename: %w", err)
		}
		res[n] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("can't select filenames: %w", err)
	}
	return res, nil
}

// Live returns no error if db is reachable and initialized
func (db *DB) Live(ctx context.Context) error {
	var exists bool
	if err := db.pool.QueryRow(ctx, `SELECT EXISTS (SELECT FROM pg_tables WHERE tablename = 'audio_clips')`).Scan(&exists); err != nil {
		return fmt.Errorf("can't check table: %w", err)
	}
	if !exists {
		return fmt.Errorf("no migration done")
	}
	return nil
}
