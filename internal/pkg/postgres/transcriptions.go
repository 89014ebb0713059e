package postgres

import (
	"context"
	"fmt"

	"github.com/airenas/scribe/internal/pkg/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const transFields = `trans_id, audio_id, content, speaker_gender, has_noise, is_code_mixed, has_speaker_overlap, is_audio_suitable, admin, validated_at, created`

// SubmitTranscription stores the transcription and updates its clip in one transaction.
// The clip gets transcription_count incremented and the lease dropped, so it is claimable again.
// A clip flagged unsuitable also gets its filename replaced by a delete marker and
// reference data cleared.
// Returns nil if the clip does not exist
func (db *DB) SubmitTranscription(ctx context.Context, tr *persistence.Transcription) (*persistence.Transcription, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("can't begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var audioID string
	if tr.Suitable.Valid && !tr.Suitable.Bool {
		err = tx.QueryRow(ctx, `UPDATE audio_clips SET transcription_count = transcription_count + 1, leased_until = now(),
			filename = $2, reference_text = NULL, segment_start_ms = NULL, segment_end_ms = NULL
			WHERE audio_id = $1 RETURNING audio_id`, tr.AudioID, "deleted:"+tr.AudioID).Scan(&audioID)
	} else {
		err = tx.QueryRow(ctx, `UPDATE audio_clips SET transcription_count = transcription_count + 1, leased_until = now()
			WHERE audio_id = $1 RETURNING audio_id`, tr.AudioID).Scan(&audioID)
	}
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("can't update audio: %w", err)
	}

	tr.ID = uuid.NewString()
	err = tx.QueryRow(ctx, `INSERT INTO transcriptions(trans_id, audio_id, content, speaker_gender, has_noise, is_code_mixed, has_speaker_overlap, is_audio_suitable, admin)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING created`,
		tr.ID, tr.AudioID, tr.Text, tr.SpeakerGender, tr.HasNoise, tr.IsCodeMixed,
		tr.HasSpeakerOverlap, tr.Suitable, tr.Admin).Scan(&tr.Created)
	if err != nil {
		return nil, fmt.Errorf("can't insert transcription: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("can't commit: %w", err)
	}
	return tr, nil
}

// GetValidationCandidates returns oldest pending transcriptions whose clips are not leased.
// Read only - leasing a candidate's clip is a separate step
func (db *DB) GetValidationCandidates(ctx context.Context, limit int) ([]*persistence.ValidationCandidate, error) {
	rows, err := db.pool.Query(ctx, `SELECT t.trans_id, t.audio_id, t.content, t.speaker_gender, t.has_noise, t.is_code_mixed,
			t.has_speaker_overlap, t.is_audio_suitable, t.admin, t.validated_at, t.created,
			a.audio_id, a.filename, a.reference_text, a.transcription_count, a.leased_until, a.segment_start_ms, a.segment_end_ms, a.created
		FROM transcriptions t
		JOIN audio_clips a ON a.audio_id = t.audio_id
		WHERE t.validated_at IS NULL AND t.is_audio_suitable IS NOT false
			AND (a.leased_until IS NULL OR a.leased_until < now())
		ORDER BY t.created ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("can't select candidates: %w", err)
	}
	defer rows.Close()

	res := []*persistence.ValidationCandidate{}
	for rows.Next() {
		var c persistence.ValidationCandidate
		if err := rows.Scan(&c.Trans.ID, &c.Trans.AudioID, &c.Trans.Text, &c.Trans.SpeakerGender, &c.Trans.HasNoise,
			&c.Trans.IsCodeMixed, &c.Trans.HasSpeakerOverlap, &c.Trans.Suitable, &c.Trans.Admin, &c.Trans.ValidatedAt,
			&c.Trans.Created, &c.Audio.ID, &c.Audio.Filename, &c.Audio.ReferenceText, &c.Audio.TranscriptionCount,
			&c.Audio.LeasedUntil, &c.Audio.SegmentStartMs, &c.Audio.SegmentEndMs, &c.Audio.Created); err != nil {
			return nil, fmt.Errorf("can't scan candidate: %w", err)
		}
		res = append(res, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("can't select candidates: %w", err)
	}
	return res, nil
}

// ValidateTranscription overwrites content and quality fields and marks the transcription validated.
// Admin attribution is kept as submitted.
// Returns nil if the transcription does not exist
func (db *DB) ValidateTranscription(ctx context.Context, id string, upd *persistence.Transcription) (*persistence.Transcription, error) {
	var res persistence.Transcription
	err := db.pool.QueryRow(ctx, `UPDATE transcriptions SET content = $2, speaker_gender = $3, has_noise = $4,
		is_code_mixed = $5, has_speaker_overlap = $6, is_audio_suitable = $7, validated_at = now()
		WHERE trans_id = $1
		RETURNING `+transFields, id, upd.Text, upd.SpeakerGender, upd.HasNoise, upd.IsCodeMixed,
		upd.HasSpeakerOverlap, upd.Suitable).
		Scan(&res.ID, &res.AudioID, &res.Text, &res.SpeakerGender, &res.HasNoise, &res.IsCodeMixed,
			&res.HasSpeakerOverlap, &res.Suitable, &res.Admin, &res.ValidatedAt, &res.Created)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("can't validate transcription: %w", err)
	}
	return &res, nil
}

// LoadValidationStats returns counts over suitable transcriptions
func (db *DB) LoadValidationStats(ctx context.Context) (*persistence.ValidationStats, error) {
	var res persistence.ValidationStats
	err := db.pool.QueryRow(ctx, `SELECT count(*), count(*) FILTER (WHERE validated_at IS NULL) FROM transcriptions
		WHERE is_audio_suitable IS NOT false`).Scan(&res.Total, &res.Pending)
	if err != nil {
		return nil, fmt.Errorf("can't load stats: %w", err)
	}
	return &res, nil
}

const (
	ldrAll = `SELECT admin, count(*) FROM transcriptions WHERE admin IS NOT NULL
		GROUP BY admin ORDER BY count(*) DESC, admin`
	ldrWeek = `SELECT admin, count(*) FROM transcriptions WHERE admin IS NOT NULL AND created >= date_trunc('week', now())
		GROUP BY admin ORDER BY count(*) DESC, admin`
	ldrMonth = `SELECT admin, count(*) FROM transcriptions WHERE admin IS NOT NULL AND created >= date_trunc('month', now())
		GROUP BY admin ORDER BY count(*) DESC, admin`
)

// LoadLeaderboard returns transcription counts per admin, most active first.
// rng narrows counting to the current week or month, any other value means all time
func (db *DB) LoadLeaderboard(ctx context.Context, rng string) ([]*persistence.LeaderboardEntry, error) {
	q := ldrAll
	switch rng {
	case "week":
		q = ldrWeek
	case "month":
		q = ldrMonth
	}
	rows, err := db.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("can't select leaderboard: %w", err)
	}
	defer rows.Close()

	res := []*persistence.LeaderboardEntry{}
	for rows.Next() {
		var e persistence.LeaderboardEntry
		if err := rows.Scan(&e.Admin, &e.Count); err != nil {
			return nil, fmt.Errorf("can't scan leaderboard row: %w", err)
		}
		res = append(res, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("can't select leaderboard: %w", err)
	}
	return res, nil
}
