package persistence

import (
	"database/sql"
	"time"
)

type (

	//AudioClip table row
	AudioClip struct {
		ID                 string
		Filename           string
		ReferenceText      sql.NullString
		TranscriptionCount int
		LeasedUntil        sql.NullTime
		SegmentStartMs     sql.NullInt32
		SegmentEndMs       sql.NullInt32
		Created            time.Time
	}

	//Transcription table row
	Transcription struct {
		ID                string
		AudioID           string
		Text              string
		SpeakerGender     sql.NullString
		HasNoise          sql.NullBool
		IsCodeMixed       sql.NullBool
		HasSpeakerOverlap sql.NullBool
		Suitable          sql.NullBool
		Admin             sql.NullString
		ValidatedAt       sql.NullTime
		Created           time.Time
	}

	//ValidationCandidate pairs a pending transcription with its audio clip
	ValidationCandidate struct {
		Audio AudioClip
		Trans Transcription
	}

	//ValidationStats holds counts over suitable transcriptions
	ValidationStats struct {
		Total   int
		Pending int
	}

	//LeaderboardEntry - transcription count per admin
	LeaderboardEntry struct {
		Admin string
		Count int
	}

	//ImportEntry - one parsed csv row for audio import
	ImportEntry struct {
		Row            int
		Filename       string
		Text           string
		SegmentStartMs sql.NullInt32
		SegmentEndMs   sql.NullInt32
	}

	//SkippedRow - import row rejected as duplicate or empty
	SkippedRow struct {
		Row      int
		Filename string
	}

	//ImportResult - audio import outcome
	ImportResult struct {
		Total       int
		Inserted    int
		Skipped     int
		SkippedRows []SkippedRow
	}
)
