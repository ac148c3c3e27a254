// Package storage persists transcripts and the enrolled-voice
// directory in a local sqlite database.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"meeting-transcription-service/internal/models"
)

// Store wraps the sqlite database.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed initializes) the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS transcripts (
			recording_id TEXT PRIMARY KEY,
			duration REAL NOT NULL,
			degraded INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sentences (
			recording_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			speaker INTEGER NOT NULL,
			start_sec REAL NOT NULL,
			end_sec REAL NOT NULL,
			text TEXT NOT NULL,
			PRIMARY KEY (recording_id, position)
		)`,
		`CREATE TABLE IF NOT EXISTS speaker_names (
			recording_id TEXT NOT NULL,
			speaker INTEGER NOT NULL,
			display_name TEXT NOT NULL,
			PRIMARY KEY (recording_id, speaker)
		)`,
		`CREATE TABLE IF NOT EXISTS identities (
			id TEXT PRIMARY KEY,
			display_name TEXT NOT NULL,
			vector BLOB NOT NULL,
			created_at INTEGER NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// SaveTranscript stores one finished transcript, replacing any
// previous result for the same recording.
func (s *Store) SaveTranscript(ctx context.Context, t *models.Transcript) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM sentences WHERE recording_id = ?`, t.RecordingID); err != nil {
		return fmt.Errorf("clear sentences: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM speaker_names WHERE recording_id = ?`, t.RecordingID); err != nil {
		return fmt.Errorf("clear speaker names: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO transcripts (recording_id, duration, degraded, created_at)
		 VALUES (?, ?, ?, ?)`,
		t.RecordingID, t.Duration, boolToInt(t.Degraded), time.Now().Unix()); err != nil {
		return fmt.Errorf("insert transcript: %w", err)
	}

	for i, sent := range t.Sentences {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sentences (recording_id, position, speaker, start_sec, end_sec, text)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			t.RecordingID, i, sent.Speaker, sent.Start, sent.End, sent.Text); err != nil {
			return fmt.Errorf("insert sentence %d: %w", i, err)
		}
	}
	for speaker, name := range t.SpeakerName {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO speaker_names (recording_id, speaker, display_name)
			 VALUES (?, ?, ?)`,
			t.RecordingID, speaker, name); err != nil {
			return fmt.Errorf("insert speaker name: %w", err)
		}
	}

	return tx.Commit()
}

// GetTranscript loads one stored transcript. A missing recording
// returns sql.ErrNoRows.
func (s *Store) GetTranscript(ctx context.Context, recordingID string) (*models.Transcript, error) {
	t := &models.Transcript{RecordingID: recordingID}

	var degraded int
	err := s.db.QueryRowContext(ctx,
		`SELECT duration, degraded FROM transcripts WHERE recording_id = ?`,
		recordingID).Scan(&t.Duration, &degraded)
	if err != nil {
		return nil, err
	}
	t.Degraded = degraded != 0

	rows, err := s.db.QueryContext(ctx,
		`SELECT speaker, start_sec, end_sec, text FROM sentences
		 WHERE recording_id = ? ORDER BY position`,
		recordingID)
	if err != nil {
		return nil, fmt.Errorf("load sentences: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var sent models.Sentence
		if err := rows.Scan(&sent.Speaker, &sent.Start, &sent.End, &sent.Text); err != nil {
			return nil, fmt.Errorf("scan sentence: %w", err)
		}
		t.Sentences = append(t.Sentences, sent)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	names, err := s.db.QueryContext(ctx,
		`SELECT speaker, display_name FROM speaker_names WHERE recording_id = ?`,
		recordingID)
	if err != nil {
		return nil, fmt.Errorf("load speaker names: %w", err)
	}
	defer names.Close()
	for names.Next() {
		var speaker int
		var name string
		if err := names.Scan(&speaker, &name); err != nil {
			return nil, fmt.Errorf("scan speaker name: %w", err)
		}
		if t.SpeakerName == nil {
			t.SpeakerName = map[int]string{}
		}
		t.SpeakerName[speaker] = name
	}
	return t, names.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
