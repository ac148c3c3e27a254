package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"meeting-transcription-service/internal/engine/identity"
	"meeting-transcription-service/internal/engine/vec"
	"meeting-transcription-service/internal/models"
)

// Directory is the sqlite-backed enrolled-voice index. The engine only
// reads it; enrollment happens through the voiceenroll tool.
type Directory struct {
	store *Store
}

// NewDirectory returns the directory view over the store.
func NewDirectory(store *Store) *Directory {
	return &Directory{store: store}
}

// Query scans every enrolled vector by cosine similarity and returns
// the topK best matches in descending order. The directory holds one
// row per enrolled person, so a linear scan is the index.
func (d *Directory) Query(ctx context.Context, vector []float32, topK int) ([]identity.Match, error) {
	rows, err := d.store.db.QueryContext(ctx,
		`SELECT id, display_name, vector FROM identities`)
	if err != nil {
		return nil, fmt.Errorf("query identities: %w", err)
	}
	defer rows.Close()

	var matches []identity.Match
	for rows.Next() {
		var id, name string
		var raw []byte
		if err := rows.Scan(&id, &name, &raw); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		var enrolled []float32
		if err := json.Unmarshal(raw, &enrolled); err != nil {
			return nil, fmt.Errorf("decode vector for %s: %w", id, err)
		}
		matches = append(matches, identity.Match{
			ID:          id,
			DisplayName: name,
			Similarity:  vec.Cosine(vector, enrolled),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Enroll inserts or updates one identity. Not called from the engine.
func (d *Directory) Enroll(ctx context.Context, ident models.EnrolledIdentity) error {
	raw, err := json.Marshal(ident.Vector)
	if err != nil {
		return fmt.Errorf("encode vector: %w", err)
	}
	_, err = d.store.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO identities (id, display_name, vector, created_at)
		 VALUES (?, ?, ?, ?)`,
		ident.ID, ident.DisplayName, raw, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("enroll identity: %w", err)
	}
	return nil
}
