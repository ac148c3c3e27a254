// Command transcripts prints a stored transcript from the local
// database, for inspecting what the service produced for a recording.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"meeting-transcription-service/internal/storage"
)

func main() {
	dbPath := flag.String("db", "transcripts.db", "Path to the transcript database")
	recordingID := flag.String("recording", "", "Recording id to print")
	flag.Parse()

	if *recordingID == "" {
		flag.Usage()
		os.Exit(2)
	}

	store, err := storage.Open(*dbPath)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer store.Close()

	t, err := store.GetTranscript(context.Background(), *recordingID)
	if errors.Is(err, sql.ErrNoRows) {
		log.Fatalf("no transcript for recording %s", *recordingID)
	}
	if err != nil {
		log.Fatalf("load transcript: %v", err)
	}

	fmt.Printf("Recording %s (%.1fs, %d speakers", t.RecordingID, t.Duration, t.SpeakerCount())
	if t.Degraded {
		fmt.Print(", degraded")
	}
	fmt.Println(")")

	for _, s := range t.Sentences {
		name := t.SpeakerName[s.Speaker]
		if name == "" {
			name = fmt.Sprintf("Speaker %d", s.Speaker)
		}
		fmt.Printf("[%8.2f - %8.2f] %s: %s\n", s.Start, s.End, name, s.Text)
	}
}
