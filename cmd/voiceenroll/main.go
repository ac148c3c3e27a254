// Command voiceenroll adds a person to the enrolled-voice directory.
// It extracts an excerpt from a clean single-speaker recording, asks
// the embedding backend for a voiceprint, and stores it. The main
// service only ever reads the directory; this tool is the write path.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/google/uuid"

	"meeting-transcription-service/internal/audio"
	"meeting-transcription-service/internal/models"
	"meeting-transcription-service/internal/service/embed"
	"meeting-transcription-service/internal/storage"
)

func main() {
	dbPath := flag.String("db", "transcripts.db", "Path to the transcript database")
	embedURL := flag.String("embed-url", "http://localhost:8082", "Embedding backend base URL")
	audioFile := flag.String("audio", "", "Clean single-speaker recording")
	name := flag.String("name", "", "Display name to enroll")
	offset := flag.Float64("offset", 0, "Excerpt start in seconds")
	length := flag.Float64("length", 10, "Excerpt length in seconds")
	flag.Parse()

	if *audioFile == "" || *name == "" {
		flag.Usage()
		log.Fatal("both -audio and -name are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	processor := audio.NewProcessor("", "")
	excerpt, cleanup, err := processor.Slice(ctx, *audioFile, *offset, *length)
	if err != nil {
		log.Fatalf("extract excerpt: %v", err)
	}
	defer cleanup()

	vector, err := embed.NewHTTPClient(*embedURL).Embed(ctx, excerpt)
	if err != nil {
		log.Fatalf("embed excerpt: %v", err)
	}

	store, err := storage.Open(*dbPath)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer store.Close()

	ident := models.EnrolledIdentity{
		ID:          uuid.New().String(),
		DisplayName: *name,
		Vector:      vector,
	}
	if err := storage.NewDirectory(store).Enroll(ctx, ident); err != nil {
		log.Fatalf("enroll: %v", err)
	}
	log.Printf("enrolled %s as %s (%d-dim voiceprint)", *name, ident.ID, len(vector))
}
