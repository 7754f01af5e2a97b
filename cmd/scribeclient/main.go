// scribeclient is a smoke-test client for a locally running service: it
// uploads a synthetic recording, waits for the transcription to complete,
// generates a clinical note and walks it through the review workflow.
package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"ai-clinical-scribe-service/internal/models"
)

var baseURL = flag.String("url", "http://localhost:8080", "service base URL")

func main() {
	flag.Parse()

	recordingID := uuid.NewString()
	log.Printf("Creating transcription for recording %s", recordingID)

	var tr models.Transcription
	post("/v1/transcriptions", map[string]any{
		"voiceRecording": models.VoiceRecording{
			ID:              recordingID,
			EncounterID:     "enc-smoke",
			PatientID:       "pat-smoke",
			DoctorID:        "doc-smoke",
			AudioFormat:     "audio/wav",
			SampleRateHertz: 16000,
			DurationSeconds: 45,
		},
		"audioContent": base64.StdEncoding.EncodeToString([]byte("synthetic-pcm")),
	}, &tr)
	log.Printf("Transcription %s created: status=%s", tr.ID, tr.Status)

	for i := 0; i < 20 && tr.Status != models.TranscriptionCompleted; i++ {
		time.Sleep(500 * time.Millisecond)
		get("/v1/transcriptions/"+tr.ID, &tr)
	}
	if tr.Status != models.TranscriptionCompleted {
		log.Fatalf("transcription did not complete: status=%s", tr.Status)
	}
	log.Printf("Transcript (%d words, confidence %.2f): %s",
		tr.Result.WordCount, tr.Result.Confidence, tr.Result.Transcript)

	var note models.ClinicalNote
	post("/v1/notes", map[string]any{"transcriptionId": tr.ID}, &note)
	log.Printf("Note %s generated: status=%s confidence=%.2f flags=%d",
		note.ID, note.Status, note.AIMetadata.ConfidenceScore, len(note.ComplianceFlags))

	if note.Status == models.NoteReview {
		post("/v1/notes/"+note.ID+"/review", map[string]any{"userId": "doc-smoke", "comments": "smoke review"}, &note)
	} else {
		post("/v1/notes/"+note.ID+"/review", map[string]any{"userId": "doc-smoke"}, &note)
	}
	post("/v1/notes/"+note.ID+"/approve", map[string]any{"userId": "doc-smoke"}, &note)
	post("/v1/notes/"+note.ID+"/sign", map[string]any{"userId": "doc-smoke"}, &note)
	log.Printf("Note %s signed, audit trail has %d entries", note.ID, len(note.AuditTrail))
}

func post(path string, body, out any) {
	payload, err := json.Marshal(body)
	if err != nil {
		log.Fatalf("marshal %s: %v", path, err)
	}
	resp, err := http.Post(*baseURL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		log.Fatalf("POST %s: %v", path, err)
	}
	decode(path, resp, out)
}

func get(path string, out any) {
	resp, err := http.Get(*baseURL + path)
	if err != nil {
		log.Fatalf("GET %s: %v", path, err)
	}
	decode(path, resp, out)
}

func decode(path string, resp *http.Response, out any) {
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(resp.Body)
		log.Fatal(fmt.Sprintf("%s: HTTP %d: %s", path, resp.StatusCode, buf.String()))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		log.Fatalf("decode %s: %v", path, err)
	}
}
