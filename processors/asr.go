package processors

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"lectureNotes/config"
	"lectureNotes/core"
)

// ASRProvider turns an audio file into ordered, timestamped transcript
// segments with stable ids.
type ASRProvider interface {
	Transcribe(ctx context.Context, audioPath string) ([]core.TranscriptSegment, error)
}

// MockASR fabricates fixed-length placeholder segments from the audio
// duration. Used when no ASR backend is available and in tests.
type MockASR struct {
	Runner core.CommandRunner
}

func (m MockASR) Transcribe(ctx context.Context, audioPath string) ([]core.TranscriptSegment, error) {
	dur, err := ProbeDuration(ctx, m.Runner, audioPath)
	if err != nil {
		return nil, err
	}
	segLen := 15.0
	segs := make([]core.TranscriptSegment, 0)
	for start := 0.0; start < dur; start += segLen {
		end := start + segLen
		if end > dur {
			end = dur
		}
		segs = append(segs, core.TranscriptSegment{
			ID:    len(segs),
			Start: start,
			End:   end,
			Text:  fmt.Sprintf("Placeholder transcript from %.0fs to %.0fs", start, end),
		})
	}
	return segs, nil
}

// WhisperAPIASR uses the hosted Whisper endpoint with verbose JSON output so
// segment timestamps survive.
type WhisperAPIASR struct {
	cli    *openai.Client
	runner core.CommandRunner
}

func (w WhisperAPIASR) Transcribe(ctx context.Context, audioPath string) ([]core.TranscriptSegment, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()
	resp, err := w.cli.CreateTranscription(ctx, openai.AudioRequest{
		Model:    "whisper-1",
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, &core.ExternalServiceError{Service: "transcriber", Err: err}
	}

	if len(resp.Segments) == 0 {
		// Degraded responses carry only the flat text; keep it as a
		// single span rather than failing the whole pipeline.
		text := strings.TrimSpace(resp.Text)
		if text == "" {
			return nil, &core.ExternalServiceError{Service: "transcriber", Err: fmt.Errorf("empty transcription result")}
		}
		dur, _ := ProbeDuration(ctx, w.runner, audioPath)
		return []core.TranscriptSegment{{ID: 0, Start: 0, End: dur, Text: text}}, nil
	}

	segs := make([]core.TranscriptSegment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		segs = append(segs, core.TranscriptSegment{
			ID:    len(segs),
			Start: s.Start,
			End:   s.End,
			Text:  strings.TrimSpace(s.Text),
		})
	}
	return segs, nil
}

// faster-whisper driver script, written to a temp file and run through the
// injected command runner.
const fasterWhisperScript = `#!/usr/bin/env python3
import json, os, sys
from faster_whisper import WhisperModel

model = WhisperModel(os.getenv("WHISPER_MODEL", "base"), device="cpu", compute_type="int8")
segments, info = model.transcribe(sys.argv[1], beam_size=5, word_timestamps=True)
out = [{"id": s.id, "start": s.start, "end": s.end, "text": s.text.strip()} for s in segments]
print(json.dumps(out, ensure_ascii=False))
`

// LocalWhisperASR shells out to faster-whisper via python. No API key
// needed; the model size comes from configuration.
type LocalWhisperASR struct {
	Runner core.CommandRunner
	Model  string
}

func (l LocalWhisperASR) Transcribe(ctx context.Context, audioPath string) ([]core.TranscriptSegment, error) {
	scriptPath := filepath.Join(os.TempDir(), "faster_whisper_transcribe.py")
	if err := os.WriteFile(scriptPath, []byte(fasterWhisperScript), 0644); err != nil {
		return nil, fmt.Errorf("write whisper script: %v", err)
	}
	defer os.Remove(scriptPath)

	model := l.Model
	if model == "" {
		model = "base"
	}
	res, err := l.Runner.Run(ctx, "python", []string{scriptPath, audioPath}, []string{"WHISPER_MODEL=" + model})
	if err != nil {
		return nil, &core.ExternalServiceError{Service: "transcriber", Err: err}
	}
	if res.ExitCode != 0 {
		return nil, &core.ExternalServiceError{Service: "transcriber",
			Err: fmt.Errorf("whisper exited %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))}
	}

	var segs []core.TranscriptSegment
	if err := json.Unmarshal([]byte(res.Stdout), &segs); err != nil {
		return nil, &core.ExternalServiceError{Service: "transcriber", Err: fmt.Errorf("parse whisper output: %v", err)}
	}
	// Later stages key on segment ids; make them positional regardless of
	// what the model emitted.
	for i := range segs {
		segs[i].ID = i
		segs[i].Text = strings.TrimSpace(segs[i].Text)
	}
	return segs, nil
}

// PickASRProvider selects the transcriber from the ASR env var:
// mock, api-whisper, or local faster-whisper (default).
func PickASRProvider(cfg *config.Config, runner core.CommandRunner) ASRProvider {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("ASR"))) {
	case "mock":
		return MockASR{Runner: runner}
	case "api-whisper":
		if !cfg.HasValidAPI() {
			log.Printf("Warning: API configuration not found for API Whisper, using local whisper")
			return LocalWhisperASR{Runner: runner, Model: cfg.WhisperModel}
		}
		return WhisperAPIASR{cli: NewOpenAIClient(cfg), runner: runner}
	default:
		return LocalWhisperASR{Runner: runner, Model: cfg.WhisperModel}
	}
}
