package processors

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"lectureNotes/config"
	"lectureNotes/core"
	"lectureNotes/storage"
)

// Artifact filenames inside a lecture directory. Presence of each file is
// the persisted state machine; there is no separate manifest.
const (
	ArtifactAudio       = "audio.wav"
	ArtifactSegments    = "segments.json"
	ArtifactSubtitles   = "lecture.srt"
	ArtifactChaptersRaw = "chapters_raw.json"
	ArtifactChapters    = "chapters.json"
)

var videoExtensions = []string{".mp4", ".avi", ".mov", ".mkv", ".webm"}

// StageStatus is derived purely from artifact presence.
type StageStatus int

const (
	StageNotStarted StageStatus = iota
	StageComplete
)

// GateStatus reports a stage's status from an artifact-exists predicate, so
// gating logic is testable without filesystem state.
func GateStatus(artifact string, exists func(string) bool) StageStatus {
	if exists(artifact) {
		return StageComplete
	}
	return StageNotStarted
}

// StageResult records what happened to one stage during a run.
type StageResult struct {
	Name   string `json:"name"`
	Status string `json:"status"` // "completed" or "skipped"
}

type TranscriptionResult struct {
	LectureID    string        `json:"lecture_id"`
	Stages       []StageResult `json:"stages"`
	SegmentCount int           `json:"segment_count"`
	ChapterCount int           `json:"chapter_count"`
}

type SummarizationResult struct {
	LectureID    string        `json:"lecture_id"`
	Stages       []StageResult `json:"stages"`
	ChapterCount int           `json:"chapter_count"`
	StoredCount  int           `json:"stored_count"`
}

// Pipeline drives the stage-gated lecture processing legs. Every external
// collaborator is injected so runs are reproducible under test.
type Pipeline struct {
	cfg        *config.Config
	runner     core.CommandRunner
	asr        ASRProvider
	embedder   core.Embedder
	summarizer ChapterSummarizer
	store      storage.VectorStore // optional, nil skips chapter indexing
	exists     func(string) bool
}

func NewPipeline(cfg *config.Config, runner core.CommandRunner, asr ASRProvider, embedder core.Embedder, summarizer ChapterSummarizer, store storage.VectorStore) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		runner:     runner,
		asr:        asr,
		embedder:   embedder,
		summarizer: summarizer,
		store:      store,
		exists:     core.FileExists,
	}
}

func (p *Pipeline) LectureDir(lectureID string) string {
	return filepath.Join(p.cfg.DataDir, lectureID)
}

func (p *Pipeline) ArtifactPath(lectureID, artifact string) string {
	return filepath.Join(p.LectureDir(lectureID), artifact)
}

// FindVideoFile returns the uploaded video inside the lecture directory, or
// "" when none is present.
func (p *Pipeline) FindVideoFile(lectureID string) string {
	entries, err := os.ReadDir(p.LectureDir(lectureID))
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		for _, want := range videoExtensions {
			if ext == want {
				return filepath.Join(p.LectureDir(lectureID), e.Name())
			}
		}
	}
	return ""
}

// RunTranscription executes the audio -> segments -> raw chapters leg,
// skipping every stage whose output artifact already exists.
func (p *Pipeline) RunTranscription(ctx context.Context, lectureID string) (*TranscriptionResult, error) {
	dir := p.LectureDir(lectureID)
	if !p.exists(dir) {
		return nil, fmt.Errorf("lecture not found: %s", lectureID)
	}
	result := &TranscriptionResult{LectureID: lectureID}

	audioPath := p.ArtifactPath(lectureID, ArtifactAudio)
	segmentsPath := p.ArtifactPath(lectureID, ArtifactSegments)
	chaptersRawPath := p.ArtifactPath(lectureID, ArtifactChaptersRaw)

	// Stage 1: audio extraction.
	if GateStatus(audioPath, p.exists) == StageComplete {
		result.Stages = append(result.Stages, StageResult{Name: "extract_audio", Status: "skipped"})
	} else if GateStatus(chaptersRawPath, p.exists) == StageComplete && GateStatus(segmentsPath, p.exists) == StageComplete {
		// Everything downstream is done; no reason to touch the video.
		result.Stages = append(result.Stages, StageResult{Name: "extract_audio", Status: "skipped"})
	} else {
		videoPath := p.FindVideoFile(lectureID)
		if videoPath == "" {
			return nil, &core.MissingPrerequisiteError{LectureID: lectureID, Artifact: "video file"}
		}
		log.Printf("lecture %s: extracting audio", lectureID)
		if err := ExtractAudio(ctx, p.runner, videoPath, audioPath); err != nil {
			return nil, err
		}
		result.Stages = append(result.Stages, StageResult{Name: "extract_audio", Status: "completed"})
	}

	// Stage 2: transcription.
	var segments []core.TranscriptSegment
	if GateStatus(segmentsPath, p.exists) == StageComplete {
		result.Stages = append(result.Stages, StageResult{Name: "transcribe", Status: "skipped"})
	} else {
		if GateStatus(audioPath, p.exists) == StageNotStarted {
			return nil, &core.MissingPrerequisiteError{LectureID: lectureID, Artifact: ArtifactAudio}
		}
		log.Printf("lecture %s: transcribing", lectureID)
		segs, err := p.asr.Transcribe(ctx, audioPath)
		if err != nil {
			return nil, err
		}
		if err := core.SaveJSONAtomic(segmentsPath, segs); err != nil {
			return nil, fmt.Errorf("save segments: %v", err)
		}
		segments = segs
		result.Stages = append(result.Stages, StageResult{Name: "transcribe", Status: "completed"})
	}

	// The subtitle file is gated on its own presence: a crash between the
	// segments write and the SRT write must be repaired on the next run, not
	// skipped along with the transcribe stage.
	srtPath := p.ArtifactPath(lectureID, ArtifactSubtitles)
	if GateStatus(srtPath, p.exists) == StageComplete {
		result.Stages = append(result.Stages, StageResult{Name: "write_subtitles", Status: "skipped"})
	} else {
		if segments == nil {
			if err := core.LoadJSON(segmentsPath, &segments); err != nil {
				return nil, fmt.Errorf("load segments: %v", err)
			}
		}
		if err := WriteSRT(srtPath, segments); err != nil {
			return nil, fmt.Errorf("write subtitles: %v", err)
		}
		result.Stages = append(result.Stages, StageResult{Name: "write_subtitles", Status: "completed"})
	}

	// Stage 3: topic segmentation into raw chapters.
	if GateStatus(chaptersRawPath, p.exists) == StageComplete {
		result.Stages = append(result.Stages, StageResult{Name: "segment_topics", Status: "skipped"})
	} else {
		if segments == nil {
			if GateStatus(segmentsPath, p.exists) == StageNotStarted {
				return nil, &core.MissingPrerequisiteError{LectureID: lectureID, Artifact: ArtifactSegments}
			}
			if err := core.LoadJSON(segmentsPath, &segments); err != nil {
				return nil, fmt.Errorf("load segments: %v", err)
			}
		}
		chapters, err := p.segmentIntoChapters(ctx, lectureID, segments)
		if err != nil {
			return nil, err
		}
		if err := core.SaveJSONAtomic(chaptersRawPath, chapters); err != nil {
			return nil, fmt.Errorf("save raw chapters: %v", err)
		}
		result.SegmentCount = len(segments)
		result.ChapterCount = len(chapters)
		result.Stages = append(result.Stages, StageResult{Name: "segment_topics", Status: "completed"})
	}

	return result, nil
}

func (p *Pipeline) segmentIntoChapters(ctx context.Context, lectureID string, segments []core.TranscriptSegment) ([]core.Chapter, error) {
	windows, err := BuildWindows(segments, p.cfg.WindowSize, p.cfg.WindowOverlap)
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		log.Printf("lecture %s: empty transcript, no chapters", lectureID)
		return []core.Chapter{}, nil
	}

	texts := make([]string, len(windows))
	for i, w := range windows {
		texts[i] = w.Text
	}
	embeddings, err := EmbedTexts(ctx, p.embedder, texts)
	if err != nil {
		return nil, err
	}

	boundaries := DetectTopicBoundaries(embeddings, p.cfg.SimilarityThreshold)
	return AssembleChapters(windows, boundaries, segments), nil
}

// RunSummarization executes the raw chapters -> enriched chapters leg. The
// transcription leg's output is a hard prerequisite and is never regenerated
// from here.
func (p *Pipeline) RunSummarization(ctx context.Context, lectureID string) (*SummarizationResult, error) {
	result := &SummarizationResult{LectureID: lectureID}

	chaptersRawPath := p.ArtifactPath(lectureID, ArtifactChaptersRaw)
	chaptersPath := p.ArtifactPath(lectureID, ArtifactChapters)

	if GateStatus(chaptersPath, p.exists) == StageComplete {
		result.Stages = append(result.Stages, StageResult{Name: "summarize", Status: "skipped"})
		return result, nil
	}
	if GateStatus(chaptersRawPath, p.exists) == StageNotStarted {
		return nil, &core.MissingPrerequisiteError{LectureID: lectureID, Artifact: ArtifactChaptersRaw}
	}

	var chapters []core.Chapter
	if err := core.LoadJSON(chaptersRawPath, &chapters); err != nil {
		return nil, fmt.Errorf("load raw chapters: %v", err)
	}

	log.Printf("lecture %s: summarizing %d chapters", lectureID, len(chapters))
	enriched := EnrichChapters(ctx, p.summarizer, chapters)
	if err := core.SaveJSONAtomic(chaptersPath, enriched); err != nil {
		return nil, fmt.Errorf("save chapters: %v", err)
	}
	result.ChapterCount = len(enriched)
	result.Stages = append(result.Stages, StageResult{Name: "summarize", Status: "completed"})

	if p.store != nil {
		result.StoredCount = p.store.Upsert(ctx, lectureID, enriched)
		log.Printf("lecture %s: indexed %d chapters", lectureID, result.StoredCount)
	}
	return result, nil
}

// ExtractChapterClip re-encodes a time range of the lecture video into
// clips/<start>-<end>.mp4 and returns the clip path.
func (p *Pipeline) ExtractChapterClip(ctx context.Context, lectureID string, start, end float64) (string, error) {
	videoPath := p.FindVideoFile(lectureID)
	if videoPath == "" {
		return "", &core.MissingPrerequisiteError{LectureID: lectureID, Artifact: "video file"}
	}
	clipsDir := filepath.Join(p.LectureDir(lectureID), "clips")
	if err := os.MkdirAll(clipsDir, 0755); err != nil {
		return "", err
	}
	clipPath := filepath.Join(clipsDir, fmt.Sprintf("%.0f-%.0f.mp4", start, end))
	if err := ExtractClip(ctx, p.runner, videoPath, start, end, clipPath); err != nil {
		return "", err
	}
	return clipPath, nil
}

// InspectLecture derives the lecture's stage states from artifact presence.
func (p *Pipeline) InspectLecture(lectureID string) core.LectureState {
	state := core.LectureState{
		LectureID:      lectureID,
		HasAudio:       p.exists(p.ArtifactPath(lectureID, ArtifactAudio)),
		HasSegments:    p.exists(p.ArtifactPath(lectureID, ArtifactSegments)),
		HasChaptersRaw: p.exists(p.ArtifactPath(lectureID, ArtifactChaptersRaw)),
		HasChapters:    p.exists(p.ArtifactPath(lectureID, ArtifactChapters)),
	}
	if video := p.FindVideoFile(lectureID); video != "" {
		state.HasVideo = true
		state.VideoFilename = filepath.Base(video)
	}
	return state
}

// ListLectures inspects every lecture directory under the data root.
func (p *Pipeline) ListLectures() []core.LectureState {
	entries, err := os.ReadDir(p.cfg.DataDir)
	if err != nil {
		return nil
	}
	lectures := make([]core.LectureState, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || e.Name() == "uploads" {
			continue
		}
		lectures = append(lectures, p.InspectLecture(e.Name()))
	}
	return lectures
}
