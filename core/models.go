package core

import "time"

// TranscriptSegment is one timestamped span of transcribed speech. Segments
// are produced once by the ASR provider, ordered by start time, and later
// stages reference them by ID only.
type TranscriptSegment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Window is a fixed-size slice of the transcript used for topic detection.
// Windows are derived and never persisted.
type Window struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	SegmentIDs []int   `json:"segment_ids"`
}

// Chapter is a merged run of windows between two topic boundaries. Text is
// reconstructed from the original segments, not from the overlapping window
// texts.
type Chapter struct {
	ChapterID  int     `json:"chapter_id"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	SegmentIDs []int   `json:"segment_ids"`
	Text       string  `json:"text"`
}

// ChapterNotes is what the summarizer produces for one chapter.
type ChapterNotes struct {
	Title      string   `json:"title"`
	Summary    string   `json:"summary"`
	Importance float64  `json:"importance"`
	KeyPoints  []string `json:"key_points"`
}

// EnrichedChapter is a raw chapter plus its summarizer output.
type EnrichedChapter struct {
	ChapterID  int      `json:"chapter_id"`
	Start      float64  `json:"start"`
	End        float64  `json:"end"`
	SegmentIDs []int    `json:"segment_ids"`
	Text       string   `json:"text"`
	Title      string   `json:"title"`
	Summary    string   `json:"summary"`
	Importance float64  `json:"importance"`
	KeyPoints  []string `json:"key_points"`
}

type TaskType string

const (
	TaskTranscription TaskType = "transcription"
	TaskSummarization TaskType = "summarization"
)

type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// Task is the observable record of one asynchronous pipeline invocation.
// Result is set only on completion, Error only on failure.
type Task struct {
	TaskID      string     `json:"task_id"`
	Type        TaskType   `json:"type"`
	LectureID   string     `json:"lecture_id"`
	Status      TaskStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Result      any        `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Hit is one search result from the chapter vector store.
type Hit struct {
	Score      float64 `json:"score"`
	ChapterID  int     `json:"chapter_id"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Title      string  `json:"title"`
	Summary    string  `json:"summary"`
	Text       string  `json:"text"`
	Importance float64 `json:"importance"`
}

// LectureState mirrors the on-disk artifact set of one lecture directory.
// Presence of each artifact is the only source of truth for stage completion.
type LectureState struct {
	LectureID      string `json:"lecture_id"`
	VideoFilename  string `json:"video_filename,omitempty"`
	HasVideo       bool   `json:"has_video"`
	HasAudio       bool   `json:"has_audio"`
	HasSegments    bool   `json:"has_segments"`
	HasChaptersRaw bool   `json:"has_chapters_raw"`
	HasChapters    bool   `json:"has_chapters"`
}
