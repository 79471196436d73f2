package processors

import (
	"errors"
	"math"
	"strings"
	"testing"

	"lectureNotes/core"
)

func seg(id int, start, end float64, text string) core.TranscriptSegment {
	return core.TranscriptSegment{ID: id, Start: start, End: end, Text: text}
}

func TestBuildWindowsWorkedExample(t *testing.T) {
	segments := []core.TranscriptSegment{
		seg(0, 0, 30, "A"),
		seg(1, 30, 90, "B"),
		seg(2, 90, 150, "C"),
	}
	windows, err := BuildWindows(segments, 60, 30)
	if err != nil {
		t.Fatalf("BuildWindows failed: %v", err)
	}
	wantTexts := []string{"A B", "B", "B C", "C", "C"}
	if len(windows) != len(wantTexts) {
		t.Fatalf("expected %d windows, got %d", len(wantTexts), len(windows))
	}
	for i, want := range wantTexts {
		if windows[i].Text != want {
			t.Errorf("window %d text = %q, want %q", i, windows[i].Text, want)
		}
	}
	if windows[0].Start != 0 || windows[0].End != 60 {
		t.Errorf("window 0 span = [%.0f, %.0f], want [0, 60]", windows[0].Start, windows[0].End)
	}
	if last := windows[len(windows)-1]; last.End != 150 {
		t.Errorf("last window end = %.0f, want 150 (clamped to total duration)", last.End)
	}
}

func TestBuildWindowsProperties(t *testing.T) {
	segments := []core.TranscriptSegment{
		seg(0, 0, 25, "alpha"),
		seg(1, 25, 70, "beta"),
		seg(2, 70, 110, "gamma"),
		seg(3, 110, 170, "delta"),
	}
	windows, err := BuildWindows(segments, 60, 30)
	if err != nil {
		t.Fatalf("BuildWindows failed: %v", err)
	}
	for i, w := range windows {
		if w.End <= w.Start {
			t.Errorf("window %d has non-positive span [%.1f, %.1f]", i, w.Start, w.End)
		}
		if w.End-w.Start > 60+1e-9 {
			t.Errorf("window %d longer than window size: %.1f", i, w.End-w.Start)
		}
		if i > 0 && w.Start <= windows[i-1].Start {
			t.Errorf("window starts not strictly increasing at %d", i)
		}
	}
}

func TestBuildWindowsRejectsBadGeometry(t *testing.T) {
	segments := []core.TranscriptSegment{seg(0, 0, 10, "x")}

	var confErr *core.ConfigurationError
	if _, err := BuildWindows(segments, 0, 0); !errors.As(err, &confErr) {
		t.Errorf("zero window size: got %v, want ConfigurationError", err)
	}
	if _, err := BuildWindows(segments, 60, 60); !errors.As(err, &confErr) {
		t.Errorf("overlap == window size: got %v, want ConfigurationError", err)
	}
	if _, err := BuildWindows(segments, 60, 90); !errors.As(err, &confErr) {
		t.Errorf("overlap > window size: got %v, want ConfigurationError", err)
	}
	if _, err := BuildWindows(segments, 60, -1); !errors.As(err, &confErr) {
		t.Errorf("negative overlap: got %v, want ConfigurationError", err)
	}
}

func TestBuildWindowsEmptyTranscript(t *testing.T) {
	windows, err := BuildWindows(nil, 60, 30)
	if err != nil {
		t.Fatalf("empty transcript should not error: %v", err)
	}
	if len(windows) != 0 {
		t.Errorf("expected no windows, got %d", len(windows))
	}
}

func TestBuildWindowsDropsSilentWindows(t *testing.T) {
	segments := []core.TranscriptSegment{
		seg(0, 0, 30, "speech"),
		seg(1, 30, 120, "   "),
		seg(2, 120, 150, "more speech"),
	}
	windows, err := BuildWindows(segments, 30, 0)
	if err != nil {
		t.Fatalf("BuildWindows failed: %v", err)
	}
	for _, w := range windows {
		hasText := false
		for _, id := range w.SegmentIDs {
			if strings.TrimSpace(segments[id].Text) != "" {
				hasText = true
			}
		}
		if !hasText {
			t.Errorf("window [%.0f, %.0f] retained with no speech", w.Start, w.End)
		}
	}
}

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 2, 3}
	if got := CosineSimilarity(a, a); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("identical vectors: got %f, want 1.0", got)
	}
	if got := CosineSimilarity(a, []float32{0, 0, 0}); got != 0.0 {
		t.Errorf("zero vector: got %f, want 0.0", got)
	}
	if got := CosineSimilarity(a, []float32{1, 2}); got != 0.0 {
		t.Errorf("length mismatch: got %f, want 0.0", got)
	}
	if got := CosineSimilarity([]float32{1, 0}, []float32{0, 1}); math.Abs(got) > 1e-9 {
		t.Errorf("orthogonal vectors: got %f, want 0.0", got)
	}
}

func TestDetectTopicBoundaries(t *testing.T) {
	embeddings := [][]float32{
		{1, 0},
		{0.99, 0.14},  // sim to prev ~0.99, no boundary
		{0.1, 0.995},  // sharp drift, boundary at 2
		{0.12, 0.993}, // stable again
	}
	boundaries := DetectTopicBoundaries(embeddings, 0.72)
	if len(boundaries) == 0 || boundaries[0] != 0 {
		t.Fatalf("boundaries must start with 0, got %v", boundaries)
	}
	for i := 1; i < len(boundaries); i++ {
		if boundaries[i] <= boundaries[i-1] {
			t.Errorf("boundaries not strictly increasing: %v", boundaries)
		}
	}
	for _, b := range boundaries {
		if b >= len(embeddings) {
			t.Errorf("boundary %d out of range, terminal index must not appear: %v", b, boundaries)
		}
	}
	want := []int{0, 2}
	if len(boundaries) != len(want) {
		t.Fatalf("boundaries = %v, want %v", boundaries, want)
	}
	for i := range want {
		if boundaries[i] != want[i] {
			t.Fatalf("boundaries = %v, want %v", boundaries, want)
		}
	}
}

func TestDetectTopicBoundariesSingleWindow(t *testing.T) {
	boundaries := DetectTopicBoundaries([][]float32{{1, 0}}, 0.72)
	if len(boundaries) != 1 || boundaries[0] != 0 {
		t.Errorf("single window: got %v, want [0]", boundaries)
	}
	if got := DetectTopicBoundaries(nil, 0.72); got != nil {
		t.Errorf("no windows: got %v, want nil", got)
	}
}

func TestAssembleChaptersWorkedExample(t *testing.T) {
	segments := []core.TranscriptSegment{
		seg(0, 0, 30, "A"),
		seg(1, 30, 90, "B"),
		seg(2, 90, 150, "C"),
	}
	windows := []core.Window{
		{Start: 0, End: 60, Text: "A B", SegmentIDs: []int{0, 1}},
		{Start: 30, End: 120, Text: "B C", SegmentIDs: []int{1, 2}},
		{Start: 90, End: 150, Text: "C", SegmentIDs: []int{2}},
	}
	chapters := AssembleChapters(windows, []int{0, 2}, segments)
	if len(chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(chapters))
	}

	first := chapters[0]
	if first.ChapterID != 0 || first.Start != 0 || first.End != 120 {
		t.Errorf("chapter 0 = id %d [%.0f, %.0f], want id 0 [0, 120]", first.ChapterID, first.Start, first.End)
	}
	if first.Text != "A B" {
		t.Errorf("chapter 0 text = %q, want %q (overlap must not duplicate B)", first.Text, "A B")
	}
	if len(first.SegmentIDs) != 2 || first.SegmentIDs[0] != 0 || first.SegmentIDs[1] != 1 {
		t.Errorf("chapter 0 segment ids = %v, want [0 1]", first.SegmentIDs)
	}

	second := chapters[1]
	if second.ChapterID != 1 || second.Start != 90 || second.End != 150 {
		t.Errorf("chapter 1 = id %d [%.0f, %.0f], want id 1 [90, 150]", second.ChapterID, second.Start, second.End)
	}
	if second.Text != "C" {
		t.Errorf("chapter 1 text = %q, want %q", second.Text, "C")
	}
}

func TestAssembleChaptersDeduplicatesSegmentIDs(t *testing.T) {
	segments := []core.TranscriptSegment{
		seg(0, 0, 40, "one"),
		seg(1, 40, 80, "two"),
		seg(2, 80, 120, "three"),
	}
	windows, err := BuildWindows(segments, 60, 30)
	if err != nil {
		t.Fatalf("BuildWindows failed: %v", err)
	}
	chapters := AssembleChapters(windows, []int{0}, segments)
	if len(chapters) != 1 {
		t.Fatalf("expected 1 chapter, got %d", len(chapters))
	}
	seen := map[int]bool{}
	for _, id := range chapters[0].SegmentIDs {
		if seen[id] {
			t.Errorf("duplicate segment id %d in %v", id, chapters[0].SegmentIDs)
		}
		seen[id] = true
	}
	for _, s := range segments {
		if n := strings.Count(chapters[0].Text, s.Text); n != 1 {
			t.Errorf("segment text %q appears %d times in chapter text %q", s.Text, n, chapters[0].Text)
		}
	}
}

func TestAssembleChaptersEmpty(t *testing.T) {
	if got := AssembleChapters(nil, nil, nil); got != nil {
		t.Errorf("empty input: got %v, want nil", got)
	}
}
