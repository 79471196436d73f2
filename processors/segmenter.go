package processors

import (
	"fmt"
	"log"
	"math"
	"sort"
	"strings"

	"lectureNotes/core"
)

// BuildWindows slices the transcript into overlapping sliding windows of
// windowSize seconds advancing by windowSize-overlap. A segment belongs to
// every window its [start, end) interval intersects. Windows whose segments
// carry no text at all are dropped, so the window count is data-dependent.
func BuildWindows(segments []core.TranscriptSegment, windowSize, overlap float64) ([]core.Window, error) {
	if windowSize <= 0 {
		return nil, &core.ConfigurationError{Reason: fmt.Sprintf("window size must be positive, got %.2f", windowSize)}
	}
	step := windowSize - overlap
	if overlap < 0 || step <= 0 {
		return nil, &core.ConfigurationError{Reason: fmt.Sprintf("overlap %.2f must satisfy 0 <= overlap < window size %.2f", overlap, windowSize)}
	}
	if len(segments) == 0 {
		return nil, nil
	}

	totalDuration := segments[len(segments)-1].End
	windows := make([]core.Window, 0, int(totalDuration/step)+1)

	for cursor := 0.0; cursor < totalDuration; cursor += step {
		windowEnd := math.Min(cursor+windowSize, totalDuration)

		var ids []int
		var texts []string
		hasText := false
		for _, seg := range segments {
			if seg.Start < windowEnd && seg.End > cursor {
				ids = append(ids, seg.ID)
				texts = append(texts, seg.Text)
				if strings.TrimSpace(seg.Text) != "" {
					hasText = true
				}
			}
		}
		if !hasText {
			continue
		}
		windows = append(windows, core.Window{
			Start:      cursor,
			End:        windowEnd,
			Text:       strings.Join(texts, " "),
			SegmentIDs: ids,
		})
	}

	log.Printf("built %d sliding windows (%.0fs window, %.0fs overlap)", len(windows), windowSize, overlap)
	return windows, nil
}

// CosineSimilarity returns dot(a,b)/(|a|*|b|). A zero-norm vector yields 0,
// which forces a boundary instead of dividing by zero.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0.0
	}
	var dot, normA, normB float64
	for i := 0; i < len(a); i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0.0 || normB == 0.0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// DetectTopicBoundaries compares each pair of adjacent window embeddings and
// records a boundary wherever similarity drops below threshold. Index 0 is
// always a boundary; the returned indices are strictly increasing and never
// include the terminal index.
func DetectTopicBoundaries(embeddings [][]float32, threshold float64) []int {
	if len(embeddings) == 0 {
		return nil
	}
	boundaries := []int{0}
	for i := 0; i < len(embeddings)-1; i++ {
		if CosineSimilarity(embeddings[i], embeddings[i+1]) < threshold {
			boundaries = append(boundaries, i+1)
		}
	}
	log.Printf("detected %d topic boundaries (threshold %.2f)", len(boundaries), threshold)
	return boundaries
}

// AssembleChapters merges the windows between consecutive boundaries into
// chapters and reconstructs each chapter's text from the original segments.
// Window texts repeat whatever fell into the overlap of two windows, so the
// reconstruction pass over deduplicated segment ids is mandatory.
func AssembleChapters(windows []core.Window, boundaries []int, segments []core.TranscriptSegment) []core.Chapter {
	if len(windows) == 0 || len(boundaries) == 0 {
		return nil
	}

	segmentByID := make(map[int]core.TranscriptSegment, len(segments))
	for _, seg := range segments {
		segmentByID[seg.ID] = seg
	}

	chapters := make([]core.Chapter, 0, len(boundaries))
	for i, start := range boundaries {
		end := len(windows)
		if i+1 < len(boundaries) {
			end = boundaries[i+1]
		}
		if start >= len(windows) || start >= end {
			continue
		}
		member := windows[start:end]

		idSet := make(map[int]struct{})
		for _, w := range member {
			for _, id := range w.SegmentIDs {
				idSet[id] = struct{}{}
			}
		}
		ids := make([]int, 0, len(idSet))
		for id := range idSet {
			ids = append(ids, id)
		}
		sort.Ints(ids)

		texts := make([]string, 0, len(ids))
		for _, id := range ids {
			if seg, ok := segmentByID[id]; ok {
				texts = append(texts, seg.Text)
			}
		}

		chapters = append(chapters, core.Chapter{
			ChapterID:  len(chapters),
			Start:      member[0].Start,
			End:        member[len(member)-1].End,
			SegmentIDs: ids,
			Text:       strings.Join(texts, " "),
		})
	}

	log.Printf("merged %d windows into %d chapters", len(windows), len(chapters))
	return chapters
}
