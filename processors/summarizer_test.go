package processors

import (
	"context"
	"fmt"
	"testing"

	"lectureNotes/core"
)

func TestParseNotesResponse(t *testing.T) {
	raw := `{"title":"Gradient Descent","summary":"Explains it.","importance":0.9,"key_points":["lr matters"]}`

	cases := []struct {
		name    string
		content string
	}{
		{"bare json", raw},
		{"json fence", "```json\n" + raw + "\n```"},
		{"plain fence", "```\n" + raw + "\n```"},
		{"fence with prose", "Here you go:\n```json\n" + raw + "\n```"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			notes, err := parseNotesResponse(tc.content)
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if notes.Title != "Gradient Descent" || notes.Importance != 0.9 {
				t.Errorf("parsed %+v", notes)
			}
		})
	}

	if _, err := parseNotesResponse("not json at all"); err == nil {
		t.Error("expected error for invalid payload")
	}
}

func TestClampNotes(t *testing.T) {
	notes := clampNotes(core.ChapterNotes{
		Importance: 1.7,
		KeyPoints:  []string{"a", "b", "c", "d", "e", "f", "g"},
	})
	if notes.Importance != 1 {
		t.Errorf("importance = %f, want 1", notes.Importance)
	}
	if len(notes.KeyPoints) != 5 {
		t.Errorf("key points = %d, want 5", len(notes.KeyPoints))
	}
	if got := clampNotes(core.ChapterNotes{Importance: -0.2}); got.Importance != 0 {
		t.Errorf("importance = %f, want 0", got.Importance)
	}
}

type failingSummarizer struct{}

func (failingSummarizer) Summarize(_ context.Context, _ core.Chapter) (core.ChapterNotes, error) {
	return core.ChapterNotes{}, &core.ExternalServiceError{Service: "summarizer", Err: fmt.Errorf("boom")}
}

func TestEnrichChaptersFallsBackPerChapter(t *testing.T) {
	chapters := []core.Chapter{
		{ChapterID: 0, Start: 0, End: 120, SegmentIDs: []int{0, 1}, Text: "first part"},
		{ChapterID: 1, Start: 120, End: 300, SegmentIDs: []int{2}, Text: "second part"},
	}
	enriched := EnrichChapters(context.Background(), failingSummarizer{}, chapters)
	if len(enriched) != 2 {
		t.Fatalf("expected 2 enriched chapters, got %d", len(enriched))
	}
	for i, ch := range enriched {
		if ch.Title != fmt.Sprintf("Chapter %d", i+1) {
			t.Errorf("chapter %d title = %q", i, ch.Title)
		}
		if ch.Summary != "Summary unavailable due to API error." {
			t.Errorf("chapter %d summary = %q", i, ch.Summary)
		}
		if ch.Importance != 0.5 {
			t.Errorf("chapter %d importance = %f", i, ch.Importance)
		}
		if ch.Text != chapters[i].Text || len(ch.SegmentIDs) != len(chapters[i].SegmentIDs) {
			t.Errorf("chapter %d lost raw fields: %+v", i, ch)
		}
	}
}

func TestEnrichChaptersKeepsRawFields(t *testing.T) {
	chapters := []core.Chapter{
		{ChapterID: 0, Start: 10, End: 90, SegmentIDs: []int{3, 4}, Text: "lecture text"},
	}
	enriched := EnrichChapters(context.Background(), MockSummarizer{}, chapters)
	if len(enriched) != 1 {
		t.Fatalf("expected 1 chapter, got %d", len(enriched))
	}
	ch := enriched[0]
	if ch.ChapterID != 0 || ch.Start != 10 || ch.End != 90 || ch.Text != "lecture text" {
		t.Errorf("raw fields not preserved: %+v", ch)
	}
	if ch.Title == "" || ch.Summary == "" {
		t.Errorf("notes not filled: %+v", ch)
	}
}
