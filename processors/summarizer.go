package processors

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"lectureNotes/config"
	"lectureNotes/core"
)

// ChapterSummarizer maps a chapter's text and time range to notes
// (title, summary, importance, key points).
type ChapterSummarizer interface {
	Summarize(ctx context.Context, chapter core.Chapter) (core.ChapterNotes, error)
}

const summarizePromptTemplate = `You are an assistant that converts a lecture transcript segment into a short title, a concise summary, a numeric importance score, and short key points.
Input: a transcript excerpt and the start/end times (seconds).
Output: a JSON object with fields: title, summary, importance, key_points.
Requirements:
 - title: 3-7 words (no punctuation at the end).
 - summary: 2 sentences maximum, clear and actionable.
 - importance: float between 0.0 and 1.0 (0.0 = not important, 1.0 = essential for exam revision).
 - key_points: array of up to 5 short bullet sentences (max 12 words each).
Return only valid JSON.
Example:
{"title":"Gradient Descent Intuition","summary":"Explains the intuition behind gradient descent and role of learning rate. Shows a simple example and pitfalls of overshooting.","importance":0.93,"key_points":["Definition of gradient descent","Effect of learning rate","Example with quadratic loss"]}
Transcript: """%s"""
Start: %g, End: %g`

// LLMSummarizer calls the configured chat model with the prompt above.
type LLMSummarizer struct {
	cli   *openai.Client
	model string
}

func NewLLMSummarizer(cfg *config.Config) *LLMSummarizer {
	return &LLMSummarizer{cli: NewOpenAIClient(cfg), model: cfg.ChatModel}
}

func (s *LLMSummarizer) Summarize(ctx context.Context, chapter core.Chapter) (core.ChapterNotes, error) {
	prompt := fmt.Sprintf(summarizePromptTemplate, chapter.Text, chapter.Start, chapter.End)

	resp, err := s.cli.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   400,
		Temperature: 0.3,
	})
	if err != nil {
		return core.ChapterNotes{}, &core.ExternalServiceError{Service: "summarizer", Err: err}
	}
	if len(resp.Choices) == 0 {
		return core.ChapterNotes{}, &core.ExternalServiceError{Service: "summarizer", Err: fmt.Errorf("no choices returned")}
	}

	notes, err := parseNotesResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return core.ChapterNotes{}, &core.ExternalServiceError{Service: "summarizer", Err: err}
	}
	return clampNotes(notes), nil
}

// parseNotesResponse parses the model reply, stripping markdown code fences
// the way the models like to wrap JSON.
func parseNotesResponse(content string) (core.ChapterNotes, error) {
	content = strings.TrimSpace(content)
	if i := strings.Index(content, "```json"); i >= 0 {
		content = content[i+len("```json"):]
		if j := strings.Index(content, "```"); j >= 0 {
			content = content[:j]
		}
	} else if i := strings.Index(content, "```"); i >= 0 {
		content = content[i+3:]
		if j := strings.Index(content, "```"); j >= 0 {
			content = content[:j]
		}
	}

	var notes core.ChapterNotes
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &notes); err != nil {
		return core.ChapterNotes{}, fmt.Errorf("parse summarizer response: %v", err)
	}
	return notes, nil
}

func clampNotes(notes core.ChapterNotes) core.ChapterNotes {
	if notes.Importance < 0 {
		notes.Importance = 0
	}
	if notes.Importance > 1 {
		notes.Importance = 1
	}
	if len(notes.KeyPoints) > 5 {
		notes.KeyPoints = notes.KeyPoints[:5]
	}
	return notes
}

// MockSummarizer produces deterministic notes from the chapter text.
type MockSummarizer struct{}

func (MockSummarizer) Summarize(_ context.Context, chapter core.Chapter) (core.ChapterNotes, error) {
	words := strings.Fields(chapter.Text)
	title := fmt.Sprintf("Chapter %d", chapter.ChapterID+1)
	if len(words) > 0 {
		n := len(words)
		if n > 5 {
			n = 5
		}
		title = strings.Join(words[:n], " ")
	}
	return core.ChapterNotes{
		Title:      title,
		Summary:    fmt.Sprintf("Covers %s to %s of the lecture.", core.FormatTime(chapter.Start), core.FormatTime(chapter.End)),
		Importance: 0.5,
		KeyPoints:  []string{fmt.Sprintf("Spans %d transcript segments", len(chapter.SegmentIDs))},
	}, nil
}

// FallbackNotes is the well-defined substitute for a chapter whose
// summarizer call failed. One bad LLM call never aborts the batch.
func FallbackNotes(chapter core.Chapter) core.ChapterNotes {
	return core.ChapterNotes{
		Title:      fmt.Sprintf("Chapter %d", chapter.ChapterID+1),
		Summary:    "Summary unavailable due to API error.",
		Importance: 0.5,
		KeyPoints:  []string{"Content transcribed but not summarized"},
	}
}

// EnrichChapters runs the summarizer over each chapter, substituting the
// fallback record per chapter on failure.
func EnrichChapters(ctx context.Context, summarizer ChapterSummarizer, chapters []core.Chapter) []core.EnrichedChapter {
	enriched := make([]core.EnrichedChapter, 0, len(chapters))
	for _, ch := range chapters {
		notes, err := summarizer.Summarize(ctx, ch)
		if err != nil {
			log.Printf("summarize chapter %d failed: %v", ch.ChapterID, err)
			notes = FallbackNotes(ch)
		}
		enriched = append(enriched, core.EnrichedChapter{
			ChapterID:  ch.ChapterID,
			Start:      ch.Start,
			End:        ch.End,
			SegmentIDs: ch.SegmentIDs,
			Text:       ch.Text,
			Title:      notes.Title,
			Summary:    notes.Summary,
			Importance: notes.Importance,
			KeyPoints:  notes.KeyPoints,
		})
	}
	return enriched
}

// PickSummarizer selects the chapter summarizer: SUMMARIZER=mock forces the
// offline one, otherwise the chat model is used when configured.
func PickSummarizer(cfg *config.Config) ChapterSummarizer {
	kind := strings.ToLower(strings.TrimSpace(os.Getenv("SUMMARIZER")))
	if kind == "mock" {
		return MockSummarizer{}
	}
	if !cfg.HasValidAPI() {
		log.Printf("Warning: API configuration not found, using mock summarizer")
		return MockSummarizer{}
	}
	return NewLLMSummarizer(cfg)
}
