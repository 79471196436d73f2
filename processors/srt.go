package processors

import (
	"fmt"
	"strings"

	"lectureNotes/core"
)

// RenderSRT formats transcript segments as SRT subtitle blocks:
// sequential index, time range, text, blank line.
func RenderSRT(segments []core.TranscriptSegment) string {
	var b strings.Builder
	for i, seg := range segments {
		fmt.Fprintf(&b, "%d\n", i+1)
		fmt.Fprintf(&b, "%s --> %s\n", formatSRTTimestamp(seg.Start), formatSRTTimestamp(seg.End))
		fmt.Fprintf(&b, "%s\n\n", seg.Text)
	}
	return b.String()
}

// WriteSRT writes the subtitle file atomically, like every other artifact.
func WriteSRT(path string, segments []core.TranscriptSegment) error {
	return core.WriteFileAtomic(path, []byte(RenderSRT(segments)))
}

func formatSRTTimestamp(seconds float64) string {
	h := int(seconds) / 3600
	m := (int(seconds) % 3600) / 60
	s := int(seconds) % 60
	ms := int((seconds - float64(int(seconds))) * 1000)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
