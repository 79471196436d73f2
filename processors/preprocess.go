package processors

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"lectureNotes/core"
)

// ExtractAudio pulls the audio track out of a video as mono 16 kHz PCM, the
// sample format whisper expects. ffmpeg writes to a temp name that is renamed
// into place only on success; the final path gates the stage, so a crashed
// extraction must never leave a file there.
func ExtractAudio(ctx context.Context, runner core.CommandRunner, videoPath, audioOut string) error {
	tmp := audioOut + ".partial"
	args := []string{
		"-y",
		"-i", videoPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		"-f", "wav",
		tmp,
	}
	if err := runFFmpeg(ctx, runner, args); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, audioOut)
}

// ExtractClip re-encodes the [start, end] range of a video into a standalone
// clip file.
func ExtractClip(ctx context.Context, runner core.CommandRunner, videoPath string, start, end float64, clipOut string) error {
	if end <= start {
		return &core.ConfigurationError{Reason: fmt.Sprintf("clip end %.2f must be after start %.2f", end, start)}
	}
	args := []string{
		"-y",
		"-ss", fmt.Sprintf("%.3f", start),
		"-to", fmt.Sprintf("%.3f", end),
		"-i", videoPath,
		"-c:v", "libx264",
		"-c:a", "aac",
		clipOut,
	}
	return runFFmpeg(ctx, runner, args)
}

func runFFmpeg(ctx context.Context, runner core.CommandRunner, args []string) error {
	res, err := runner.Run(ctx, "ffmpeg", args, nil)
	if err != nil {
		return &core.ExternalServiceError{Service: "transcoder", Err: err}
	}
	if res.ExitCode != 0 {
		return &core.ExternalServiceError{Service: "transcoder",
			Err: fmt.Errorf("ffmpeg exited %d: %s", res.ExitCode, lastLine(res.Stderr))}
	}
	return nil
}

// ProbeDuration asks ffprobe for the container duration in seconds.
func ProbeDuration(ctx context.Context, runner core.CommandRunner, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
	res, err := runner.Run(ctx, "ffprobe", args, nil)
	if err != nil {
		return 0, &core.ExternalServiceError{Service: "transcoder", Err: err}
	}
	if res.ExitCode != 0 {
		return 0, &core.ExternalServiceError{Service: "transcoder",
			Err: fmt.Errorf("ffprobe exited %d: %s", res.ExitCode, lastLine(res.Stderr))}
	}
	dur, err := strconv.ParseFloat(strings.TrimSpace(res.Stdout), 64)
	if err != nil {
		return 0, &core.ExternalServiceError{Service: "transcoder", Err: fmt.Errorf("parse duration: %v", err)}
	}
	return dur, nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
