package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
)

type transcodeFunc func(ctx context.Context, inputPath, outputPath string) error

// ffmpegTranscode re-encodes a video to fit the size cap: horizontal
// resolution capped at 640 with an even auto-computed height to keep
// the encoder happy, H.264 at the configured CRF/preset, AAC audio at
// a fixed 64k. Requires ffmpeg on PATH.
func (p *Pipeline) ffmpegTranscode(ctx context.Context, inputPath, outputPath string) error {
	args := []string{
		"-y",
		"-i", inputPath,
		"-vf", "scale=640:-2",
		"-c:v", "libx264",
		"-crf", strconv.Itoa(p.opts.FFmpegCRF),
		"-preset", p.opts.FFmpegPreset,
		"-c:a", "aac",
		"-b:a", "64k",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w: %s", err, lastLine(stderr.Bytes()))
	}

	return nil
}

// lastLine extracts the final non-empty stderr line, which is where
// ffmpeg puts its actual error message.
func lastLine(out []byte) string {
	lines := bytes.Split(bytes.TrimSpace(out), []byte("\n"))
	if len(lines) == 0 {
		return ""
	}
	return string(bytes.TrimSpace(lines[len(lines)-1]))
}
