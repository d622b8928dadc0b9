package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"reprint/internal/services"
)

var (
	ffmpegBinary  = "ffmpeg"
	ffprobeBinary = "ffprobe"
)

// ExtractFrames samples a video at the given frame rate into workDir and
// returns the frame image paths in presentation order.
func ExtractFrames(ctx context.Context, videoPath string, fps float64, workDir string) ([]string, error) {
	pattern := filepath.Join(workDir, "frame_%06d.jpg")
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", videoPath,
		"-vf", fmt.Sprintf("fps=%g", fps),
		"-q:v", "2",
		pattern,
		"-y",
	}

	cmd := exec.CommandContext(ctx, ffmpegBinary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "media", "extract frames",
			strings.TrimSpace(stderr.String()), err)
	}

	matches, err := filepath.Glob(filepath.Join(workDir, "frame_*.jpg"))
	if err != nil {
		return nil, fmt.Errorf("list frames: %w", err)
	}
	sort.Strings(matches)
	return matches, nil
}

// ExtractAudio demuxes a video's audio track into a mono 44.1 kHz wav file
// and returns its path and duration. A video without an audio track yields
// ("", 0, nil); chunks are scored on image similarity alone in that case.
func ExtractAudio(ctx context.Context, videoPath, workDir string) (string, float64, error) {
	wavPath := filepath.Join(workDir, "audio.wav")
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", videoPath,
		"-vn", "-acodec", "pcm_s16le",
		"-ar", "44100", "-ac", "1",
		wavPath,
		"-y",
	}

	cmd := exec.CommandContext(ctx, ffmpegBinary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		_ = os.Remove(wavPath)
		if ctx.Err() != nil {
			return "", 0, ctx.Err()
		}
		return "", 0, nil
	}

	duration, err := Duration(ctx, wavPath)
	if err != nil {
		_ = os.Remove(wavPath)
		return "", 0, nil
	}
	return wavPath, duration, nil
}

// SplitChunk copies one time span of a video into outPath without
// re-encoding. Used by submission to cut uploads into chunk objects.
func SplitChunk(ctx context.Context, videoPath string, start, duration float64, outPath string) error {
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-ss", fmt.Sprintf("%g", start),
		"-i", videoPath,
		"-t", fmt.Sprintf("%g", duration),
		"-c", "copy",
		outPath,
		"-y",
	}

	cmd := exec.CommandContext(ctx, ffmpegBinary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return services.Wrap(services.ErrExternalTool, "media", "split chunk",
			strings.TrimSpace(stderr.String()), err)
	}
	return nil
}

// Duration probes a media file's container duration in seconds.
func Duration(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	cmd := exec.CommandContext(ctx, ffprobeBinary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "media", "probe duration",
			strings.TrimSpace(stderr.String()), err)
	}
	return parseDuration(stdout.String())
}

func parseDuration(output string) (float64, error) {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return 0, nil
	}
	duration, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", trimmed, err)
	}
	return duration, nil
}
