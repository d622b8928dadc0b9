package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"reprint/internal/fingerprint"
	"reprint/internal/services"
)

var fpcalcBinary = "fpcalc"

// AudioFingerprint runs chromaprint over a wav file and returns the raw
// fingerprint as packed little-endian 32-bit codes. The -length 0 flag makes
// fpcalc fingerprint the whole file instead of its default leading window.
func AudioFingerprint(ctx context.Context, wavPath string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, fpcalcBinary, "-raw", "-length", "0", wavPath)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "media", "fingerprint audio",
			strings.TrimSpace(stderr.String()), err)
	}
	return parseRawFingerprint(stdout.String())
}

func parseRawFingerprint(output string) ([]byte, error) {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "FINGERPRINT=") {
			continue
		}
		fields := strings.Split(strings.TrimPrefix(line, "FINGERPRINT="), ",")
		codes := make([]uint32, 0, len(fields))
		for _, field := range fields {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			value, err := strconv.ParseInt(field, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("parse fingerprint code %q: %w", field, err)
			}
			codes = append(codes, uint32(value))
		}
		return fingerprint.EncodeCodes(codes), nil
	}
	return nil, fmt.Errorf("fpcalc output missing FINGERPRINT line")
}
