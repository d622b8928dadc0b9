package media

import (
	"testing"

	"reprint/internal/fingerprint"
)

func TestParseDuration(t *testing.T) {
	cases := []struct {
		name    string
		output  string
		want    float64
		wantErr bool
	}{
		{name: "plain", output: "63.215000\n", want: 63.215},
		{name: "empty", output: "\n", want: 0},
		{name: "garbage", output: "N/A\n", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseDuration(tc.output)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.output)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseDuration(%q): %v", tc.output, err)
			}
			if got != tc.want {
				t.Fatalf("parseDuration(%q) = %v, want %v", tc.output, got, tc.want)
			}
		})
	}
}

func TestParseRawFingerprint(t *testing.T) {
	output := "DURATION=60\nFINGERPRINT=1,4294967295,-1,256\n"
	fp, err := parseRawFingerprint(output)
	if err != nil {
		t.Fatalf("parseRawFingerprint: %v", err)
	}
	codes := fingerprint.DecodeCodes(fp)
	if len(codes) != 4 {
		t.Fatalf("expected 4 codes, got %d", len(codes))
	}
	// fpcalc may print codes in signed form; -1 and 4294967295 are the same
	// 32-bit pattern.
	if codes[1] != 0xFFFFFFFF || codes[2] != 0xFFFFFFFF {
		t.Fatalf("signed and unsigned forms should decode alike: %v", codes)
	}
	if codes[0] != 1 || codes[3] != 256 {
		t.Fatalf("unexpected codes: %v", codes)
	}
}

func TestParseRawFingerprintMissingLine(t *testing.T) {
	if _, err := parseRawFingerprint("DURATION=60\n"); err == nil {
		t.Fatal("expected error when FINGERPRINT line is absent")
	}
}
