package services

import "testing"

func TestGenerateSMSCode(t *testing.T) {
	t.Parallel()

	seen := map[rune]int{}
	for i := 0; i < 500; i++ {
		code, err := generateSMSCode()
		if err != nil {
			t.Fatalf("generateSMSCode: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("code length = %d, want 6: %q", len(code), code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("code contains non-digit %q: %q", r, code)
			}
			seen[r]++
		}
	}
	// 3000 digits: every digit should show up.
	for d := '0'; d <= '9'; d++ {
		if seen[d] == 0 {
			t.Fatalf("digit %q never generated across 500 codes", d)
		}
	}
}
