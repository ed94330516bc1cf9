package textutil

import "testing"

func TestSanitizeToken(t *testing.T) {
	cases := []struct{ in, want string }{
		{"clinic-1", "clinic-1"},
		{"CT", "ct"},
		{"Clinic 42/a", "clinic_42_a"},
		{"", "unknown"},
		{"///", "unknown"},
		{"  CBCT  ", "cbct"},
	}
	for _, tc := range cases {
		if got := SanitizeToken(tc.in); got != tc.want {
			t.Errorf("SanitizeToken(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestLabel(t *testing.T) {
	cases := []struct{ in, want string }{
		{"report_uploading", "Report Uploading"},
		{"queued", "Queued"},
		{"ai_completed", "Ai Completed"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Label(tc.in); got != tc.want {
			t.Errorf("Label(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"a long description of a study", 10, "a long ..."},
		{"abc", 2, "ab"},
		{"anything", 0, ""},
	}
	for _, tc := range cases {
		if got := Truncate(tc.in, tc.max); got != tc.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}
