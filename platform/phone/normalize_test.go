package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0532 123 45 67", "+905321234567"},
		{"+90 532 123 4567", "+905321234567"},
		{"00905321234567", "+905321234567"},
		{"  ", ""},
		{"not a phone", "not a phone"},
	}

	for _, tt := range tests {
		if got := NormalizeE164(tt.in); got != tt.want {
			t.Errorf("NormalizeE164(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
