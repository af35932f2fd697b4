package sanitize

import "testing"

func TestStripHTML(t *testing.T) {
	tests := map[string]string{
		"<b>site visit</b> done":         "site visit done",
		"&lt;script&gt;alert(1)&lt;/script&gt;ok": "alert(1)ok",
		"  plain  ":                       "plain",
	}
	for in, want := range tests {
		if got := StripHTML(in); got != want {
			t.Errorf("StripHTML(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStringsDropsEmpty(t *testing.T) {
	got := Strings([]string{"a.jpg", "<i></i>", " b.jpg "})
	if len(got) != 2 || got[0] != "a.jpg" || got[1] != "b.jpg" {
		t.Fatalf("unexpected result: %v", got)
	}
}
