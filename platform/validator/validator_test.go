package validator

import "testing"

type slot struct {
	Time   string `validate:"required,hhmm"`
	Status string `validate:"required,oneof=pending confirmed"`
}

func TestHHMMRule(t *testing.T) {
	v := New()
	valid := []string{"00:00", "09:30", "23:59"}
	invalid := []string{"24:00", "9:30", "12:60", "ab:cd"}

	for _, s := range valid {
		if err := v.Struct(slot{Time: s, Status: "pending"}); err != nil {
			t.Errorf("expected %q to be valid: %v", s, err)
		}
	}
	for _, s := range invalid {
		if err := v.Struct(slot{Time: s, Status: "pending"}); err == nil {
			t.Errorf("expected %q to be rejected", s)
		}
	}
}

func TestDetailsReportsFieldRules(t *testing.T) {
	err := New().Struct(slot{Time: "10:00", Status: "bogus"})
	details := Details(err)
	if details["status"] != "oneof=pending confirmed" {
		t.Fatalf("unexpected details: %v", details)
	}
}
