package validator

import (
	"testing"

	"franchise_crm/platform/validator"
)

func TestIsStrong(t *testing.T) {
	tests := map[string]bool{
		"Guclu.Sifre1": true,
		"Şifre!2025":   true,
		"kisa1!A":      false,
		"hepsikucuk1!": false,
		"NoDigits!!":   false,
		"NoSpecial123": false,
	}
	for pw, want := range tests {
		if got := IsStrong(pw); got != want {
			t.Errorf("IsStrong(%q) = %v, want %v", pw, got, want)
		}
	}
}

func TestRegisterAddsRule(t *testing.T) {
	v := validator.New()
	if err := Register(v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := v.Var("zayif", "strongpassword"); err == nil {
		t.Fatal("expected weak password to fail")
	}
	if err := v.Var("Guclu.Sifre1", "strongpassword"); err != nil {
		t.Fatalf("expected strong password to pass: %v", err)
	}
}
