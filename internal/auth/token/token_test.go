package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func TestSignAccessCarriesClaims(t *testing.T) {
	userID := uuid.New()
	officeID := uuid.New()
	raw, err := SignAccess("secret", userID, []string{"franchise_yonetici"}, &officeID, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	parsed, err := jwt.Parse(raw, func(*jwt.Token) (interface{}, error) { return []byte("secret"), nil })
	if err != nil || !parsed.Valid {
		t.Fatalf("token did not verify: %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if claims["sub"] != userID.String() || claims["type"] != AccessType || claims["office_id"] != officeID.String() {
		t.Fatalf("unexpected claims: %v", claims)
	}
}

func TestSignAccessOmitsOfficeForCentralUsers(t *testing.T) {
	raw, err := SignAccess("secret", uuid.New(), []string{"merkez_admin"}, nil, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	parsed, _ := jwt.Parse(raw, func(*jwt.Token) (interface{}, error) { return []byte("secret"), nil })
	if _, ok := parsed.Claims.(jwt.MapClaims)["office_id"]; ok {
		t.Fatal("central users must not carry an office claim")
	}
}

func TestGenerateRandomTokenLength(t *testing.T) {
	a, err := GenerateRandomToken(18)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := GenerateRandomToken(18)
	if len(a) != 24 || a == b {
		t.Fatalf("unexpected tokens %q %q", a, b)
	}
}
