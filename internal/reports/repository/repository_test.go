package repository

import (
	"strings"
	"testing"
)

func TestInsertColumnsMatchPlaceholders(t *testing.T) {
	columns := strings.Count(reportColumns, ",") + 1
	placeholders := strings.Count(insertReportSQL, "$")
	if columns != placeholders {
		t.Fatalf("insert has %d columns but %d placeholders", columns, placeholders)
	}
}

func TestJSONListNeverEncodesNull(t *testing.T) {
	raw, err := jsonList[string](nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(raw) != "[]" {
		t.Fatalf("expected empty array, got %s", raw)
	}
}
