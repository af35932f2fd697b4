package repository

import (
	"strings"
	"testing"
)

func TestInsertExternalSQLDedupesOnExternalID(t *testing.T) {
	if !strings.Contains(InsertExternalSQL, "ON CONFLICT (external_id) DO NOTHING") {
		t.Fatal("external insert must do nothing on external id conflict")
	}
	if !strings.HasSuffix(strings.TrimSpace(InsertExternalSQL), "RETURNING id") {
		t.Fatal("external insert must return the id of a created row")
	}
}

func TestAddFilterNumbersPlaceholders(t *testing.T) {
	query := " FROM leads WHERE 1=1"
	args := []interface{}{}
	argIndex := 1

	addFilter(&query, &args, &argIndex, " AND status = $%d", "received")
	addFilter(&query, &args, &argIndex, " AND (customer_name ILIKE $%[1]d OR district ILIKE $%[1]d)", "%ali%")

	want := " FROM leads WHERE 1=1 AND status = $1 AND (customer_name ILIKE $2 OR district ILIKE $2)"
	if query != want {
		t.Fatalf("unexpected query:\n got %q\nwant %q", query, want)
	}
	if len(args) != 2 || argIndex != 3 {
		t.Fatalf("unexpected args %v, next index %d", args, argIndex)
	}
}

func TestInsertColumnsMatchPlaceholders(t *testing.T) {
	columns := strings.Count(leadColumns, ",") + 1
	placeholders := strings.Count(insertLeadSQL, "$")
	if columns != placeholders {
		t.Fatalf("insert has %d columns but %d placeholders", columns, placeholders)
	}
}
