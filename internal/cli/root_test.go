package cli

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := NewRootCommand()
	for _, name := range []string{"migrate", "sync", "sla-scan", "kpi-snapshot", "seed-admin"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("expected subcommand %q, got %v (%v)", name, cmd, err)
		}
	}
}

func TestRootCommandRejectsUnknownFormat(t *testing.T) {
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"--format", "yaml", "migrate"})

	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "invalid format") {
		t.Fatalf("expected invalid format error, got %v", err)
	}
}

func TestKPISnapshotRejectsBadDateBeforeConnecting(t *testing.T) {
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"kpi-snapshot", "--date", "17/10/2026"})

	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "YYYY-MM-DD") {
		t.Fatalf("expected date error, got %v", err)
	}
}

func TestSeedAdminRequiresFlags(t *testing.T) {
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"seed-admin", "--email", "admin@example.com"})

	if err := root.Execute(); err == nil {
		t.Fatal("expected missing flag error")
	}
}

func TestOutputFormats(t *testing.T) {
	var buf bytes.Buffer
	value := map[string]int{"inserted": 2}

	if err := output(&buf, &RootOptions{Format: "json"}, value, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), `"inserted": 2`) {
		t.Errorf("unexpected json output %q", buf.String())
	}

	buf.Reset()
	_ = output(&buf, &RootOptions{Format: "text"}, value, func(w io.Writer) {
		w.Write([]byte("inserted=2\n"))
	})
	if buf.String() != "inserted=2\n" {
		t.Errorf("unexpected text output %q", buf.String())
	}
}
