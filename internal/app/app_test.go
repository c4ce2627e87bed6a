package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sevaflow/internal/domain"
)

func setupEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CONFIG_PATH", filepath.Join(dir, "missing-config.yaml"))
	t.Setenv("DB_PATH", filepath.Join(dir, "sevaflow.db"))
	t.Setenv("CLASSIFIER_BACKENDS", "none")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("ESCALATION_SCHEDULE", "")
	t.Setenv("METRICS_ADDR", "")
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, "", args...)
	if err != nil {
		t.Fatalf("%v: %v\n%s", args, err, out)
	}
	return out
}

func TestRegisterTransitionHistory(t *testing.T) {
	setupEnv(t)

	out := mustRun(t, "register", "--reporter-id", "citizen-1", "Streetlight near Laxmi Nagar metro gate broken for 3 days")
	for _, want := range []string{"SF-0001", "MCD Electrical", "48 hours", "Laxmi Nagar metro gate", "(rules)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("register output missing %q:\n%s", want, out)
		}
	}

	out = mustRun(t, "transition", "sf-0001", "in-progress", "--note", "crew dispatched")
	if !strings.Contains(out, "SF-0001 is now In Progress") {
		t.Fatalf("unexpected transition output:\n%s", out)
	}

	out = mustRun(t, "status", "SF-0001")
	if !strings.Contains(out, "Status:      In Progress") {
		t.Fatalf("unexpected status output:\n%s", out)
	}

	out = mustRun(t, "--format", "markdown", "history", "SF-0001")
	for _, want := range []string{"Grievance registered", "crew dispatched", "| cli |"} {
		if !strings.Contains(out, want) {
			t.Fatalf("history output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "Grievance registered") > strings.Index(out, "crew dispatched") {
		t.Fatalf("history should be oldest first:\n%s", out)
	}
}

func TestTransitionErrors(t *testing.T) {
	setupEnv(t)

	if _, err := run(t, "", "transition", "SF-0404", "closed"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := run(t, "", "transition", "SF-0001", "reopened"); !errors.Is(err, domain.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if _, err := run(t, "", "history", "SF-0404"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for history, got %v", err)
	}
}

func TestListFilters(t *testing.T) {
	setupEnv(t)

	mustRun(t, "register", "Pothole near Ring Road damaging vehicles")
	mustRun(t, "register", "Garbage not collected at Karol Bagh Market for a week")

	out := mustRun(t, "--format", "md", "list", "--unit", "pwd")
	if !strings.Contains(out, "SF-0001") || strings.Contains(out, "SF-0002") {
		t.Fatalf("unit filter not applied:\n%s", out)
	}

	out = mustRun(t, "list", "--status", "closed")
	if !strings.Contains(out, "No grievances match.") {
		t.Fatalf("expected empty listing:\n%s", out)
	}

	if _, err := run(t, "", "list", "--urgency", "extreme"); err == nil {
		t.Fatal("expected invalid urgency error")
	}
}

func TestImportAndStats(t *testing.T) {
	setupEnv(t)

	input := strings.Join([]string{
		"# imported from the ward office",
		"Water supply cut in Rohini Sector 7 since morning",
		"",
		"Traffic signal not working at ITO crossing",
		"Request for more benches in Lodhi Garden park",
	}, "\n")
	out, err := run(t, input, "import", "-", "--concurrency", "2")
	if err != nil {
		t.Fatalf("import: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Imported 3 of 3 grievances") {
		t.Fatalf("unexpected import output:\n%s", out)
	}

	out = mustRun(t, "--format", "markdown", "stats")
	for _, want := range []string{"| Total | 3 |", "| Pending | 3 |", "| Delhi Jal Board | 1 |", "| Traffic Police | 1 |"} {
		if !strings.Contains(out, want) {
			t.Fatalf("stats output missing %q:\n%s", want, out)
		}
	}
}

func TestExplainDoesNotStore(t *testing.T) {
	setupEnv(t)

	out := mustRun(t, "explain", "Dangerous open manhole near Lajpat Nagar market")
	if !strings.Contains(out, "ROUTING DECISION") || !strings.Contains(out, "HIGH") {
		t.Fatalf("unexpected explanation:\n%s", out)
	}
	if out := mustRun(t, "list"); !strings.Contains(out, "No grievances match.") {
		t.Fatalf("explain must not store anything:\n%s", out)
	}
}

func TestDepartmentsFromConfigFile(t *testing.T) {
	setupEnv(t)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `departments:
  - name: Water Works
    keywords: [water, pipe]
    sla_hours: 40
    contact: water@example.org
  - name: Front Desk
    sla_hours: 30
default_department: Front Desk
`
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out := mustRun(t, "--config", cfgPath, "--format", "markdown", "departments")
	if !strings.Contains(out, "| Water Works | 40 | water@example.org | water, pipe |") {
		t.Fatalf("unexpected departments output:\n%s", out)
	}
	if strings.Contains(out, "MCD Electrical") {
		t.Fatalf("default departments should be replaced by config:\n%s", out)
	}
}
