package repository

import (
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/launchboard/internal/model"
)

func TestContainsPattern(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"go", "%go%"},
		{"100%", `%100\%%`},
		{"a_b", `%a\_b%`},
		{`c:\tmp`, `%c:\\tmp%`},
	}
	for _, tt := range tests {
		if got := containsPattern(tt.in); got != tt.want {
			t.Errorf("containsPattern(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildJobListQuery_NoFilter(t *testing.T) {
	query, args := buildJobListQuery(model.JobFilter{})

	if len(args) != 0 {
		t.Errorf("args = %v, want empty", args)
	}
	if strings.Contains(query, "$1") {
		t.Errorf("query should not contain placeholders: %s", query)
	}
	if !strings.HasSuffix(query, "ORDER BY j.created_at DESC, j.id") {
		t.Errorf("query should order by created_at DESC: %s", query)
	}
}

func TestBuildJobListQuery_AllFiltersAreANDed(t *testing.T) {
	query, args := buildJobListQuery(model.JobFilter{
		StartupID: "startup-1",
		Search:    "engineer",
		Type:      "full-time",
	})

	wantFragments := []string{
		"AND j.startup_id = $1",
		"AND (j.title ILIKE $2 OR j.description ILIKE $2 OR j.location ILIKE $2)",
		"AND j.type = $3",
	}
	for _, f := range wantFragments {
		if !strings.Contains(query, f) {
			t.Errorf("query missing %q:\n%s", f, query)
		}
	}

	wantArgs := []interface{}{"startup-1", "%engineer%", "full-time"}
	if len(args) != len(wantArgs) {
		t.Fatalf("len(args) = %d, want %d", len(args), len(wantArgs))
	}
	for i := range wantArgs {
		if args[i] != wantArgs[i] {
			t.Errorf("args[%d] = %v, want %v", i, args[i], wantArgs[i])
		}
	}
}

func TestBuildJobListQuery_TypeOnlyUsesFirstPlaceholder(t *testing.T) {
	query, args := buildJobListQuery(model.JobFilter{Type: "remote"})

	if !strings.Contains(query, "AND j.type = $1") {
		t.Errorf("query should bind type to $1: %s", query)
	}
	if len(args) != 1 || args[0] != "remote" {
		t.Errorf("args = %v, want [remote]", args)
	}
}

func TestBuildEventListQuery_Periods(t *testing.T) {
	today := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		period    model.EventPeriod
		wantWhere string
		wantOrder string
		wantArgs  int
	}{
		{"upcoming", model.EventPeriodUpcoming, "AND e.date >= $1::date", "ORDER BY e.date ASC", 1},
		{"past", model.EventPeriodPast, "AND e.date < $1::date", "ORDER BY e.date DESC", 1},
		{"all", model.EventPeriodAll, "", "ORDER BY e.created_at DESC", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := buildEventListQuery(model.EventFilter{Period: tt.period, Today: today})

			if tt.wantWhere != "" && !strings.Contains(query, tt.wantWhere) {
				t.Errorf("query missing %q:\n%s", tt.wantWhere, query)
			}
			if !strings.Contains(query, tt.wantOrder) {
				t.Errorf("query missing %q:\n%s", tt.wantOrder, query)
			}
			if len(args) != tt.wantArgs {
				t.Fatalf("len(args) = %d, want %d", len(args), tt.wantArgs)
			}
			if tt.wantArgs == 1 && args[0] != "2026-10-18" {
				t.Errorf("args[0] = %v, want 2026-10-18", args[0])
			}
		})
	}
}

func TestBuildEventListQuery_FiltersBeforePeriod(t *testing.T) {
	today := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	query, args := buildEventListQuery(model.EventFilter{
		StartupID: "s-1",
		Search:    "meetup",
		Type:      "online",
		Period:    model.EventPeriodUpcoming,
		Today:     today,
	})

	for _, f := range []string{
		"AND e.startup_id = $1",
		"ILIKE $2",
		"AND e.type = $3",
		"AND e.date >= $4::date",
	} {
		if !strings.Contains(query, f) {
			t.Errorf("query missing %q:\n%s", f, query)
		}
	}
	if len(args) != 4 || args[3] != "2026-01-02" {
		t.Errorf("args = %v", args)
	}
}
