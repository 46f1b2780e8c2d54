package postgres

import (
	"contract-insight/types"
	"strings"
	"testing"
	"time"
)

func TestSetAnalysisKeepsColumnsInSync(t *testing.T) {
	score := 82.0
	high := types.LevelHigh
	a := types.ContractAnalysis{
		Risks:         []types.Risk{{Description: "Penalty", Explanation: "Late fee", Severity: &high}},
		Opportunities: []types.Opportunity{},
		Summary:       "Supply agreement",
		OverallScore:  &score,
	}
	rec := &ContractAnalysis{ID: "id-1", UserID: "u1", FileName: "supply.pdf", Tier: "premium", CreatedAt: time.Now()}
	if err := rec.SetAnalysis(a, "strict"); err != nil {
		t.Fatal(err)
	}
	if rec.Summary != "Supply agreement" || rec.OverallScore == nil || *rec.OverallScore != 82 || rec.Degraded {
		t.Fatalf("rec=%+v", rec)
	}
	if rec.NormalizePath != "strict" {
		t.Fatalf("path=%q", rec.NormalizePath)
	}

	got, err := rec.Decode()
	if err != nil {
		t.Fatal(err)
	}
	if got.Summary != a.Summary || len(got.Risks) != 1 || got.Risks[0].Severity == nil || *got.Risks[0].Severity != high {
		t.Fatalf("decoded=%+v", got)
	}

	row := rec.Row()
	if row.ScoreBadge != types.BadgeFavorable || row.Tier != types.TierPremium {
		t.Fatalf("row=%+v", row)
	}
}

func TestSetAnalysisSentinelIsDegraded(t *testing.T) {
	rec := &ContractAnalysis{}
	if err := rec.SetAnalysis(types.SentinelAnalysis(), "sentinel"); err != nil {
		t.Fatal(err)
	}
	if !rec.Degraded || rec.OverallScore != nil {
		t.Fatalf("rec=%+v", rec)
	}
	if !strings.Contains(string(rec.Analysis), `"risks":[]`) {
		t.Fatalf("analysis json=%s", rec.Analysis)
	}
	if rec.Row().ScoreBadge != types.BadgeUnscored {
		t.Fatal("missing score must be unscored")
	}
}

func TestDecodeEmptyColumn(t *testing.T) {
	got, err := (&ContractAnalysis{}).Decode()
	if err != nil {
		t.Fatal(err)
	}
	if got.Summary != types.SentinelSummary || got.Risks == nil {
		t.Fatalf("got=%+v", got)
	}
}

func TestDecodeNullArrays(t *testing.T) {
	rec := &ContractAnalysis{Analysis: []byte(`{"risks":null,"opportunities":null,"summary":"x"}`)}
	got, err := rec.Decode()
	if err != nil {
		t.Fatal(err)
	}
	if got.Risks == nil || got.Opportunities == nil {
		t.Fatal("arrays must be non-nil after decode")
	}
}

func TestDSN(t *testing.T) {
	dsn := DSN("db", "app", "secret", "contracts", "5432")
	for _, part := range []string{"host=db", "user=app", "dbname=contracts", "sslmode=disable"} {
		if !strings.Contains(dsn, part) {
			t.Errorf("dsn %q missing %q", dsn, part)
		}
	}
}
