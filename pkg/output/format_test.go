package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/iwvelando/commission-reconcile/internal/commission"
	"github.com/iwvelando/commission-reconcile/pkg/datetime"
	"github.com/iwvelando/commission-reconcile/pkg/testutil"
)

func sampleReport() commission.Report {
	rules, deals := testutil.SampleSnapshot()
	return commission.NewEngine(nil).Evaluate(deals, rules, datetime.MustParseDate("2024-06-01"))
}

func TestPrettyFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := PrettyFormat(&buf, sampleReport(), false); err != nil {
		t.Fatalf("PrettyFormat() error = %v", err)
	}
	output := buf.String()

	expected := []string{
		"--- Commission reconciliation as of 2024-06-01 ---",
		"Deal | Rep | Rule | Contract | Actual | Calculated | Diff | Status",
		"d1 | A | Texas standard | $50,000.00 | $2,400.00 | $2,500.00 | -$100.00 | DRIFT",
		"d2 | A | (none) | $60,000.00 | $3,000.00 | $0.00 | $3,000.00 | DRIFT",
		"--- Representatives ---",
		"A | 2 | $110,000.00 | $5,400.00 | $2,500.00 | 2 | Texas standard",
		"B | 1 | $40,000.00 | $0.00 | $2,000.00 | 1 | Texas standard",
		"Deals: 3 (matched 2, unmatched 1, drift 3)",
		"Contract value: $150,000.00",
		"Net difference: $900.00",
	}
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("PrettyFormat output missing %q\n%s", want, output)
		}
	}

	if strings.Index(output, "\nA | ") > strings.Index(output, "\nB | ") {
		t.Error("rep A should be listed before rep B")
	}
}

func TestPrettyFormatDriftOnly(t *testing.T) {
	report := sampleReport()
	report.DealDetails[0].HasDrift = false
	report.DriftDeals = report.DriftDeals[1:]

	var buf bytes.Buffer
	if err := PrettyFormat(&buf, report, true); err != nil {
		t.Fatalf("PrettyFormat() error = %v", err)
	}
	if strings.Contains(buf.String(), "d1 | ") {
		t.Error("drift-only output should not list deals without drift")
	}
	if !strings.Contains(buf.String(), "d3 | ") {
		t.Error("drift-only output should list drifting deals")
	}
}

func TestCsvFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := CsvFormat(&buf, sampleReport(), false); err != nil {
		t.Fatalf("CsvFormat() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("CsvFormat produced invalid CSV: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected header plus 3 rows, got %d", len(records))
	}
	if strings.Join(records[0], ",") != strings.Join(csvHeader, ",") {
		t.Errorf("unexpected header %v", records[0])
	}

	d1 := records[1]
	if d1[0] != "d1" || d1[7] != "tx" || d1[9] != "contract" {
		t.Errorf("unexpected d1 row %v", d1)
	}
	if d1[10] != "50000.00" || d1[11] != "2400.00" || d1[12] != "2500.00" || d1[13] != "-100.00" || d1[14] != "true" {
		t.Errorf("unexpected d1 amounts %v", d1)
	}

	d2 := records[2]
	if d2[7] != "" || d2[12] != "0.00" {
		t.Errorf("unmatched deal should have empty rule and zero payout: %v", d2)
	}
}

func TestCsvFormatQuotesFields(t *testing.T) {
	report := sampleReport()
	report.DealDetails[0].Deal.CustomerName = `Smith, "Jr"`

	records, err := csv.NewReader(strings.NewReader(CsvString(report, false))).ReadAll()
	if err != nil {
		t.Fatalf("CsvString produced invalid CSV: %v", err)
	}
	if records[1][1] != `Smith, "Jr"` {
		t.Errorf("customer name = %q", records[1][1])
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := JSONFormat(&buf, sampleReport(), false); err != nil {
		t.Fatalf("JSONFormat() error = %v", err)
	}

	var view ReportView
	if err := json.Unmarshal(buf.Bytes(), &view); err != nil {
		t.Fatalf("JSONFormat produced invalid JSON: %v", err)
	}
	if view.AsOf != "2024-06-01" {
		t.Errorf("AsOf = %q", view.AsOf)
	}
	if len(view.DealDetails) != 3 || len(view.DriftDeals) != 3 || len(view.RepSummaries) != 2 {
		t.Errorf("unexpected view sizes: %+v", view)
	}
	if view.DealDetails[1].MatchedRule != nil {
		t.Error("unmatched deal should have a null rule")
	}
	rule := view.DealDetails[0].MatchedRule
	if rule == nil || rule.State == nil || *rule.State != "TX" || rule.SalesRep != nil || rule.EffectiveEnd != nil {
		t.Errorf("unexpected rule view %+v", rule)
	}
	if view.Totals.NetDiff != 900 {
		t.Errorf("Totals.NetDiff = %v", view.Totals.NetDiff)
	}

	raw := buf.String()
	for _, key := range []string{`"salesRep": null`, `"matchedRule": null`, `"effectiveStart": "2024-01-01"`} {
		if !strings.Contains(raw, key) {
			t.Errorf("JSON output missing %s", key)
		}
	}
}

func TestJSONFormatEmptyReport(t *testing.T) {
	report := commission.NewEngine(nil).Evaluate(nil, nil, datetime.MustParseDate("2024-06-01"))

	var buf bytes.Buffer
	if err := JSONFormat(&buf, report, false); err != nil {
		t.Fatalf("JSONFormat() error = %v", err)
	}
	for _, key := range []string{`"dealDetails": []`, `"repSummaries": []`, `"driftDeals": []`} {
		if !strings.Contains(buf.String(), key) {
			t.Errorf("empty report JSON missing %s:\n%s", key, buf.String())
		}
	}
}

func TestJSONFormatNonFinite(t *testing.T) {
	report := sampleReport()
	report.DealDetails[0].Deal.ContractValue = math.NaN()
	report.DealDetails[0].MatchedRule.AgentFlatAmount = testutil.Float(math.Inf(1))

	var buf bytes.Buffer
	if err := JSONFormat(&buf, report, false); err != nil {
		t.Fatalf("JSONFormat() should not fail on non-finite input: %v", err)
	}
}

func TestWrite(t *testing.T) {
	report := sampleReport()

	tests := []struct {
		format    string
		contains  string
		expectErr bool
	}{
		{"pretty", "--- Totals ---", false},
		{"csv", "deal_id,customer_name", false},
		{"json", `"repSummaries"`, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			err := Write(&buf, tt.format, report, false)
			if tt.expectErr {
				if err == nil {
					t.Errorf("Write(%s) expected error", tt.format)
				}
				return
			}
			if err != nil {
				t.Fatalf("Write(%s) error = %v", tt.format, err)
			}
			if !strings.Contains(buf.String(), tt.contains) {
				t.Errorf("Write(%s) output missing %q", tt.format, tt.contains)
			}
		})
	}
}

func TestAuditFormat(t *testing.T) {
	rules, deals := testutil.SampleSnapshot()
	engine := commission.NewEngine(nil)
	reports := []commission.Report{
		engine.Evaluate(deals, rules, datetime.MustParseDate("2023-12-31")),
		engine.Evaluate(deals, rules, datetime.MustParseDate("2024-06-01")),
	}

	var buf bytes.Buffer
	if err := AuditFormat(&buf, reports); err != nil {
		t.Fatalf("AuditFormat() error = %v", err)
	}
	output := buf.String()

	if !strings.Contains(output, "2023-12-31 | 3 | 0 | 3 | 2 | $0.00 | $5,400.00 | $5,400.00") {
		t.Errorf("AuditFormat missing pre-rule line:\n%s", output)
	}
	if !strings.Contains(output, "2024-06-01 | 3 | 2 | 1 | 3 | $4,500.00 | $5,400.00 | $900.00") {
		t.Errorf("AuditFormat missing current line:\n%s", output)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestFormatWriteErrors(t *testing.T) {
	report := sampleReport()
	if err := PrettyFormat(failingWriter{}, report, false); err == nil {
		t.Error("PrettyFormat should report write errors")
	}
	if err := CsvFormat(failingWriter{}, report, false); err == nil {
		t.Error("CsvFormat should report write errors")
	}
	if err := AuditFormat(failingWriter{}, []commission.Report{report}); err == nil {
		t.Error("AuditFormat should report write errors")
	}
}
