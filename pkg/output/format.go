// Package output renders commission reports for people and machines.
package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/iwvelando/commission-reconcile/internal/commission"
	"github.com/iwvelando/commission-reconcile/pkg/constants"
	"github.com/iwvelando/commission-reconcile/pkg/datetime"
	"github.com/iwvelando/commission-reconcile/pkg/format"
	"github.com/iwvelando/commission-reconcile/pkg/validation"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Write renders report to w in the named output format. With driftOnly set,
// only deals with drift are listed.
func Write(w io.Writer, outputFormat string, report commission.Report, driftOnly bool) error {
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		return err
	}

	switch outputFormat {
	case constants.OutputFormatCSV:
		return CsvFormat(w, report, driftOnly)
	case constants.OutputFormatJSON:
		return JSONFormat(w, report, driftOnly)
	default:
		return PrettyFormat(w, report, driftOnly)
	}
}

func listedDeals(report commission.Report, driftOnly bool) []commission.DealDetail {
	if driftOnly {
		return report.DriftDeals
	}
	return report.DealDetails
}

func ruleLabel(rule *commission.Rule) string {
	if rule == nil {
		return "(none)"
	}
	if rule.Name != "" {
		return rule.Name
	}
	return rule.ID
}

func driftMark(hasDrift bool) string {
	if hasDrift {
		return "DRIFT"
	}
	return "ok"
}

// PrettyFormat outputs a human-readable rather than machine-readable table.
func PrettyFormat(w io.Writer, report commission.Report, driftOnly bool) error {
	p := message.NewPrinter(language.English)
	ew := &errWriter{w: w}

	ew.printf("--- Commission reconciliation as of %s ---\n", datetime.FormatDate(report.AsOf))
	ew.printf("Deal | Rep | Rule | Contract | Actual | Calculated | Diff | Status\n")
	ew.printf("____ | ___ | ____ | ________ | ______ | __________ | ____ | ______\n")
	for _, d := range listedDeals(report, driftOnly) {
		ew.printf("%s | %s | %s | %s | %s | %s | %s | %s\n",
			d.Deal.ID, d.Deal.RepName(), ruleLabel(d.MatchedRule),
			format.Currency(d.Deal.ContractValue), format.Currency(d.ActualPayout),
			format.Currency(d.CalculatedPayout), format.Currency(d.Diff), driftMark(d.HasDrift))
	}

	ew.printf("\n--- Representatives ---\n")
	ew.printf("Rep | Deals | Contract | Actual | Calculated | Drift | Rule\n")
	ew.printf("___ | _____ | ________ | ______ | __________ | _____ | ____\n")
	for _, s := range report.RepSummaries {
		if driftOnly && s.DriftCount == 0 {
			continue
		}
		ew.write(p.Sprintf("%s | %d | %s | %s | %s | %d | %s\n",
			s.RepName, s.TotalDeals,
			format.Currency(s.TotalContractValue), format.Currency(s.TotalActualPayout),
			format.Currency(s.TotalCalculatedPayout), s.DriftCount, ruleLabel(s.RepresentativeRule)))
	}

	t := report.Totals
	ew.printf("\n--- Totals ---\n")
	ew.write(p.Sprintf("Deals: %d (matched %d, unmatched %d, drift %d)\n", t.Deals, t.Matched, t.Unmatched, t.DriftCount))
	ew.printf("Contract value: %s\n", format.Currency(t.ContractValue))
	ew.printf("Actual payout: %s\n", format.Currency(t.ActualPayout))
	ew.printf("Calculated payout: %s\n", format.Currency(t.CalculatedPayout))
	ew.printf("Net difference: %s\n", format.Currency(t.NetDiff))

	return ew.err
}

var csvHeader = []string{
	"deal_id", "customer_name", "sales_rep", "team", "state", "install_partner", "close_date",
	"matched_rule_id", "matched_rule_name", "commission_basis",
	"contract_value", "actual_payout", "calculated_payout", "diff", "has_drift",
}

// CsvFormat outputs one row per deal in comma-separated value format.
func CsvFormat(w io.Writer, report commission.Report, driftOnly bool) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, d := range listedDeals(report, driftOnly) {
		var ruleID, ruleName, basis string
		if d.MatchedRule != nil {
			ruleID = d.MatchedRule.ID
			ruleName = d.MatchedRule.Name
			basis = string(d.MatchedRule.CommissionBasis)
		}
		record := []string{
			d.Deal.ID, d.Deal.CustomerName, d.Deal.RepName(), d.Deal.Team, d.Deal.State, d.Deal.Partner(),
			datetime.FormatDate(d.Deal.CloseDate),
			ruleID, ruleName, basis,
			amount(d.Deal.ContractValue), amount(d.ActualPayout), amount(d.CalculatedPayout), amount(d.Diff),
			strconv.FormatBool(d.HasDrift),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// CsvString returns CsvFormat output as a string.
func CsvString(report commission.Report, driftOnly bool) string {
	var buf bytes.Buffer
	if err := CsvFormat(&buf, report, driftOnly); err != nil {
		return ""
	}
	return buf.String()
}

// JSONFormat outputs the report as indented JSON.
func JSONFormat(w io.Writer, report commission.Report, driftOnly bool) error {
	view := NewReportView(report)
	if driftOnly {
		view.DealDetails = view.DriftDeals
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(view)
}

// AuditFormat outputs one line per report, summarising how the same snapshot
// reconciles at each as-of date.
func AuditFormat(w io.Writer, reports []commission.Report) error {
	p := message.NewPrinter(language.English)
	ew := &errWriter{w: w}

	ew.printf("As of      | Deals | Matched | Unmatched | Drift | Calculated | Actual | Net diff\n")
	ew.printf("_____      | _____ | _______ | _________ | _____ | __________ | ______ | ________\n")
	for _, report := range reports {
		t := report.Totals
		ew.write(p.Sprintf("%s | %d | %d | %d | %d | %s | %s | %s\n",
			datetime.FormatDate(report.AsOf), t.Deals, t.Matched, t.Unmatched, t.DriftCount,
			format.Currency(t.CalculatedPayout), format.Currency(t.ActualPayout), format.Currency(t.NetDiff)))
	}
	return ew.err
}

func amount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// errWriter keeps the first write error so table rendering reads linearly.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) write(s string) {
	if e.err != nil {
		return
	}
	_, e.err = io.WriteString(e.w, s)
}

func (e *errWriter) printf(layout string, args ...interface{}) {
	e.write(fmt.Sprintf(layout, args...))
}
