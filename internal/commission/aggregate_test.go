package commission

import (
	"testing"
)

func detail(rep string, contract, actual, calculated float64, drift bool, rule *Rule) DealDetail {
	return DealDetail{
		Deal:             Deal{SalesRep: rep, ContractValue: contract, AgentPayout: actual},
		MatchedRule:      rule,
		CalculatedPayout: calculated,
		ActualPayout:     actual,
		Diff:             actual - calculated,
		HasDrift:         drift,
	}
}

func TestAggregate(t *testing.T) {
	first := openRule("first", 1, 5)
	second := openRule("second", 9, 7)

	details := []DealDetail{
		detail("Bea", 40000, 2000, 2000, false, nil),
		detail("Ann", 50000, 2400, 2500, true, &first),
		detail("", 10000, 0, 0, false, nil),
		detail("Ann", 60000, 3000, 0, true, &second),
		detail("Cal", 40000, 100, 0, true, nil),
	}

	summaries := Aggregate(details)

	expectedOrder := []string{"Ann", "Bea", "Cal", "Unassigned"}
	if len(summaries) != len(expectedOrder) {
		t.Fatalf("Aggregate() returned %d summaries, expected %d", len(summaries), len(expectedOrder))
	}
	for i, name := range expectedOrder {
		if summaries[i].RepName != name {
			t.Errorf("summaries[%d].RepName = %q, expected %q", i, summaries[i].RepName, name)
		}
	}

	ann := summaries[0]
	if ann.TotalDeals != 2 {
		t.Errorf("Ann TotalDeals = %d, expected 2", ann.TotalDeals)
	}
	assertAmount(t, "Ann TotalContractValue", ann.TotalContractValue, 110000)
	assertAmount(t, "Ann TotalActualPayout", ann.TotalActualPayout, 5400)
	assertAmount(t, "Ann TotalCalculatedPayout", ann.TotalCalculatedPayout, 2500)
	if ann.DriftCount != 2 {
		t.Errorf("Ann DriftCount = %d, expected 2", ann.DriftCount)
	}
	if ann.RepresentativeRule == nil || ann.RepresentativeRule.ID != "first" {
		t.Errorf("Ann RepresentativeRule should be the rule of her first deal, got %+v", ann.RepresentativeRule)
	}
	if len(ann.Deals) != 2 || ann.Deals[0].Deal.ContractValue != 50000 {
		t.Errorf("Ann Deals should keep input order, got %+v", ann.Deals)
	}

	if summaries[1].RepresentativeRule != nil {
		t.Errorf("Bea's first deal had no rule, expected nil representative")
	}
}

func TestAggregateConservation(t *testing.T) {
	details := []DealDetail{
		detail("A", 1, 2, 3, true, nil),
		detail("B", 4, 5, 6, false, nil),
		detail("A", 7, 8, 9, true, nil),
		detail("C", 10, 11, 12, true, nil),
		detail("", 13, 14, 15, false, nil),
	}

	summaries := Aggregate(details)

	var deals, drift int
	var contract, actual, calculated float64
	for _, s := range summaries {
		deals += s.TotalDeals
		drift += s.DriftCount
		contract += s.TotalContractValue
		actual += s.TotalActualPayout
		calculated += s.TotalCalculatedPayout
		if s.TotalDeals != len(s.Deals) {
			t.Errorf("%s TotalDeals = %d but has %d deals", s.RepName, s.TotalDeals, len(s.Deals))
		}
	}

	if deals != len(details) {
		t.Errorf("total deals = %d, expected %d", deals, len(details))
	}
	if drift != 3 {
		t.Errorf("total drift = %d, expected 3", drift)
	}
	assertAmount(t, "contract", contract, 35)
	assertAmount(t, "actual", actual, 40)
	assertAmount(t, "calculated", calculated, 45)

	for i := 1; i < len(summaries); i++ {
		if summaries[i-1].TotalContractValue < summaries[i].TotalContractValue {
			t.Errorf("summaries not sorted descending at %d", i)
		}
	}
}

func TestAggregateStableTies(t *testing.T) {
	details := []DealDetail{
		detail("Zed", 100, 0, 0, false, nil),
		detail("Amy", 100, 0, 0, false, nil),
		detail("Max", 100, 0, 0, false, nil),
	}

	summaries := Aggregate(details)
	for i, name := range []string{"Zed", "Amy", "Max"} {
		if summaries[i].RepName != name {
			t.Errorf("summaries[%d].RepName = %q, expected %q", i, summaries[i].RepName, name)
		}
	}
}

func TestAggregateEmpty(t *testing.T) {
	summaries := Aggregate(nil)
	if summaries == nil {
		t.Fatal("Aggregate(nil) should return an empty, non-nil slice")
	}
	if len(summaries) != 0 {
		t.Errorf("Aggregate(nil) returned %d summaries", len(summaries))
	}
}

func TestFindRep(t *testing.T) {
	summaries := Aggregate([]DealDetail{
		detail("Ann", 1, 0, 0, false, nil),
		detail("", 2, 0, 0, false, nil),
	})

	if s := FindRep(summaries, "Ann"); s == nil || s.RepName != "Ann" {
		t.Errorf("FindRep(Ann) = %+v", s)
	}
	if s := FindRep(summaries, "Unassigned"); s == nil || s.TotalDeals != 1 {
		t.Errorf("FindRep(Unassigned) = %+v", s)
	}
	if s := FindRep(summaries, "Nobody"); s != nil {
		t.Errorf("FindRep(Nobody) = %+v, expected nil", s)
	}
}
