package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/iwvelando/commission-reconcile/internal/commission"
	"github.com/iwvelando/commission-reconcile/pkg/datetime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func day(s string) time.Time {
	return datetime.MustParseDate(s)
}

func pct(v float64) *float64 {
	return &v
}

func testRules() []commission.Rule {
	end := day("2024-12-31")
	return []commission.Rule{
		{
			ID:                 "base",
			Name:               "Base",
			CommissionBasis:    commission.BasisContract,
			AgentCommissionPct: pct(3),
			EffectiveStart:     day("2024-01-01"),
			IsActive:           true,
			Priority:           1,
		},
		{
			ID:                   "tx",
			Name:                 "Texas",
			State:                commission.Only("TX"),
			InstallPartner:       commission.Only("SunCo"),
			CommissionBasis:      commission.BasisPerKW,
			AgentCommissionPct:   pct(5),
			AgentFlatAmount:      pct(100),
			ManagerCommissionPct: pct(1),
			EffectiveStart:       day("2024-01-01"),
			EffectiveEnd:         &end,
			IsActive:             true,
			Priority:             5,
		},
		{
			ID:              "retired",
			Name:            "Retired",
			CommissionBasis: commission.BasisContract,
			EffectiveStart:  day("2023-01-01"),
			IsActive:        false,
			Priority:        10,
		},
		{
			ID:                 "also-base",
			Name:               "Also base",
			SalesRep:           commission.Only("Ann"),
			CommissionBasis:    commission.BasisNetPrice,
			AgentCommissionPct: pct(4),
			EffectiveStart:     day("2024-01-01"),
			IsActive:           true,
			Priority:           1,
		},
	}
}

func testDeals() []commission.Deal {
	return []commission.Deal{
		{ID: "d1", CustomerName: "Lee", SalesRep: "Ann", State: "TX", Company: "SunCo", ContractValue: 30000, KWSystem: 8, NetPricePerWatt: 3.1, AgentPayout: 900, CloseDate: day("2024-02-10")},
		{ID: "d2", SalesRep: "Bob", State: "CA", ContractValue: 45000, AgentPayout: 1350, CloseDate: day("2024-03-15")},
		{ID: "d3", SalesRep: "", State: "TX", ContractValue: 10000},
		{ID: "d4", SalesRep: "Ann", State: "AZ", ContractValue: 20000, AgentPayout: 600, CloseDate: day("2024-04-01")},
	}
}

func dealIDs(deals []commission.Deal) []string {
	ids := make([]string, 0, len(deals))
	for _, d := range deals {
		ids = append(ids, d.ID)
	}
	return ids
}

func TestPeriodContains(t *testing.T) {
	tests := []struct {
		name     string
		period   Period
		date     time.Time
		expected bool
	}{
		{"open period includes unknown date", Period{}, time.Time{}, true},
		{"open period includes any date", Period{}, day("1999-01-01"), true},
		{"bounded period excludes unknown date", Period{From: day("2024-01-01")}, time.Time{}, false},
		{"from is inclusive", Period{From: day("2024-03-15")}, day("2024-03-15"), true},
		{"before from", Period{From: day("2024-03-15")}, day("2024-03-14"), false},
		{"to is inclusive", Period{To: day("2024-03-15")}, day("2024-03-15"), true},
		{"after to", Period{To: day("2024-03-15")}, day("2024-03-16"), false},
		{"to compares by day", Period{To: day("2024-03-15")}, day("2024-03-15").Add(23 * time.Hour), true},
		{"within both", Period{From: day("2024-01-01"), To: day("2024-12-31")}, day("2024-06-01"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.period.Contains(tt.date))
		})
	}
}

func TestStaticSource(t *testing.T) {
	ctx := context.Background()
	rules := testRules()
	source := NewStaticSource(rules, testDeals())

	got, err := source.Rules(ctx)
	require.NoError(t, err)
	require.Len(t, got, len(rules))
	for i := range rules {
		assert.Equal(t, rules[i].ID, got[i].ID, "static source keeps rule order")
	}

	got[0].Name = "mutated"
	again, err := source.Rules(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Base", again[0].Name)

	deals, err := source.Deals(ctx, Period{})
	require.NoError(t, err)
	assert.Equal(t, []string{"d1", "d2", "d3", "d4"}, dealIDs(deals))

	deals, err = source.Deals(ctx, Period{From: day("2024-03-01"), To: day("2024-03-31")})
	require.NoError(t, err)
	assert.Equal(t, []string{"d2"}, dealIDs(deals))

	assert.NoError(t, source.Close())
}

func TestStaticSourceCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	source := NewStaticSource(testRules(), testDeals())

	_, err := source.Rules(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = source.Deals(ctx, Period{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	snapshot := NewStaticSource(testRules(), testDeals())

	t.Run("config driver returns snapshot", func(t *testing.T) {
		for _, driver := range []string{"", "config", " Config "} {
			source, err := Open(ctx, Config{Driver: driver}, snapshot, zap.NewNop())
			require.NoError(t, err)
			assert.Same(t, snapshot, source)
		}
	})

	t.Run("config driver requires snapshot", func(t *testing.T) {
		_, err := Open(ctx, Config{Driver: "config"}, nil, nil)
		assert.Error(t, err)
	})

	t.Run("sqlite driver migrates", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "snapshot.db")
		source, err := Open(ctx, Config{Driver: "sqlite", Path: path}, nil, nil)
		require.NoError(t, err)
		defer func() { _ = source.Close() }()

		rules, err := source.Rules(ctx)
		require.NoError(t, err)
		assert.Empty(t, rules)
	})

	t.Run("sqlite driver requires path", func(t *testing.T) {
		_, err := Open(ctx, Config{Driver: "sqlite"}, nil, nil)
		assert.Error(t, err)
	})

	t.Run("postgres driver requires dsn", func(t *testing.T) {
		_, err := Open(ctx, Config{Driver: "postgres"}, nil, nil)
		assert.Error(t, err)
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := Open(ctx, Config{Driver: "mongo"}, snapshot, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnknownDriver))
	})
}
