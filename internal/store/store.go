// Package store provides the read side of commission snapshots: the rules and
// closed deals an evaluation runs against.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iwvelando/commission-reconcile/internal/commission"
	"github.com/iwvelando/commission-reconcile/pkg/constants"
	"github.com/iwvelando/commission-reconcile/pkg/datetime"
	"go.uber.org/zap"
)

// ErrUnknownDriver is returned by Open for an unsupported source driver.
var ErrUnknownDriver = errors.New("unknown source driver")

// Period restricts deals by close date. Both bounds are inclusive and a zero
// bound is open.
type Period struct {
	From time.Time
	To   time.Time
}

// IsOpen reports whether neither bound is set.
func (p Period) IsOpen() bool {
	return p.From.IsZero() && p.To.IsZero()
}

// Contains reports whether closeDate falls in the period. Deals with an
// unknown close date only belong to an open period.
func (p Period) Contains(closeDate time.Time) bool {
	if p.IsOpen() {
		return true
	}
	if closeDate.IsZero() {
		return false
	}
	day := datetime.DateOf(closeDate)
	if !p.From.IsZero() && day.Before(datetime.DateOf(p.From)) {
		return false
	}
	if !p.To.IsZero() && day.After(datetime.DateOf(p.To)) {
		return false
	}
	return true
}

// Source supplies snapshots to the engine.
type Source interface {
	// Rules returns the rule set in evaluation order.
	Rules(ctx context.Context) ([]commission.Rule, error)
	// Deals returns the deals closed within period.
	Deals(ctx context.Context, period Period) ([]commission.Deal, error)
	Close() error
}

// Config selects and locates a snapshot source.
type Config struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
	Path   string `yaml:"path" mapstructure:"path"`
}

// Open returns the source named by cfg.Driver. The config driver serves the
// in-memory snapshot, which must then be non-nil.
func Open(ctx context.Context, cfg Config, snapshot *StaticSource, logger *zap.Logger) (Source, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", constants.SourceDriverConfig:
		if snapshot == nil {
			return nil, errors.New("config source requires a loaded snapshot")
		}
		return snapshot, nil

	case constants.SourceDriverSQLite:
		if cfg.Path == "" {
			return nil, errors.New("sqlite source requires a path")
		}
		source, err := NewSQLiteSource(cfg.Path, logger)
		if err != nil {
			return nil, err
		}
		if err := source.Migrate(ctx); err != nil {
			_ = source.Close()
			return nil, err
		}
		return source, nil

	case constants.SourceDriverPostgres:
		if cfg.DSN == "" {
			return nil, errors.New("postgres source requires a dsn")
		}
		return NewPostgresSource(ctx, cfg.DSN, logger)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

// StaticSource serves a fixed in-memory snapshot, keeping rules in the order
// they were given.
type StaticSource struct {
	rules []commission.Rule
	deals []commission.Deal
}

// NewStaticSource copies rules and deals into a new source.
func NewStaticSource(rules []commission.Rule, deals []commission.Deal) *StaticSource {
	return &StaticSource{
		rules: append([]commission.Rule(nil), rules...),
		deals: append([]commission.Deal(nil), deals...),
	}
}

func (s *StaticSource) Rules(ctx context.Context) ([]commission.Rule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append(make([]commission.Rule, 0, len(s.rules)), s.rules...), nil
}

func (s *StaticSource) Deals(ctx context.Context, period Period) ([]commission.Deal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	deals := make([]commission.Deal, 0, len(s.deals))
	for _, deal := range s.deals {
		if period.Contains(deal.CloseDate) {
			deals = append(deals, deal)
		}
	}
	return deals, nil
}

func (s *StaticSource) Close() error {
	return nil
}
