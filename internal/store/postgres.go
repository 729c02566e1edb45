package store

import (
	"context"
	"fmt"
	"time"

	"github.com/iwvelando/commission-reconcile/internal/commission"
	"github.com/iwvelando/commission-reconcile/pkg/datetime"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ruleRow is the commission_rules table in the hosted database.
type ruleRow struct {
	ID                   string     `gorm:"primaryKey;column:id"`
	Name                 string     `gorm:"column:name"`
	SalesRep             *string    `gorm:"column:sales_rep"`
	Team                 *string    `gorm:"column:team"`
	InstallPartner       *string    `gorm:"column:install_partner"`
	State                *string    `gorm:"column:state"`
	CommissionBasis      *string    `gorm:"column:commission_basis"`
	AgentCommissionPct   *float64   `gorm:"column:agent_commission_pct"`
	AgentFlatAmount      *float64   `gorm:"column:agent_flat_amount"`
	ManagerCommissionPct *float64   `gorm:"column:manager_commission_pct"`
	ManagerFlatAmount    *float64   `gorm:"column:manager_flat_amount"`
	EffectiveStart       *time.Time `gorm:"column:effective_start;type:date"`
	EffectiveEnd         *time.Time `gorm:"column:effective_end;type:date"`
	IsActive             bool       `gorm:"column:is_active;not null;default:true;index"`
	Priority             int        `gorm:"column:priority;not null;default:0"`
}

func (ruleRow) TableName() string { return "commission_rules" }

// dealRow is the deals table in the hosted database.
type dealRow struct {
	ID              string     `gorm:"primaryKey;column:id"`
	CustomerName    *string    `gorm:"column:customer_name"`
	SalesRep        *string    `gorm:"column:sales_rep"`
	Team            *string    `gorm:"column:team"`
	InstallPartner  *string    `gorm:"column:install_partner"`
	Company         *string    `gorm:"column:company"`
	State           *string    `gorm:"column:state"`
	ContractValue   *float64   `gorm:"column:contract_value"`
	KWSystem        *float64   `gorm:"column:kw_system"`
	NetPricePerWatt *float64   `gorm:"column:net_price_per_watt"`
	AgentPayout     *float64   `gorm:"column:agent_payout"`
	CloseDate       *time.Time `gorm:"column:close_date;type:date;index"`
}

func (dealRow) TableName() string { return "deals" }

func (r ruleRow) toRule() commission.Rule {
	rule := commission.Rule{
		ID:                   r.ID,
		Name:                 r.Name,
		SalesRep:             commission.ScopeFromPtr(r.SalesRep),
		Team:                 commission.ScopeFromPtr(r.Team),
		InstallPartner:       commission.ScopeFromPtr(r.InstallPartner),
		State:                commission.ScopeFromPtr(r.State),
		CommissionBasis:      commission.BasisContract,
		AgentCommissionPct:   r.AgentCommissionPct,
		AgentFlatAmount:      r.AgentFlatAmount,
		ManagerCommissionPct: r.ManagerCommissionPct,
		ManagerFlatAmount:    r.ManagerFlatAmount,
		IsActive:             r.IsActive,
		Priority:             r.Priority,
	}
	if r.CommissionBasis != nil {
		rule.CommissionBasis = commission.Basis(*r.CommissionBasis)
	}
	if r.EffectiveStart != nil {
		rule.EffectiveStart = datetime.DateOf(*r.EffectiveStart)
	}
	if r.EffectiveEnd != nil {
		end := datetime.DateOf(*r.EffectiveEnd)
		rule.EffectiveEnd = &end
	}
	return rule
}

func (r dealRow) toDeal() commission.Deal {
	deal := commission.Deal{
		ID:              r.ID,
		CustomerName:    deref(r.CustomerName),
		SalesRep:        deref(r.SalesRep),
		Team:            deref(r.Team),
		InstallPartner:  deref(r.InstallPartner),
		Company:         deref(r.Company),
		State:           deref(r.State),
		ContractValue:   derefFloat(r.ContractValue),
		KWSystem:        derefFloat(r.KWSystem),
		NetPricePerWatt: derefFloat(r.NetPricePerWatt),
		AgentPayout:     derefFloat(r.AgentPayout),
	}
	if r.CloseDate != nil {
		deal.CloseDate = datetime.DateOf(*r.CloseDate)
	}
	return deal
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func derefFloat(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// PostgresSource reads snapshots from the hosted PostgreSQL database.
type PostgresSource struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPostgresSource connects to dsn and verifies the connection.
func NewPostgresSource(ctx context.Context, dsn string, logger *zap.Logger) (*PostgresSource, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Error),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	source := NewPostgresSourceFromDB(db, logger)
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access postgres pool: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return source, nil
}

// NewPostgresSourceFromDB wraps an existing gorm connection.
func NewPostgresSourceFromDB(db *gorm.DB, logger *zap.Logger) *PostgresSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresSource{db: db, logger: logger}
}

// Rules returns the active rules by priority descending, then id.
func (s *PostgresSource) Rules(ctx context.Context) ([]commission.Rule, error) {
	var rows []ruleRow
	err := s.rulesQuery(ctx).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}

	rules := make([]commission.Rule, 0, len(rows))
	for _, row := range rows {
		rules = append(rules, row.toRule())
	}
	s.logger.Debug("loaded rules",
		zap.String("op", "store.PostgresSource.Rules"),
		zap.Int("rules", len(rules)),
	)
	return rules, nil
}

// Deals returns the deals closed within period.
func (s *PostgresSource) Deals(ctx context.Context, period Period) ([]commission.Deal, error) {
	var rows []dealRow
	err := s.dealsQuery(ctx, period).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query deals: %w", err)
	}

	deals := make([]commission.Deal, 0, len(rows))
	for _, row := range rows {
		deals = append(deals, row.toDeal())
	}
	return deals, nil
}

func (s *PostgresSource) rulesQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Model(&ruleRow{}).
		Where("is_active = ?", true).
		Order("priority DESC").
		Order("id ASC")
}

func (s *PostgresSource) dealsQuery(ctx context.Context, period Period) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&dealRow{})
	if !period.From.IsZero() {
		query = query.Where("close_date >= ?", datetime.FormatDate(datetime.DateOf(period.From)))
	}
	if !period.To.IsZero() {
		query = query.Where("close_date <= ?", datetime.FormatDate(datetime.DateOf(period.To)))
	}
	return query.Order("close_date ASC").Order("id ASC")
}

// Close closes the underlying connection pool.
func (s *PostgresSource) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
