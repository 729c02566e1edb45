package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/iwvelando/commission-reconcile/internal/commission"
	"github.com/iwvelando/commission-reconcile/pkg/datetime"
	"go.uber.org/zap"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteSource reads snapshots from a local SQLite database.
type SQLiteSource struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

// NewSQLiteSource opens (creating if needed) the database at path. Call
// Migrate before reading from a new database.
func NewSQLiteSource(path string, logger *zap.Logger) (*SQLiteSource, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteSource{db: db, path: path, logger: logger}, nil
}

// Close closes the database connection.
func (s *SQLiteSource) Close() error {
	return s.db.Close()
}

const ruleColumns = `id, name, sales_rep, team, install_partner, state, commission_basis,
	agent_commission_pct, agent_flat_amount, manager_commission_pct, manager_flat_amount,
	effective_start, effective_end, is_active, priority`

const dealColumns = `id, customer_name, sales_rep, team, install_partner, company, state,
	contract_value, kw_system, net_price_per_watt, agent_payout, close_date`

// Rules returns the active rules by priority descending, then insertion order.
func (s *SQLiteSource) Rules(ctx context.Context) ([]commission.Rule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+ruleColumns+` FROM commission_rules WHERE is_active = 1 ORDER BY priority DESC, rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	rules := make([]commission.Rule, 0)
	for rows.Next() {
		var (
			rule                                 commission.Rule
			basis                                string
			salesRep, team, partner, state       sql.NullString
			agentPct, agentFlat, mgrPct, mgrFlat sql.NullFloat64
			effectiveStart, effectiveEnd         sql.NullString
		)
		if err := rows.Scan(&rule.ID, &rule.Name, &salesRep, &team, &partner, &state, &basis,
			&agentPct, &agentFlat, &mgrPct, &mgrFlat,
			&effectiveStart, &effectiveEnd, &rule.IsActive, &rule.Priority); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}

		rule.SalesRep = commission.ScopeFromPtr(nullString(salesRep))
		rule.Team = commission.ScopeFromPtr(nullString(team))
		rule.InstallPartner = commission.ScopeFromPtr(nullString(partner))
		rule.State = commission.ScopeFromPtr(nullString(state))
		rule.CommissionBasis = commission.Basis(basis)
		rule.AgentCommissionPct = nullFloat(agentPct)
		rule.AgentFlatAmount = nullFloat(agentFlat)
		rule.ManagerCommissionPct = nullFloat(mgrPct)
		rule.ManagerFlatAmount = nullFloat(mgrFlat)

		if start := nullDate(effectiveStart); start != nil {
			rule.EffectiveStart = *start
		} else if effectiveStart.Valid {
			s.logger.Warn("rule has unparseable start date",
				zap.String("op", "store.SQLiteSource.Rules"),
				zap.String("rule", rule.ID),
				zap.String("effectiveStart", effectiveStart.String),
			)
		}
		if end, ok := parseDateColumn(effectiveEnd); ok {
			rule.EffectiveEnd = end
		} else {
			rule.EffectiveStart = time.Time{}
			s.logger.Warn("rule has unparseable end date",
				zap.String("op", "store.SQLiteSource.Rules"),
				zap.String("rule", rule.ID),
				zap.String("effectiveEnd", effectiveEnd.String),
			)
		}

		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rules: %w", err)
	}
	return rules, nil
}

// Deals returns the deals closed within period in insertion order.
func (s *SQLiteSource) Deals(ctx context.Context, period Period) ([]commission.Deal, error) {
	query := `SELECT ` + dealColumns + ` FROM deals`
	var (
		where []string
		args  []any
	)
	if !period.From.IsZero() {
		where = append(where, "close_date >= ?")
		args = append(args, datetime.FormatDate(datetime.DateOf(period.From)))
	}
	if !period.To.IsZero() {
		where = append(where, "close_date <= ?")
		args = append(args, datetime.FormatDate(datetime.DateOf(period.To)))
	}
	for i, clause := range where {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}
	query += " ORDER BY rowid ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query deals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	deals := make([]commission.Deal, 0)
	for rows.Next() {
		var (
			deal                                              commission.Deal
			customer, salesRep, team, partner, company, state sql.NullString
			contractValue, kw, netPrice, payout               sql.NullFloat64
			closeDate                                         sql.NullString
		)
		if err := rows.Scan(&deal.ID, &customer, &salesRep, &team, &partner, &company, &state,
			&contractValue, &kw, &netPrice, &payout, &closeDate); err != nil {
			return nil, fmt.Errorf("failed to scan deal: %w", err)
		}

		deal.CustomerName = customer.String
		deal.SalesRep = salesRep.String
		deal.Team = team.String
		deal.InstallPartner = partner.String
		deal.Company = company.String
		deal.State = state.String
		deal.ContractValue = contractValue.Float64
		deal.KWSystem = kw.Float64
		deal.NetPricePerWatt = netPrice.Float64
		deal.AgentPayout = payout.Float64
		if d := nullDate(closeDate); d != nil {
			deal.CloseDate = *d
		}

		deals = append(deals, deal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate deals: %w", err)
	}
	return deals, nil
}

// Import replaces the stored snapshot with rules and deals in a single
// transaction. Rule order is preserved as insertion order.
func (s *SQLiteSource) Import(ctx context.Context, rules []commission.Rule, deals []commission.Deal) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"commission_rules", "deals"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	ruleStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO commission_rules (`+ruleColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare rule insert: %w", err)
	}
	defer func() { _ = ruleStmt.Close() }()

	for _, rule := range rules {
		var end any
		if rule.EffectiveEnd != nil {
			end = datetime.FormatDate(*rule.EffectiveEnd)
		}
		if _, err := ruleStmt.ExecContext(ctx,
			rule.ID, rule.Name,
			rule.SalesRep.Ptr(), rule.Team.Ptr(), rule.InstallPartner.Ptr(), rule.State.Ptr(),
			string(rule.CommissionBasis),
			rule.AgentCommissionPct, rule.AgentFlatAmount, rule.ManagerCommissionPct, rule.ManagerFlatAmount,
			dateValue(rule.EffectiveStart), end,
			rule.IsActive, rule.Priority,
		); err != nil {
			return fmt.Errorf("failed to insert rule %s: %w", rule.ID, err)
		}
	}

	dealStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO deals (`+dealColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare deal insert: %w", err)
	}
	defer func() { _ = dealStmt.Close() }()

	for _, deal := range deals {
		if _, err := dealStmt.ExecContext(ctx,
			deal.ID, deal.CustomerName, deal.SalesRep, deal.Team, deal.InstallPartner, deal.Company, deal.State,
			deal.ContractValue, deal.KWSystem, deal.NetPricePerWatt, deal.AgentPayout,
			dateValue(deal.CloseDate),
		); err != nil {
			return fmt.Errorf("failed to insert deal %s: %w", deal.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}

	s.logger.Info("imported snapshot",
		zap.String("op", "store.SQLiteSource.Import"),
		zap.String("path", s.path),
		zap.Int("rules", len(rules)),
		zap.Int("deals", len(deals)),
	)
	return nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

// nullDate returns nil for NULL, blank or unparseable values.
func nullDate(v sql.NullString) *time.Time {
	d, _ := parseDateColumn(v)
	return d
}

// parseDateColumn returns nil and true for NULL or blank values, and false
// when the value cannot be parsed.
func parseDateColumn(v sql.NullString) (*time.Time, bool) {
	if !v.Valid {
		return nil, true
	}
	d, err := datetime.ParseOptionalDate(v.String)
	if err != nil {
		return nil, false
	}
	return d, true
}

func dateValue(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return datetime.FormatDate(t)
}
