// Package config defines the snapshot configuration file and converts it into
// the rules and deals the commission engine evaluates.
package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/iwvelando/commission-reconcile/internal/store"
	"github.com/iwvelando/commission-reconcile/pkg/constants"
	"github.com/iwvelando/commission-reconcile/pkg/validation"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for commission-reconcile.
type Configuration struct {
	Logging    LoggingConfig    `yaml:"logging,omitempty"`
	Output     OutputConfig     `yaml:"output,omitempty"`
	Evaluation EvaluationConfig `yaml:"evaluation,omitempty"`
	Source     store.Config     `yaml:"source,omitempty"`
	Rules      []Rule           `yaml:"rules,omitempty"`
	Deals      []Deal           `yaml:"deals,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv, json
}

// EvaluationConfig controls a single evaluation run.
type EvaluationConfig struct {
	AsOf       string `yaml:"asOf,omitempty"`       // defaults to today
	PeriodFrom string `yaml:"periodFrom,omitempty"` // inclusive close date
	PeriodTo   string `yaml:"periodTo,omitempty"`   // inclusive close date
	DriftOnly  bool   `yaml:"driftOnly,omitempty"`
}

// Rule is a commission rule as written in the snapshot file. Blank scope
// fields match any deal.
type Rule struct {
	ID                   string   `yaml:"id"`
	Name                 string   `yaml:"name,omitempty"`
	SalesRep             string   `yaml:"salesRep,omitempty"`
	Team                 string   `yaml:"team,omitempty"`
	InstallPartner       string   `yaml:"installPartner,omitempty"`
	State                string   `yaml:"state,omitempty"`
	CommissionBasis      string   `yaml:"commissionBasis,omitempty"`
	AgentCommissionPct   *float64 `yaml:"agentCommissionPct,omitempty"`
	AgentFlatAmount      *float64 `yaml:"agentFlatAmount,omitempty"`
	ManagerCommissionPct *float64 `yaml:"managerCommissionPct,omitempty"`
	ManagerFlatAmount    *float64 `yaml:"managerFlatAmount,omitempty"`
	EffectiveStart       string   `yaml:"effectiveStart,omitempty"`
	EffectiveEnd         string   `yaml:"effectiveEnd,omitempty"`
	IsActive             *bool    `yaml:"isActive,omitempty"` // defaults to true
	Priority             int      `yaml:"priority,omitempty"`
}

// Deal is a closed deal as written in the snapshot file.
type Deal struct {
	ID              string  `yaml:"id"`
	CustomerName    string  `yaml:"customerName,omitempty"`
	SalesRep        string  `yaml:"salesRep,omitempty"`
	Team            string  `yaml:"team,omitempty"`
	InstallPartner  string  `yaml:"installPartner,omitempty"`
	Company         string  `yaml:"company,omitempty"`
	State           string  `yaml:"state,omitempty"`
	ContractValue   float64 `yaml:"contractValue,omitempty"`
	KWSystem        float64 `yaml:"kwSystem,omitempty"`
	NetPricePerWatt float64 `yaml:"netPricePerWatt,omitempty"`
	AgentPayout     float64 `yaml:"agentPayout,omitempty"`
	CloseDate       string  `yaml:"closeDate,omitempty"`
}

// Active reports the rule's isActive flag, which defaults to true.
func (r Rule) Active() bool {
	return r.IsActive == nil || *r.IsActive
}

// envKeys may be overridden from the environment even when absent from the
// file, e.g. COMMISSION_SOURCE_DSN.
var envKeys = []string{
	"logging.level",
	"logging.format",
	"logging.outputFile",
	"output.format",
	"evaluation.asOf",
	"evaluation.periodFrom",
	"evaluation.periodTo",
	"source.driver",
	"source.dsn",
	"source.path",
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yml")
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}
	return v
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %w", err)
	}
	return decode(v)
}

// LoadConfigurationFromReader loads a YAML-formatted configuration from r.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := newViper()

	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config data, %w", err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}
	return &configuration, nil
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string

	if c.Output.Format != "" {
		if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
			warnings = append(warnings, err.Error())
		}
	}
	if err := validation.ValidateSourceDriver(c.Source.Driver); err != nil {
		warnings = append(warnings, err.Error())
	}
	for _, field := range []struct{ name, value string }{
		{"asOf", c.Evaluation.AsOf},
		{"periodFrom", c.Evaluation.PeriodFrom},
		{"periodTo", c.Evaluation.PeriodTo},
	} {
		if field.value == "" {
			continue
		}
		if _, err := validation.ParseAsOf(field.value); err != nil {
			warnings = append(warnings, fmt.Sprintf("evaluation.%s: %v", field.name, err))
		}
	}

	validator := validation.ConfigValidator{
		Rules: make([]validation.RuleConfig, 0, len(c.Rules)),
		Deals: make([]validation.DealConfig, 0, len(c.Deals)),
	}
	for _, rule := range c.Rules {
		validator.Rules = append(validator.Rules, validation.RuleConfig{
			ID:              rule.ID,
			Name:            rule.Name,
			SalesRep:        rule.SalesRep,
			Team:            rule.Team,
			InstallPartner:  rule.InstallPartner,
			State:           rule.State,
			CommissionBasis: rule.CommissionBasis,
			EffectiveStart:  rule.EffectiveStart,
			EffectiveEnd:    rule.EffectiveEnd,
			IsActive:        rule.Active(),
			Priority:        rule.Priority,
		})
	}
	for _, deal := range c.Deals {
		validator.Deals = append(validator.Deals, validation.DealConfig{
			ID:        deal.ID,
			SalesRep:  deal.SalesRep,
			CloseDate: deal.CloseDate,
		})
	}

	return append(warnings, validator.ValidateAll()...)
}
