// Package constants provides shared constants for the commission-reconcile application.
package constants

// DateLayout is the calendar date format expected in snapshot files, query
// parameters and CLI flags. It is also the output date format.
const DateLayout = "2006-01-02"

// Commission constants
const (
	// DriftThreshold is the largest absolute difference between recorded and
	// calculated payout that is not reported as drift (one currency unit).
	DriftThreshold = 1.00

	// WattsPerKilowatt converts system size in kW to watts for per-watt bases.
	WattsPerKilowatt = 1000.0

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0

	// UnassignedRep is the representative name used for deals without a sales rep.
	UnassignedRep = "Unassigned"
)

// Commission basis identifiers as stored on rules.
const (
	BasisContract = "contract"
	BasisPerKW    = "per_kw"
	BasisNetPrice = "net_price"
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON is the machine-readable report format
	OutputFormatJSON = "json"
)

// Snapshot source drivers
const (
	SourceDriverConfig   = "config"
	SourceDriverSQLite   = "sqlite"
	SourceDriverPostgres = "postgres"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// EnvPrefix is prepended to environment overrides, e.g. COMMISSION_SOURCE_DSN.
	EnvPrefix = "COMMISSION"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum upload size for YAML snapshots (1 MB)
	DefaultMaxUploadSizeBytes int64 = 1024 * 1024

	// RequestIDHeader carries the per-request identifier.
	RequestIDHeader = "X-Request-ID"
)

// DefaultHistoryWorkers bounds how many as-of dates are evaluated concurrently.
const DefaultHistoryWorkers = 4
