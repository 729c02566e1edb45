package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/iwvelando/commission-reconcile/pkg/constants"
	"github.com/iwvelando/commission-reconcile/pkg/datetime"
)

// ValidateOutputFormat checks if the output format is one of the supported formats.
func ValidateOutputFormat(format string) error {
	switch format {
	case constants.OutputFormatPretty, constants.OutputFormatCSV, constants.OutputFormatJSON:
		return nil
	}
	return fmt.Errorf("expected output format of %s, %s or %s, got %s",
		constants.OutputFormatPretty, constants.OutputFormatCSV, constants.OutputFormatJSON, format)
}

// ValidateSourceDriver checks if the source driver is supported. An empty
// driver selects the configuration snapshot.
func ValidateSourceDriver(driver string) error {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", constants.SourceDriverConfig, constants.SourceDriverSQLite, constants.SourceDriverPostgres:
		return nil
	}
	return fmt.Errorf("expected source driver of %s, %s or %s, got %s",
		constants.SourceDriverConfig, constants.SourceDriverSQLite, constants.SourceDriverPostgres, driver)
}

// ParseAsOf parses an as-of date supplied by a user.
func ParseAsOf(value string) (time.Time, error) {
	asOf, err := datetime.ParseDate(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid as-of date %q, expected %s", value, constants.DateLayout)
	}
	return asOf, nil
}
