package token

import (
	"encoding/json"

	"go.uber.org/multierr"

	"github.com/hunterwarburton/tokenscope/internal/core"
	"github.com/hunterwarburton/tokenscope/internal/observability"
)

// Outcome is the joined result of both pipeline branches.
type Outcome struct {
	// Record is set when the metadata branch succeeded. Supply is merged in
	// when the supply branch succeeded too.
	Record *core.TokenRecord
	Supply *core.SupplyInfo

	TokenErr  error
	SupplyErr error
}

// Complete reports whether both branches succeeded.
func (o Outcome) Complete() bool {
	return o.TokenErr == nil && o.SupplyErr == nil && o.Record != nil
}

// Err combines the branch errors. Two failures with identical text are
// reported once.
func (o Outcome) Err() error {
	if o.TokenErr != nil && o.SupplyErr != nil && o.TokenErr.Error() == o.SupplyErr.Error() {
		return o.TokenErr
	}
	return multierr.Combine(o.TokenErr, o.SupplyErr)
}

// Errors lists the errors returned by Err, one per failure.
func (o Outcome) Errors() []error {
	return multierr.Errors(o.Err())
}

func (o Outcome) label() string {
	switch {
	case o.Complete():
		return observability.OutcomeOK
	case o.Record != nil:
		return observability.OutcomePartial
	default:
		return observability.OutcomeError
	}
}

// MarshalRecord renders a record as indented JSON.
func MarshalRecord(record *core.TokenRecord) ([]byte, error) {
	return json.MarshalIndent(record, "", "  ")
}
