package domain

import (
	pkgerrors "securyflex/pkg/domain-errors"
)

// ConsentPurpose is a domain value that identifies why location data is
// processed. Purpose binding allows selective revocation: a grant for one
// purpose never implies authorization for another.
//
// Invariant: the value must be one of the supported consent purposes.
type ConsentPurpose string

const (
	// PurposeCompanyMonitoring authorizes an organization to see a guard's
	// proximity classification while on shift.
	PurposeCompanyMonitoring ConsentPurpose = "company_monitoring"

	// PurposeShiftVerification authorizes one-shot presence checks at shift
	// start and end.
	PurposeShiftVerification ConsentPurpose = "shift_verification"
)

var supportedPurposes = map[ConsentPurpose]bool{
	PurposeCompanyMonitoring: true,
	PurposeShiftVerification: true,
}

// ParseConsentPurpose validates a purpose against the allowlist.
func ParseConsentPurpose(s string) (ConsentPurpose, error) {
	p := ConsentPurpose(s)
	if !supportedPurposes[p] {
		return "", pkgerrors.New(pkgerrors.CodeBadRequest, "unknown consent purpose: "+s)
	}
	return p, nil
}

func (p ConsentPurpose) String() string { return string(p) }
