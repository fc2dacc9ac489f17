// Package domain holds shared domain primitives: typed identifiers and the
// consent purpose allowlist. Construct values via the Parse functions at trust
// boundaries; direct casting bypasses validation.
package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// GuardID identifies a security guard (the data subject of location tracking).
type GuardID uuid.UUID

// OrganizationID identifies a staffing organization that owns work locations
// and monitors its guards.
type OrganizationID uuid.UUID

// ParseGuardID validates and returns a GuardID.
func ParseGuardID(s string) (GuardID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return GuardID{}, fmt.Errorf("invalid guard id: %w", err)
	}
	return GuardID(u), nil
}

// ParseOrganizationID validates and returns an OrganizationID.
func ParseOrganizationID(s string) (OrganizationID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return OrganizationID{}, fmt.Errorf("invalid organization id: %w", err)
	}
	return OrganizationID(u), nil
}

// NewGuardID returns a fresh random GuardID.
func NewGuardID() GuardID { return GuardID(uuid.New()) }

// NewOrganizationID returns a fresh random OrganizationID.
func NewOrganizationID() OrganizationID { return OrganizationID(uuid.New()) }

func (g GuardID) String() string { return uuid.UUID(g).String() }
func (g GuardID) IsNil() bool    { return uuid.UUID(g) == uuid.Nil }

// MarshalText makes GuardID serialize as its canonical uuid string in JSON.
func (g GuardID) MarshalText() ([]byte, error) { return []byte(g.String()), nil }

func (g *GuardID) UnmarshalText(b []byte) error {
	parsed, err := ParseGuardID(string(b))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

func (o OrganizationID) String() string { return uuid.UUID(o).String() }
func (o OrganizationID) IsNil() bool    { return uuid.UUID(o) == uuid.Nil }

func (o OrganizationID) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *OrganizationID) UnmarshalText(b []byte) error {
	parsed, err := ParseOrganizationID(string(b))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}
