package handler

import (
	"time"

	"securyflex/internal/consent"
)

// consentResponse is the wire shape of one consent record.
type consentResponse struct {
	GuardID     string     `json:"guardId"`
	Purpose     string     `json:"purpose"`
	Status      string     `json:"status"`
	RequestedAt time.Time  `json:"requestedAt"`
	GrantedAt   *time.Time `json:"grantedAt,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	RevokedAt   *time.Time `json:"revokedAt,omitempty"`
}

func toResponse(rec consent.Record) consentResponse {
	return consentResponse{
		GuardID:     rec.GuardID.String(),
		Purpose:     rec.Purpose.String(),
		Status:      string(rec.Status),
		RequestedAt: rec.RequestedAt,
		GrantedAt:   rec.GrantedAt,
		ExpiresAt:   rec.ExpiresAt,
		RevokedAt:   rec.RevokedAt,
	}
}
