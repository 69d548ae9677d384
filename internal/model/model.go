// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// OWNER
// =============================================================================

// Owner is the document holder. Created once at registration and
// read-only from the session engine's perspective.
type Owner struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	IsPremium bool      `json:"is_premium"`
}

// =============================================================================
// DOCUMENTS
// =============================================================================

// DocumentCategory is the fixed taxonomy for stored documents.
type DocumentCategory string

const (
	CategoryID                  DocumentCategory = "id"
	CategoryVehicleRegistration DocumentCategory = "vehicle_registration"
	CategoryGunRegistration     DocumentCategory = "gun_registration"
	CategoryBirthCertificate    DocumentCategory = "birth_certificate"
	CategoryDisability          DocumentCategory = "disability"
	CategoryPermit              DocumentCategory = "permit"
	CategoryJobBadge            DocumentCategory = "job_badge"
	CategoryImmigration         DocumentCategory = "immigration"
	CategorySocialSecurity      DocumentCategory = "social_security"
	CategoryInsurance           DocumentCategory = "insurance"
)

// Categories lists every valid document category in display order.
var Categories = []DocumentCategory{
	CategoryID,
	CategoryVehicleRegistration,
	CategoryGunRegistration,
	CategoryBirthCertificate,
	CategoryDisability,
	CategoryPermit,
	CategoryJobBadge,
	CategoryImmigration,
	CategorySocialSecurity,
	CategoryInsurance,
}

// Valid reports whether c is a known category.
func (c DocumentCategory) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Label returns a human-readable name for the category.
func (c DocumentCategory) Label() string {
	switch c {
	case CategoryID:
		return "Identification"
	case CategoryVehicleRegistration:
		return "Vehicle Registration"
	case CategoryGunRegistration:
		return "Gun Registration"
	case CategoryBirthCertificate:
		return "Birth Certificate"
	case CategoryDisability:
		return "Disability"
	case CategoryPermit:
		return "Permit"
	case CategoryJobBadge:
		return "Job Badge"
	case CategoryImmigration:
		return "Immigration"
	case CategorySocialSecurity:
		return "Social Security"
	case CategoryInsurance:
		return "Insurance"
	default:
		return string(c)
	}
}

// Document is a stored document, read-only to the session engine.
// Only the ID and category matter for the "documents viewed" manifest;
// the image payload is opaque.
type Document struct {
	ID        string           `json:"id"`
	OwnerID   string           `json:"user_id"`
	Category  DocumentCategory `json:"doc_type"`
	Name      string           `json:"name"`
	Image     string           `json:"image_base64,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// =============================================================================
// OFFICER CREDENTIAL
// =============================================================================

// MinOfficerFieldLen is the minimum length (after trimming) for each
// officer credential field.
const MinOfficerFieldLen = 2

// OfficerCredential is the name+badge pair entered by the viewing
// party. Session-scoped; never persisted beyond the session except in
// access-log entries. It is not validated against any external
// registry.
type OfficerCredential struct {
	Name        string `json:"officer_name"`
	BadgeNumber string `json:"badge_number"`
}

// FieldError reports a validation failure on a specific credential field.
type FieldError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NewOfficerCredential trims and validates the name+badge pair.
// Both fields must be non-empty and at least MinOfficerFieldLen runes
// after trimming.
func NewOfficerCredential(name, badge string) (OfficerCredential, error) {
	name = strings.TrimSpace(name)
	badge = strings.TrimSpace(badge)

	if err := validateField("officer name", name); err != nil {
		return OfficerCredential{}, err
	}
	if err := validateField("badge number", badge); err != nil {
		return OfficerCredential{}, err
	}

	return OfficerCredential{Name: name, BadgeNumber: badge}, nil
}

func validateField(field, value string) error {
	if value == "" {
		return &FieldError{Field: field, Reason: "must not be empty"}
	}
	if len([]rune(value)) < MinOfficerFieldLen {
		return &FieldError{Field: field, Reason: fmt.Sprintf("must be at least %d characters", MinOfficerFieldLen)}
	}
	return nil
}

// =============================================================================
// GEO SNAPSHOT
// =============================================================================

// GeoSnapshot is an optional location fix captured once at officer
// entry. Best-effort: absence never blocks the session.
type GeoSnapshot struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// =============================================================================
// ACCESS LOG
// =============================================================================

// AccessLogEntry is the durable audit record created on a successful,
// authorized exit. Immutable once created.
type AccessLogEntry struct {
	ID              string       `json:"id"`
	OwnerID         string       `json:"user_id"`
	OfficerName     string       `json:"officer_name"`
	BadgeNumber     string       `json:"badge_number"`
	Timestamp       time.Time    `json:"timestamp"`
	Location        *GeoSnapshot `json:"location,omitempty"`
	DocumentsViewed []string     `json:"documents_viewed"`
}

// NewAccessLogEntry builds an entry with a fresh ID.
func NewAccessLogEntry(ownerID string, officer OfficerCredential, at time.Time, loc *GeoSnapshot, viewed []string) AccessLogEntry {
	return AccessLogEntry{
		ID:              uuid.NewString(),
		OwnerID:         ownerID,
		OfficerName:     officer.Name,
		BadgeNumber:     officer.BadgeNumber,
		Timestamp:       at,
		Location:        loc,
		DocumentsViewed: viewed,
	}
}

// =============================================================================
// INTRUDER ALERT
// =============================================================================

// IntruderAlert is the best-effort notification sent to the owner on a
// mismatched exit attempt. Photo and location are optional; delivery
// failure never affects session state.
type IntruderAlert struct {
	ID        string       `json:"id"`
	OwnerID   string       `json:"user_id"`
	Photo     []byte       `json:"intruder_photo,omitempty"`
	Location  *GeoSnapshot `json:"location,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// NewIntruderAlert builds an alert with a fresh ID.
func NewIntruderAlert(ownerID string, photo []byte, loc *GeoSnapshot, at time.Time) IntruderAlert {
	return IntruderAlert{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Photo:     photo,
		Location:  loc,
		Timestamp: at,
	}
}

// =============================================================================
// BEST-EFFORT TASK RESULTS
// =============================================================================

// BestEffortResult captures the outcome of a fire-and-forget side
// effect (photo capture, alert dispatch, audit-log write). Results are
// logged for diagnosis but never propagated into the state machine's
// decision path.
type BestEffortResult struct {
	Task string
	Err  error
	At   time.Time
}

// Succeeded reports whether the task completed without error.
func (r BestEffortResult) Succeeded() bool { return r.Err == nil }

// String formats the result for logging.
func (r BestEffortResult) String() string {
	if r.Err == nil {
		return fmt.Sprintf("%s: ok", r.Task)
	}
	return fmt.Sprintf("%s: %v", r.Task, r.Err)
}
