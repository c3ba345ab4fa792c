package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when a referenced appointment or medication
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when a requested status change
	// violates the transition table. The stored status is left unchanged.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ValidationError reports missing or malformed input with field-level detail.
// The caller corrects the input and resubmits.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// StockShortage describes one medication that could not satisfy a
// prescription line. Available is the stock the medication still holds
// after the failed batch rolled back, so it stays accurate even when the
// batch carried several lines for the same medication.
type StockShortage struct {
	MedicationID string `json:"medicationId"`
	Requested    int    `json:"requested"`
	Available    int    `json:"available"`
}

// InsufficientStockError reports that the batch stock reduction could not
// satisfy all lines. No stock was mutated; safe to resubmit with corrected
// quantities.
type InsufficientStockError struct {
	Shortages []StockShortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, fmt.Sprintf("medication %s: requested %d, available %d", s.MedicationID, s.Requested, s.Available))
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}

// PartialFailureError reports that medication stock was already decremented
// but a later step of the completion did not finish. Resubmitting the whole
// completion would decrement stock a second time, so this error must never
// be retried blindly; it requires reconciliation instead.
type PartialFailureError struct {
	AppointmentID   string
	MedicalRecordID string
	Err             error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("partial failure completing appointment %s: stock was reduced but the completion did not finish: %v", e.AppointmentID, e.Err)
}

func (e *PartialFailureError) Unwrap() error {
	return e.Err
}
