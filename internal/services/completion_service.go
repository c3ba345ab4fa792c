package services

import (
	"context"
	"fmt"
	"strings"

	"hospital-web-server/internal/models"

	"go.uber.org/zap"
)

// CompletionService coordinates the completion transaction: it validates the
// prescription against live stock, decrements stock per prescribed line and
// persists the medical record as a single logical unit.
type CompletionService struct {
	records MedicalRecordStore
	ledger  StockLedger
	locks   *keyedMutex
	log     *zap.Logger
}

// NewCompletionService creates a new CompletionService.
func NewCompletionService(records MedicalRecordStore, ledger StockLedger, log *zap.Logger) *CompletionService {
	return &CompletionService{
		records: records,
		ledger:  ledger,
		locks:   newKeyedMutex(),
		log:     log,
	}
}

// Complete runs the completion transaction for appt and returns the id of the
// created medical record. Error outcomes:
//
//   - *ValidationError: bad input, nothing was mutated.
//   - *InsufficientStockError: a line exceeded current stock, no stock was
//     decremented.
//   - *PartialFailureError: stock was decremented but the record was not
//     persisted. Must not be retried blindly.
func (s *CompletionService) Complete(ctx context.Context, appt *models.Appointment, payload TransitionPayload) (string, error) {
	if strings.TrimSpace(payload.Diagnosis) == "" {
		return "", &ValidationError{Fields: map[string]string{"diagnosis": "diagnosis is required"}}
	}

	// Lines without a medicine name are incomplete UI rows, not errors.
	lines := make([]PrescriptionInput, 0, len(payload.Prescription))
	for _, line := range payload.Prescription {
		if strings.TrimSpace(line.Medicine) == "" {
			continue
		}
		lines = append(lines, line)
	}

	fields := make(map[string]string)
	medicationIDs := make([]string, 0, len(lines))
	for i, line := range lines {
		if line.MedicationID != "" {
			if line.Quantity <= 0 {
				fields[fmt.Sprintf("prescription[%d].quantity", i)] = "quantity must be a positive integer"
			} else {
				medicationIDs = append(medicationIDs, line.MedicationID)
			}
		} else if line.Quantity < 0 {
			fields[fmt.Sprintf("prescription[%d].quantity", i)] = "quantity must not be negative"
		}
	}

	if len(medicationIDs) > 0 {
		medications, err := s.ledger.GetMedications(ctx, medicationIDs)
		if err != nil {
			return "", fmt.Errorf("resolving medications: %w", err)
		}
		for i, line := range lines {
			if line.MedicationID == "" || line.Quantity <= 0 {
				continue
			}
			if _, ok := medications[line.MedicationID]; !ok {
				fields[fmt.Sprintf("prescription[%d].medicationId", i)] = "unknown medication " + line.MedicationID
			}
		}
	}
	if len(fields) > 0 {
		return "", &ValidationError{Fields: fields}
	}

	// All-or-nothing batch decrement for the inventory-linked lines.
	// Duplicate lines against the same medication decrement independently.
	reductions := make([]StockReduction, 0, len(lines))
	for _, line := range lines {
		if line.MedicationID != "" {
			reductions = append(reductions, StockReduction{MedicationID: line.MedicationID, Quantity: line.Quantity})
		}
	}

	if len(reductions) > 0 {
		unlock := s.locks.lockAll(medicationIDs)
		defer unlock()

		if err := s.ledger.ReduceStock(ctx, reductions); err != nil {
			return "", err
		}
		s.log.Info("medication stock reduced",
			zap.String("appointmentId", appt.ID),
			zap.Int("lines", len(reductions)),
		)
	}

	// From here on the decrement is committed: any failure leaves stock
	// reduced with no record, which is surfaced distinctly so the operator
	// can re-attempt record creation without re-reducing stock.
	record := &models.MedicalRecord{
		PatientID:     appt.PatientID,
		DoctorID:      appt.DoctorID,
		AppointmentID: appt.ID,
		Diagnosis:     payload.Diagnosis,
		Treatment:     payload.Treatment,
		Notes:         payload.Notes,
		Prescription:  buildPrescription(lines),
	}

	recordID, err := s.records.Create(ctx, record)
	if err != nil {
		if len(reductions) > 0 {
			s.log.Error("medical record creation failed after stock reduction",
				zap.String("appointmentId", appt.ID),
				zap.Error(err),
			)
			return "", &PartialFailureError{AppointmentID: appt.ID, Err: err}
		}
		return "", fmt.Errorf("creating medical record: %w", err)
	}

	return recordID, nil
}

// buildPrescription maps the validated input lines onto record rows. Manual
// entries without a medication id are carried over unchanged.
func buildPrescription(lines []PrescriptionInput) []models.PrescriptionLine {
	out := make([]models.PrescriptionLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, models.PrescriptionLine{
			MedicationID: line.MedicationID,
			Medicine:     line.Medicine,
			Dosage:       line.Dosage,
			Frequency:    line.Frequency,
			Duration:     line.Duration,
			Usage:        line.Usage,
			Notes:        line.Notes,
			Quantity:     line.Quantity,
		})
	}
	return out
}
