package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"hospital-web-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCompletion(records *fakeRecordStore, ledger *fakeLedger) *CompletionService {
	return NewCompletionService(records, ledger, zap.NewNop())
}

func TestCompleteRequiresDiagnosis(t *testing.T) {
	records := &fakeRecordStore{}
	ledger := newFakeLedger(map[string]int{"m1": 5})
	svc := newTestCompletion(records, ledger)

	_, err := svc.Complete(context.Background(), newTestAppointment("a1", models.StatusConfirmed), TransitionPayload{
		Diagnosis:    "  ",
		Prescription: []PrescriptionInput{{MedicationID: "m1", Medicine: "Paracetamol", Quantity: 1}},
	})

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Fields, "diagnosis")
	assert.Equal(t, 5, ledger.quantity("m1"))
	assert.Zero(t, records.count())
}

func TestCompleteEmptyPrescription(t *testing.T) {
	records := &fakeRecordStore{}
	ledger := newFakeLedger(map[string]int{"m1": 5})
	svc := newTestCompletion(records, ledger)

	recordID, err := svc.Complete(context.Background(), newTestAppointment("a1", models.StatusConfirmed), TransitionPayload{
		Diagnosis: "fatigue",
		Treatment: "rest",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, recordID)

	require.Equal(t, 1, records.count())
	record := records.last()
	assert.Equal(t, "a1", record.AppointmentID)
	assert.Empty(t, record.Prescription)
	assert.Equal(t, 5, ledger.quantity("m1"), "stock must stay untouched")
}

func TestCompleteDropsNamelessLines(t *testing.T) {
	records := &fakeRecordStore{}
	ledger := newFakeLedger(map[string]int{"m1": 5})
	svc := newTestCompletion(records, ledger)

	_, err := svc.Complete(context.Background(), newTestAppointment("a1", models.StatusConfirmed), TransitionPayload{
		Diagnosis: "flu",
		Prescription: []PrescriptionInput{
			{Medicine: "", MedicationID: "m1", Quantity: 99}, // incomplete UI row, dropped
			{Medicine: "   "}, // ditto
			{Medicine: "Paracetamol", MedicationID: "m1", Quantity: 2},
		},
	})
	require.NoError(t, err)

	record := records.last()
	require.Len(t, record.Prescription, 1)
	assert.Equal(t, "Paracetamol", record.Prescription[0].Medicine)
	assert.Equal(t, 3, ledger.quantity("m1"))
}

func TestCompleteRejectsNonPositiveQuantity(t *testing.T) {
	for _, quantity := range []int{0, -2} {
		records := &fakeRecordStore{}
		ledger := newFakeLedger(map[string]int{"m1": 5})
		svc := newTestCompletion(records, ledger)

		_, err := svc.Complete(context.Background(), newTestAppointment("a1", models.StatusConfirmed), TransitionPayload{
			Diagnosis: "flu",
			Prescription: []PrescriptionInput{
				{Medicine: "Paracetamol", MedicationID: "m1", Quantity: quantity},
			},
		})

		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Contains(t, validationErr.Fields, "prescription[0].quantity")
		assert.Equal(t, 5, ledger.quantity("m1"))
		assert.Zero(t, records.count())
	}
}

func TestCompleteRejectsUnknownMedication(t *testing.T) {
	records := &fakeRecordStore{}
	ledger := newFakeLedger(map[string]int{"m1": 5})
	svc := newTestCompletion(records, ledger)

	_, err := svc.Complete(context.Background(), newTestAppointment("a1", models.StatusConfirmed), TransitionPayload{
		Diagnosis: "flu",
		Prescription: []PrescriptionInput{
			{Medicine: "Paracetamol", MedicationID: "m1", Quantity: 1},
			{Medicine: "Mystery pill", MedicationID: "m404", Quantity: 1},
		},
	})

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Fields, "prescription[1].medicationId")
	assert.Equal(t, 5, ledger.quantity("m1"), "validation failure must precede any stock mutation")
	assert.Zero(t, records.count())
}

func TestCompleteScenarioFluConsumesStock(t *testing.T) {
	records := &fakeRecordStore{}
	ledger := newFakeLedger(map[string]int{"M1": 5})
	svc := newTestCompletion(records, ledger)

	recordID, err := svc.Complete(context.Background(), newTestAppointment("A1", models.StatusConfirmed), TransitionPayload{
		Diagnosis: "flu",
		Prescription: []PrescriptionInput{
			{Medicine: "Oseltamivir", MedicationID: "M1", Quantity: 3},
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, recordID)
	assert.Equal(t, 2, ledger.quantity("M1"))
	require.Equal(t, 1, records.count())
	assert.Equal(t, "A1", records.last().AppointmentID)
}

func TestCompleteInsufficientStock(t *testing.T) {
	records := &fakeRecordStore{}
	ledger := newFakeLedger(map[string]int{"M1": 2})
	svc := newTestCompletion(records, ledger)

	_, err := svc.Complete(context.Background(), newTestAppointment("A2", models.StatusConfirmed), TransitionPayload{
		Diagnosis: "flu",
		Prescription: []PrescriptionInput{
			{Medicine: "Oseltamivir", MedicationID: "M1", Quantity: 5},
		},
	})

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Len(t, stockErr.Shortages, 1)
	assert.Equal(t, "M1", stockErr.Shortages[0].MedicationID)
	assert.Equal(t, 2, stockErr.Shortages[0].Available)
	assert.Equal(t, 2, ledger.quantity("M1"), "stock must remain unchanged")
	assert.Zero(t, records.count())
}

func TestCompleteInsufficientStockIsAllOrNothing(t *testing.T) {
	records := &fakeRecordStore{}
	ledger := newFakeLedger(map[string]int{"m1": 10, "m2": 1})
	svc := newTestCompletion(records, ledger)

	_, err := svc.Complete(context.Background(), newTestAppointment("a1", models.StatusConfirmed), TransitionPayload{
		Diagnosis: "flu",
		Prescription: []PrescriptionInput{
			{Medicine: "Paracetamol", MedicationID: "m1", Quantity: 2},
			{Medicine: "Amoxicillin", MedicationID: "m2", Quantity: 3},
		},
	})

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 10, ledger.quantity("m1"), "no line may be decremented when the batch fails")
	assert.Equal(t, 1, ledger.quantity("m2"))
	assert.Zero(t, records.count())
}

func TestCompleteManualLinesArePreserved(t *testing.T) {
	records := &fakeRecordStore{}
	ledger := newFakeLedger(map[string]int{"m1": 5})
	svc := newTestCompletion(records, ledger)

	_, err := svc.Complete(context.Background(), newTestAppointment("a1", models.StatusConfirmed), TransitionPayload{
		Diagnosis: "bronchitis",
		Prescription: []PrescriptionInput{
			{Medicine: "Paracetamol", MedicationID: "m1", Quantity: 1, Dosage: "500mg", Frequency: "3x daily"},
			{Medicine: "Herbal tea", Dosage: "1 cup", Usage: "before sleep"},
		},
	})
	require.NoError(t, err)

	record := records.last()
	require.Len(t, record.Prescription, 2)
	manual := record.Prescription[1]
	assert.Empty(t, manual.MedicationID)
	assert.Equal(t, "Herbal tea", manual.Medicine)
	assert.Equal(t, "1 cup", manual.Dosage)
	assert.Equal(t, "before sleep", manual.Usage)
	assert.Equal(t, 4, ledger.quantity("m1"), "only the inventory-linked line consumes stock")
}

func TestCompleteDuplicateLinesDecrementIndependently(t *testing.T) {
	records := &fakeRecordStore{}
	ledger := newFakeLedger(map[string]int{"m1": 5})
	svc := newTestCompletion(records, ledger)

	_, err := svc.Complete(context.Background(), newTestAppointment("a1", models.StatusConfirmed), TransitionPayload{
		Diagnosis: "flu",
		Prescription: []PrescriptionInput{
			{Medicine: "Paracetamol 500", MedicationID: "m1", Quantity: 2},
			{Medicine: "Paracetamol extra", MedicationID: "m1", Quantity: 2},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, ledger.quantity("m1"))
}

func TestCompleteDuplicateLinesCannotJointlyOversell(t *testing.T) {
	records := &fakeRecordStore{}
	ledger := newFakeLedger(map[string]int{"m1": 5})
	svc := newTestCompletion(records, ledger)

	_, err := svc.Complete(context.Background(), newTestAppointment("a1", models.StatusConfirmed), TransitionPayload{
		Diagnosis: "flu",
		Prescription: []PrescriptionInput{
			{Medicine: "Paracetamol 500", MedicationID: "m1", Quantity: 3},
			{Medicine: "Paracetamol extra", MedicationID: "m1", Quantity: 3},
		},
	})

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Len(t, stockErr.Shortages, 1)
	assert.Equal(t, 3, stockErr.Shortages[0].Requested)
	assert.Equal(t, 5, stockErr.Shortages[0].Available,
		"the shortage must report the stock left after rollback, not a running balance")
	assert.Equal(t, 5, ledger.quantity("m1"))
}

func TestCompleteRecordFailureAfterDecrementIsPartial(t *testing.T) {
	records := &fakeRecordStore{createErr: assert.AnError}
	ledger := newFakeLedger(map[string]int{"m1": 5})
	svc := newTestCompletion(records, ledger)

	_, err := svc.Complete(context.Background(), newTestAppointment("a1", models.StatusConfirmed), TransitionPayload{
		Diagnosis: "flu",
		Prescription: []PrescriptionInput{
			{Medicine: "Paracetamol", MedicationID: "m1", Quantity: 2},
		},
	})

	var partialErr *PartialFailureError
	require.ErrorAs(t, err, &partialErr)
	assert.Equal(t, "a1", partialErr.AppointmentID)
	assert.Equal(t, 3, ledger.quantity("m1"), "the decrement stays committed and is flagged, not rolled back")
}

func TestCompleteCancelledAfterDecrementIsPartial(t *testing.T) {
	records := &fakeRecordStore{}
	ledger := newFakeLedger(map[string]int{"m1": 5})
	svc := newTestCompletion(records, ledger)

	// The deadline runs out right after the stock decrement commits, so the
	// record write fails while the ledger already moved.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ledger.afterReduce = cancel

	_, err := svc.Complete(ctx, newTestAppointment("a1", models.StatusConfirmed), TransitionPayload{
		Diagnosis: "flu",
		Prescription: []PrescriptionInput{
			{Medicine: "Paracetamol", MedicationID: "m1", Quantity: 2},
		},
	})

	var partialErr *PartialFailureError
	require.ErrorAs(t, err, &partialErr)
	assert.Equal(t, "a1", partialErr.AppointmentID)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, ledger.quantity("m1"), "the committed decrement is flagged, not silently undone")
	assert.Zero(t, records.count())
}

func TestCompleteRecordFailureWithoutStockIsPlainError(t *testing.T) {
	records := &fakeRecordStore{createErr: assert.AnError}
	svc := newTestCompletion(records, newFakeLedger(map[string]int{}))

	_, err := svc.Complete(context.Background(), newTestAppointment("a1", models.StatusConfirmed), TransitionPayload{
		Diagnosis: "flu",
	})

	require.Error(t, err)
	var partialErr *PartialFailureError
	assert.False(t, errors.As(err, &partialErr), "no stock was consumed, so a retry is safe")
}

func TestConcurrentCompletionsNeverOversell(t *testing.T) {
	const (
		initialStock = 5
		requests     = 12
	)
	records := &fakeRecordStore{}
	ledger := newFakeLedger(map[string]int{"m1": initialStock})
	svc := newTestCompletion(records, ledger)

	var wg sync.WaitGroup
	results := make([]error, requests)
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			appt := newTestAppointment(string(rune('A'+n)), models.StatusConfirmed)
			_, results[n] = svc.Complete(context.Background(), appt, TransitionPayload{
				Diagnosis: "flu",
				Prescription: []PrescriptionInput{
					{Medicine: "Paracetamol", MedicationID: "m1", Quantity: 1},
				},
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		var stockErr *InsufficientStockError
		require.ErrorAs(t, err, &stockErr)
	}
	assert.Equal(t, initialStock, succeeded, "exactly one completion per unit of stock")
	assert.Equal(t, 0, ledger.quantity("m1"))
	assert.Equal(t, initialStock, records.count())
}
