package services

import (
	"context"
	"testing"
	"time"

	"hospital-web-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestAppointment(id string, status models.AppointmentStatus) *models.Appointment {
	a := &models.Appointment{
		PatientID: "patient-1",
		DoctorID:  "doctor-1",
		Status:    status,
	}
	a.ID = id
	return a
}

func newTestService(store *fakeAppointmentStore, records *fakeRecordStore, ledger *fakeLedger) *AppointmentService {
	log := zap.NewNop()
	return NewAppointmentService(store, NewCompletionService(records, ledger, log), log)
}

func TestRequestTransitionLegalMoves(t *testing.T) {
	cases := []struct {
		name    string
		from    models.AppointmentStatus
		to      models.AppointmentStatus
		payload TransitionPayload
	}{
		{"pending to confirmed", models.StatusPending, models.StatusConfirmed, TransitionPayload{}},
		{"pending to rejected", models.StatusPending, models.StatusRejected, TransitionPayload{Reason: "fully booked"}},
		{"rescheduled to confirmed", models.StatusRescheduled, models.StatusConfirmed, TransitionPayload{}},
		{"rescheduled to rejected", models.StatusRescheduled, models.StatusRejected, TransitionPayload{Reason: "slot unavailable"}},
		{"confirmed to no-show", models.StatusConfirmed, models.StatusNoShow, TransitionPayload{}},
		{"confirmed to completed", models.StatusConfirmed, models.StatusCompleted, TransitionPayload{Diagnosis: "healthy"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeAppointmentStore(newTestAppointment("a1", tc.from))
			svc := newTestService(store, &fakeRecordStore{}, newFakeLedger(map[string]int{}))

			result, err := svc.RequestTransition(context.Background(), "a1", tc.to, tc.payload)
			require.NoError(t, err)
			assert.Equal(t, tc.to, result.Status)
			assert.Equal(t, tc.to, store.current("a1").Status)
		})
	}
}

func TestRequestTransitionIllegalMoves(t *testing.T) {
	cases := []struct {
		from models.AppointmentStatus
		to   models.AppointmentStatus
	}{
		{models.StatusPending, models.StatusCompleted},
		{models.StatusPending, models.StatusNoShow},
		{models.StatusPending, models.StatusRescheduled},
		{models.StatusPending, models.StatusCancelled},
		{models.StatusConfirmed, models.StatusRejected},
		{models.StatusConfirmed, models.StatusPending},
		{models.StatusRescheduled, models.StatusCompleted},
		{models.StatusCompleted, models.StatusConfirmed},
		{models.StatusCompleted, models.StatusPending},
		{models.StatusRejected, models.StatusConfirmed},
		{models.StatusCancelled, models.StatusConfirmed},
		{models.StatusNoShow, models.StatusConfirmed},
	}

	for _, tc := range cases {
		t.Run(string(tc.from)+" to "+string(tc.to), func(t *testing.T) {
			store := newFakeAppointmentStore(newTestAppointment("a1", tc.from))
			svc := newTestService(store, &fakeRecordStore{}, newFakeLedger(map[string]int{}))

			_, err := svc.RequestTransition(context.Background(), "a1", tc.to, TransitionPayload{Reason: "r", Diagnosis: "d"})
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, tc.from, store.current("a1").Status)
		})
	}
}

func TestRequestTransitionUnknownStatus(t *testing.T) {
	store := newFakeAppointmentStore(newTestAppointment("a1", models.StatusPending))
	svc := newTestService(store, &fakeRecordStore{}, newFakeLedger(map[string]int{}))

	_, err := svc.RequestTransition(context.Background(), "a1", "archived", TransitionPayload{})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, models.StatusPending, store.current("a1").Status)
}

func TestRequestTransitionUnknownAppointment(t *testing.T) {
	svc := newTestService(newFakeAppointmentStore(), &fakeRecordStore{}, newFakeLedger(map[string]int{}))

	_, err := svc.RequestTransition(context.Background(), "missing", models.StatusConfirmed, TransitionPayload{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRejectRequiresReason(t *testing.T) {
	for _, reason := range []string{"", "   ", "\t\n"} {
		for _, from := range []models.AppointmentStatus{models.StatusPending, models.StatusRescheduled} {
			store := newFakeAppointmentStore(newTestAppointment("a1", from))
			svc := newTestService(store, &fakeRecordStore{}, newFakeLedger(map[string]int{}))

			_, err := svc.RequestTransition(context.Background(), "a1", models.StatusRejected, TransitionPayload{Reason: reason})
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Contains(t, validationErr.Fields, "reason")
			assert.Equal(t, from, store.current("a1").Status)
		}
	}
}

func TestRejectStoresReason(t *testing.T) {
	store := newFakeAppointmentStore(newTestAppointment("a1", models.StatusPending))
	svc := newTestService(store, &fakeRecordStore{}, newFakeLedger(map[string]int{}))

	_, err := svc.RequestTransition(context.Background(), "a1", models.StatusRejected, TransitionPayload{Reason: "doctor unavailable"})
	require.NoError(t, err)
	assert.Equal(t, "doctor unavailable", store.current("a1").RejectionReason)
}

func TestRetryNonTerminalTransitionIsNoOp(t *testing.T) {
	appt := newTestAppointment("a1", models.StatusConfirmed)
	store := newFakeAppointmentStore(appt)
	svc := newTestService(store, &fakeRecordStore{}, newFakeLedger(map[string]int{}))

	result, err := svc.RequestTransition(context.Background(), "a1", models.StatusConfirmed, TransitionPayload{})
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, result.Status)
	assert.Zero(t, store.updateCalls)
}

func TestTerminalStatesRejectEveryRequest(t *testing.T) {
	for _, terminal := range []models.AppointmentStatus{models.StatusCompleted, models.StatusRejected, models.StatusCancelled, models.StatusNoShow} {
		store := newFakeAppointmentStore(newTestAppointment("a1", terminal))
		svc := newTestService(store, &fakeRecordStore{}, newFakeLedger(map[string]int{}))

		// Even a retry of the same terminal status must not succeed.
		_, err := svc.RequestTransition(context.Background(), "a1", terminal, TransitionPayload{})
		assert.ErrorIs(t, err, ErrInvalidTransition, "status %s", terminal)
	}
}

func TestCompleteLinksMedicalRecord(t *testing.T) {
	store := newFakeAppointmentStore(newTestAppointment("a1", models.StatusConfirmed))
	records := &fakeRecordStore{}
	svc := newTestService(store, records, newFakeLedger(map[string]int{}))

	result, err := svc.RequestTransition(context.Background(), "a1", models.StatusCompleted, TransitionPayload{Diagnosis: "flu"})
	require.NoError(t, err)
	require.Equal(t, 1, records.count())
	assert.Equal(t, records.last().ID, result.MedicalRecordID)
	assert.Equal(t, result.MedicalRecordID, store.current("a1").MedicalRecordID)
	assert.Equal(t, models.StatusCompleted, store.current("a1").Status)
}

func TestCompleteValidationLeavesStatusUnchanged(t *testing.T) {
	store := newFakeAppointmentStore(newTestAppointment("a3", models.StatusConfirmed))
	records := &fakeRecordStore{}
	svc := newTestService(store, records, newFakeLedger(map[string]int{}))

	_, err := svc.RequestTransition(context.Background(), "a3", models.StatusCompleted, TransitionPayload{Diagnosis: ""})
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Fields, "diagnosis")
	assert.Equal(t, models.StatusConfirmed, store.current("a3").Status)
	assert.Zero(t, records.count())
}

func TestCompleteStatusWriteFailureIsPartial(t *testing.T) {
	store := newFakeAppointmentStore(newTestAppointment("a1", models.StatusConfirmed))
	store.updateErr = assert.AnError
	records := &fakeRecordStore{}
	svc := newTestService(store, records, newFakeLedger(map[string]int{}))

	_, err := svc.RequestTransition(context.Background(), "a1", models.StatusCompleted, TransitionPayload{Diagnosis: "flu"})
	var partialErr *PartialFailureError
	require.ErrorAs(t, err, &partialErr)
	assert.Equal(t, "a1", partialErr.AppointmentID)
	assert.NotEmpty(t, partialErr.MedicalRecordID)
}

func TestCancel(t *testing.T) {
	t.Run("pending can be cancelled", func(t *testing.T) {
		store := newFakeAppointmentStore(newTestAppointment("a1", models.StatusPending))
		svc := newTestService(store, &fakeRecordStore{}, newFakeLedger(map[string]int{}))

		result, err := svc.Cancel(context.Background(), "a1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, result.Status)
		assert.Equal(t, models.StatusCancelled, store.current("a1").Status)
	})

	t.Run("confirmed can be cancelled", func(t *testing.T) {
		store := newFakeAppointmentStore(newTestAppointment("a1", models.StatusConfirmed))
		svc := newTestService(store, &fakeRecordStore{}, newFakeLedger(map[string]int{}))

		_, err := svc.Cancel(context.Background(), "a1")
		require.NoError(t, err)
	})

	t.Run("completed cannot be cancelled", func(t *testing.T) {
		store := newFakeAppointmentStore(newTestAppointment("a1", models.StatusCompleted))
		svc := newTestService(store, &fakeRecordStore{}, newFakeLedger(map[string]int{}))

		_, err := svc.Cancel(context.Background(), "a1")
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("cancelling twice is a no-op", func(t *testing.T) {
		store := newFakeAppointmentStore(newTestAppointment("a1", models.StatusCancelled))
		svc := newTestService(store, &fakeRecordStore{}, newFakeLedger(map[string]int{}))

		result, err := svc.Cancel(context.Background(), "a1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, result.Status)
	})
}

func TestReschedule(t *testing.T) {
	newSlot := RescheduleInput{
		AppointmentDate: time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC),
		StartTime:       "10:00",
		EndTime:         "10:30",
		Notes:           "patient travelling",
	}

	t.Run("pending moves to the new slot", func(t *testing.T) {
		store := newFakeAppointmentStore(newTestAppointment("a1", models.StatusPending))
		svc := newTestService(store, &fakeRecordStore{}, newFakeLedger(map[string]int{}))

		result, err := svc.Reschedule(context.Background(), "a1", newSlot)
		require.NoError(t, err)
		assert.Equal(t, models.StatusRescheduled, result.Status)

		current := store.current("a1")
		assert.Equal(t, models.StatusRescheduled, current.Status)
		assert.Equal(t, newSlot.AppointmentDate, current.AppointmentDate)
		assert.Equal(t, "10:00", current.StartTime)
		assert.Equal(t, "10:30", current.EndTime)
		assert.Equal(t, "patient travelling", current.Notes)
	})

	t.Run("confirmed can be rescheduled", func(t *testing.T) {
		store := newFakeAppointmentStore(newTestAppointment("a1", models.StatusConfirmed))
		svc := newTestService(store, &fakeRecordStore{}, newFakeLedger(map[string]int{}))

		_, err := svc.Reschedule(context.Background(), "a1", newSlot)
		require.NoError(t, err)
		assert.Equal(t, models.StatusRescheduled, store.current("a1").Status)
	})

	t.Run("terminal appointments cannot be rescheduled", func(t *testing.T) {
		for _, terminal := range []models.AppointmentStatus{models.StatusCompleted, models.StatusRejected, models.StatusCancelled, models.StatusNoShow} {
			store := newFakeAppointmentStore(newTestAppointment("a1", terminal))
			svc := newTestService(store, &fakeRecordStore{}, newFakeLedger(map[string]int{}))

			_, err := svc.Reschedule(context.Background(), "a1", newSlot)
			assert.ErrorIs(t, err, ErrInvalidTransition, "status %s", terminal)
			assert.Equal(t, terminal, store.current("a1").Status)
		}
	})

	t.Run("unknown appointment", func(t *testing.T) {
		svc := newTestService(newFakeAppointmentStore(), &fakeRecordStore{}, newFakeLedger(map[string]int{}))

		_, err := svc.Reschedule(context.Background(), "missing", newSlot)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestGetAppointmentStatus(t *testing.T) {
	store := newFakeAppointmentStore(newTestAppointment("a1", models.StatusRescheduled))
	svc := newTestService(store, &fakeRecordStore{}, newFakeLedger(map[string]int{}))

	status, err := svc.GetAppointmentStatus(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRescheduled, status)

	_, err = svc.GetAppointmentStatus(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
