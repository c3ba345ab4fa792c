package services

import (
	"context"
	"fmt"
	"strings"

	"hospital-web-server/internal/models"

	"go.uber.org/zap"
)

// legalTransitions is the status transition table. Completed, rejected,
// cancelled and no-show are terminal and have no outgoing edges.
var legalTransitions = map[models.AppointmentStatus][]models.AppointmentStatus{
	models.StatusPending:     {models.StatusConfirmed, models.StatusRejected},
	models.StatusRescheduled: {models.StatusConfirmed, models.StatusRejected},
	models.StatusConfirmed:   {models.StatusCompleted, models.StatusNoShow},
}

func transitionAllowed(from, to models.AppointmentStatus) bool {
	for _, t := range legalTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// AppointmentService governs the appointment status lifecycle. All status
// mutations go through it; the stored status is never written directly.
type AppointmentService struct {
	appointments AppointmentStore
	completion   *CompletionService
	log          *zap.Logger
}

// NewAppointmentService creates a new AppointmentService.
func NewAppointmentService(appointments AppointmentStore, completion *CompletionService, log *zap.Logger) *AppointmentService {
	return &AppointmentService{
		appointments: appointments,
		completion:   completion,
		log:          log,
	}
}

// RequestTransition validates and commits a status change. For a transition
// to completed it runs the completion transaction first and commits the
// status only on success, so an error never leaves a half-applied
// transition (except *PartialFailureError, which is flagged, not hidden).
//
// Retrying an already-applied non-terminal transition is a no-op reporting
// the current state. Terminal appointments reject every request with
// ErrInvalidTransition.
func (s *AppointmentService) RequestTransition(ctx context.Context, appointmentID string, target models.AppointmentStatus, payload TransitionPayload) (*TransitionResult, error) {
	if !target.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, target)
	}

	appt, err := s.appointments.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	if appt.Status == target && !appt.Status.IsTerminal() {
		return &TransitionResult{Status: appt.Status, MedicalRecordID: appt.MedicalRecordID}, nil
	}
	if !transitionAllowed(appt.Status, target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, appt.Status, target)
	}

	var extra StatusExtra
	switch target {
	case models.StatusRejected:
		if strings.TrimSpace(payload.Reason) == "" {
			return nil, &ValidationError{Fields: map[string]string{"reason": "rejection reason is required"}}
		}
		extra.RejectionReason = payload.Reason
	case models.StatusCompleted:
		recordID, err := s.completion.Complete(ctx, appt, payload)
		if err != nil {
			return nil, err
		}
		extra.MedicalRecordID = recordID
	}

	if err := s.appointments.UpdateStatus(ctx, appointmentID, target, extra); err != nil {
		if target == models.StatusCompleted {
			// Stock is consumed and the record exists; only the status
			// column is stale. Flag it rather than hide it.
			return nil, &PartialFailureError{
				AppointmentID:   appointmentID,
				MedicalRecordID: extra.MedicalRecordID,
				Err:             err,
			}
		}
		return nil, err
	}

	s.log.Info("appointment status changed",
		zap.String("appointmentId", appointmentID),
		zap.String("from", string(appt.Status)),
		zap.String("to", string(target)),
	)
	return &TransitionResult{Status: target, MedicalRecordID: extra.MedicalRecordID}, nil
}

// GetAppointmentStatus returns the stored status of an appointment.
func (s *AppointmentService) GetAppointmentStatus(ctx context.Context, appointmentID string) (models.AppointmentStatus, error) {
	appt, err := s.appointments.Get(ctx, appointmentID)
	if err != nil {
		return "", err
	}
	return appt.Status, nil
}

// Reschedule moves an appointment to a new slot and marks it rescheduled,
// putting it back in front of the doctor for confirmation or rejection.
// Terminal appointments cannot be moved.
func (s *AppointmentService) Reschedule(ctx context.Context, appointmentID string, input RescheduleInput) (*TransitionResult, error) {
	appt, err := s.appointments.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, appt.Status, models.StatusRescheduled)
	}
	if err := s.appointments.Reschedule(ctx, appointmentID, input); err != nil {
		return nil, err
	}
	s.log.Info("appointment rescheduled",
		zap.String("appointmentId", appointmentID),
		zap.Time("appointmentDate", input.AppointmentDate),
	)
	return &TransitionResult{Status: models.StatusRescheduled}, nil
}

// Cancel is the patient-side withdrawal of a booking. It is not part of the
// doctor-facing transition table: only a pending or confirmed appointment
// can be cancelled, and terminal appointments stay untouched.
func (s *AppointmentService) Cancel(ctx context.Context, appointmentID string) (*TransitionResult, error) {
	appt, err := s.appointments.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.Status == models.StatusCancelled {
		return &TransitionResult{Status: appt.Status}, nil
	}
	if appt.Status != models.StatusPending && appt.Status != models.StatusConfirmed {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, appt.Status, models.StatusCancelled)
	}
	if err := s.appointments.UpdateStatus(ctx, appointmentID, models.StatusCancelled, StatusExtra{}); err != nil {
		return nil, err
	}
	s.log.Info("appointment cancelled", zap.String("appointmentId", appointmentID))
	return &TransitionResult{Status: models.StatusCancelled}, nil
}
