package services

import (
	"context"
	"fmt"
	"sync"

	"hospital-web-server/internal/models"
)

// fakeAppointmentStore is an in-memory AppointmentStore.
type fakeAppointmentStore struct {
	mu           sync.Mutex
	appointments map[string]*models.Appointment
	updateErr    error
	updateCalls  int
}

func newFakeAppointmentStore(appointments ...*models.Appointment) *fakeAppointmentStore {
	s := &fakeAppointmentStore{appointments: make(map[string]*models.Appointment)}
	for _, a := range appointments {
		s.appointments[a.ID] = a
	}
	return s
}

func (s *fakeAppointmentStore) Get(ctx context.Context, id string) (*models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[id]
	if !ok {
		return nil, fmt.Errorf("appointment %s: %w", id, ErrNotFound)
	}
	copied := *a
	return &copied, nil
}

func (s *fakeAppointmentStore) UpdateStatus(ctx context.Context, id string, status models.AppointmentStatus, extra StatusExtra) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateCalls++
	if s.updateErr != nil {
		return s.updateErr
	}
	a, ok := s.appointments[id]
	if !ok {
		return fmt.Errorf("appointment %s: %w", id, ErrNotFound)
	}
	a.Status = status
	if extra.RejectionReason != "" {
		a.RejectionReason = extra.RejectionReason
	}
	if extra.MedicalRecordID != "" {
		a.MedicalRecordID = extra.MedicalRecordID
	}
	return nil
}

func (s *fakeAppointmentStore) Reschedule(ctx context.Context, id string, input RescheduleInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[id]
	if !ok {
		return fmt.Errorf("appointment %s: %w", id, ErrNotFound)
	}
	a.AppointmentDate = input.AppointmentDate
	a.StartTime = input.StartTime
	a.EndTime = input.EndTime
	if input.Notes != "" {
		a.Notes = input.Notes
	}
	a.Status = models.StatusRescheduled
	return nil
}

func (s *fakeAppointmentStore) current(id string) *models.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appointments[id]
}

// fakeRecordStore is an in-memory MedicalRecordStore.
type fakeRecordStore struct {
	mu        sync.Mutex
	records   []*models.MedicalRecord
	createErr error
}

func (s *fakeRecordStore) Create(ctx context.Context, record *models.MedicalRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return "", s.createErr
	}
	record.ID = fmt.Sprintf("record-%d", len(s.records)+1)
	s.records = append(s.records, record)
	return record.ID, nil
}

func (s *fakeRecordStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *fakeRecordStore) last() *models.MedicalRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.records) == 0 {
		return nil
	}
	return s.records[len(s.records)-1]
}

// fakeLedger is an in-memory StockLedger with all-or-nothing batch semantics.
// afterReduce, when set, runs after a successful batch commit.
type fakeLedger struct {
	mu          sync.Mutex
	stock       map[string]int
	afterReduce func()
}

func newFakeLedger(stock map[string]int) *fakeLedger {
	return &fakeLedger{stock: stock}
}

func (l *fakeLedger) GetMedications(ctx context.Context, ids []string) (map[string]*models.Medication, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]*models.Medication)
	for _, id := range ids {
		if qty, ok := l.stock[id]; ok {
			med := &models.Medication{StockQuantity: qty}
			med.ID = id
			out[id] = med
		}
	}
	return out, nil
}

func (l *fakeLedger) ReduceStock(ctx context.Context, reductions []StockReduction) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	remaining := make(map[string]int, len(l.stock))
	for id, qty := range l.stock {
		remaining[id] = qty
	}

	var shortages []StockShortage
	for _, r := range reductions {
		available, ok := remaining[r.MedicationID]
		if !ok {
			return fmt.Errorf("medication %s: %w", r.MedicationID, ErrNotFound)
		}
		if available < r.Quantity {
			// Report the untouched stock, not the running balance, so a
			// batch with several lines for one medication still shows what
			// is actually on the shelf after rollback.
			shortages = append(shortages, StockShortage{
				MedicationID: r.MedicationID,
				Requested:    r.Quantity,
				Available:    l.stock[r.MedicationID],
			})
			continue
		}
		remaining[r.MedicationID] = available - r.Quantity
	}
	if len(shortages) > 0 {
		return &InsufficientStockError{Shortages: shortages}
	}

	l.stock = remaining
	if l.afterReduce != nil {
		l.afterReduce()
	}
	return nil
}

func (l *fakeLedger) quantity(id string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stock[id]
}
