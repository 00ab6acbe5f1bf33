package store

import (
	"context"
	"io"
	"testing"
	"time"

	"clinicbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	args := m.Called(ctx, a)
	if args.Error(0) == nil {
		a.ID = 1
		a.CreatedAt = time.Now()
		a.UpdatedAt = a.CreatedAt
	}
	return args.Error(0)
}

func (m *mockRepo) GetAppointment(ctx context.Context, id int64) (*models.Appointment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Appointment), args.Error(1)
}

func (m *mockRepo) ListAppointments(ctx context.Context, f models.AppointmentFilter) ([]models.Appointment, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]models.Appointment), args.Error(1)
}

func (m *mockRepo) UpdateAppointment(ctx context.Context, a *models.Appointment) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockRepo) SetAppointmentStatus(ctx context.Context, id int64, status string) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *mockRepo) IsSlotBooked(ctx context.Context, doctorID int64, date, slot string, excludeID int64) (bool, error) {
	args := m.Called(ctx, doctorID, date, slot, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepo) MarkReminderSent(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRepo) GetDoctor(ctx context.Context, id int64) (*models.Doctor, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Doctor), args.Error(1)
}

type mockBus struct {
	mock.Mock
}

func (m *mockBus) PublishJSON(eventType string, payload interface{}) error {
	return m.Called(eventType, payload).Error(0)
}

// fixedNow is well before the test dates so window checks pass.
var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(repo *mockRepo, bus *mockBus) *Store {
	logger := zerolog.New(io.Discard)
	s := New(repo, bus, Rules{MaxAdvance: 90 * 24 * time.Hour}, time.UTC, &logger)
	s.now = func() time.Time { return fixedNow }
	return s
}

func validRequest() BookRequest {
	return BookRequest{
		DoctorID:    1,
		PatientName: "Sarah Johnson",
		PhoneNumber: "123-456-7890",
		Disease:     "Regular checkup",
		Date:        "2024-03-15",
		TimeSlot:    "09:00 AM",
	}
}

func TestStore_Book(t *testing.T) {
	ctx := context.Background()
	doctor := &models.Doctor{ID: 1, Name: "Dr. Michael Smith", Specialization: "Cardiologist"}

	t.Run("Success", func(t *testing.T) {
		repo := new(mockRepo)
		bus := new(mockBus)
		s := newTestStore(repo, bus)

		repo.On("GetDoctor", ctx, int64(1)).Return(doctor, nil).Once()
		repo.On("IsSlotBooked", ctx, int64(1), "2024-03-15", "09:00 AM", int64(0)).Return(false, nil).Once()
		repo.On("CreateAppointment", ctx, mock.Anything).Return(nil).Once()
		bus.On("PublishJSON", mock.Anything, mock.Anything).Return(nil).Once()

		got, err := s.Book(ctx, validRequest())
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, got.Status)
		assert.Equal(t, "Dr. Michael Smith", got.DoctorName)
		assert.Equal(t, "Cardiologist", got.DoctorSpecialization)
		assert.Equal(t, models.TemporalUpcoming, got.TemporalStatus)
		repo.AssertExpectations(t)
	})

	t.Run("SlotConflict", func(t *testing.T) {
		repo := new(mockRepo)
		bus := new(mockBus)
		s := newTestStore(repo, bus)

		repo.On("GetDoctor", ctx, int64(1)).Return(doctor, nil).Once()
		repo.On("IsSlotBooked", ctx, int64(1), "2024-03-15", "09:00 AM", int64(0)).Return(true, nil).Once()

		req := validRequest()
		req.PatientName = "James Wilson"
		_, err := s.Book(ctx, req)
		assert.ErrorIs(t, err, ErrSlotConflict)
		repo.AssertNotCalled(t, "CreateAppointment", mock.Anything, mock.Anything)
	})

	t.Run("ConflictFromStorageRace", func(t *testing.T) {
		repo := new(mockRepo)
		bus := new(mockBus)
		s := newTestStore(repo, bus)

		// Pre-check passes but the unique index rejects the insert.
		repo.On("GetDoctor", ctx, int64(1)).Return(doctor, nil).Once()
		repo.On("IsSlotBooked", ctx, int64(1), "2024-03-15", "09:00 AM", int64(0)).Return(false, nil).Once()
		repo.On("CreateAppointment", ctx, mock.Anything).Return(ErrSlotConflict).Once()

		_, err := s.Book(ctx, validRequest())
		assert.ErrorIs(t, err, ErrSlotConflict)
	})

	t.Run("ValidationGate", func(t *testing.T) {
		repo := new(mockRepo)
		bus := new(mockBus)
		s := newTestStore(repo, bus)

		tests := []struct {
			name  string
			mod   func(*BookRequest)
			field string
		}{
			{"empty patient name", func(r *BookRequest) { r.PatientName = "" }, "patient_name"},
			{"empty phone", func(r *BookRequest) { r.PhoneNumber = "" }, "phone_number"},
			{"empty disease", func(r *BookRequest) { r.Disease = "" }, "disease"},
			{"empty date", func(r *BookRequest) { r.Date = "" }, "date"},
			{"bad date", func(r *BookRequest) { r.Date = "March 15th" }, "date"},
			{"empty slot", func(r *BookRequest) { r.TimeSlot = "" }, "time_slot"},
			{"bad slot", func(r *BookRequest) { r.TimeSlot = "late" }, "time_slot"},
			{"no doctor", func(r *BookRequest) { r.DoctorID = 0 }, "doctor_id"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req := validRequest()
				tt.mod(&req)

				_, err := s.Book(ctx, req)
				require.Error(t, err)

				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Contains(t, verr.Fields, tt.field)
			})
		}

		// No record is ever created on a validation failure.
		repo.AssertNotCalled(t, "CreateAppointment", mock.Anything, mock.Anything)
	})

	t.Run("HourSlotNormalized", func(t *testing.T) {
		repo := new(mockRepo)
		bus := new(mockBus)
		s := newTestStore(repo, bus)

		repo.On("GetDoctor", ctx, int64(1)).Return(doctor, nil).Once()
		repo.On("IsSlotBooked", ctx, int64(1), "2024-03-15", "02:00 PM", int64(0)).Return(false, nil).Once()
		repo.On("CreateAppointment", ctx, mock.Anything).Return(nil).Once()
		bus.On("PublishJSON", mock.Anything, mock.Anything).Return(nil).Once()

		req := validRequest()
		req.TimeSlot = "14"
		got, err := s.Book(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, "02:00 PM", got.TimeSlot)
	})

	t.Run("PastSlotRejected", func(t *testing.T) {
		repo := new(mockRepo)
		bus := new(mockBus)
		s := newTestStore(repo, bus)

		req := validRequest()
		req.Date = "2024-02-01"
		_, err := s.Book(ctx, req)
		assert.ErrorIs(t, err, ErrPastDate)
	})

	t.Run("TooFarAheadRejected", func(t *testing.T) {
		repo := new(mockRepo)
		bus := new(mockBus)
		s := newTestStore(repo, bus)

		req := validRequest()
		req.Date = "2025-03-15"
		_, err := s.Book(ctx, req)
		assert.ErrorIs(t, err, ErrDateTooFar)
	})

	t.Run("UnknownDoctor", func(t *testing.T) {
		repo := new(mockRepo)
		bus := new(mockBus)
		s := newTestStore(repo, bus)

		repo.On("GetDoctor", ctx, int64(1)).Return(nil, ErrNotFound).Once()

		_, err := s.Book(ctx, validRequest())
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStore_Cancel(t *testing.T) {
	ctx := context.Background()

	active := func() *models.Appointment {
		return &models.Appointment{
			ID: 10, DoctorID: 1, Date: "2024-03-15", TimeSlot: "09:00 AM",
			Status: models.StatusPending,
		}
	}

	t.Run("CancelFreesSlot", func(t *testing.T) {
		repo := new(mockRepo)
		bus := new(mockBus)
		s := newTestStore(repo, bus)

		repo.On("GetAppointment", ctx, int64(10)).Return(active(), nil).Once()
		repo.On("SetAppointmentStatus", ctx, int64(10), models.StatusCancelled).Return(nil).Once()
		bus.On("PublishJSON", mock.Anything, mock.Anything).Return(nil).Once()

		got, err := s.Cancel(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, got.Status)
		assert.False(t, got.HoldsSlot(1, "2024-03-15", "09:00 AM"))
		repo.AssertExpectations(t)
	})

	t.Run("IdempotentCancel", func(t *testing.T) {
		repo := new(mockRepo)
		bus := new(mockBus)
		s := newTestStore(repo, bus)

		cancelled := active()
		cancelled.Status = models.StatusCancelled
		repo.On("GetAppointment", ctx, int64(10)).Return(cancelled, nil).Twice()

		for i := 0; i < 2; i++ {
			got, err := s.Cancel(ctx, 10)
			require.NoError(t, err)
			assert.Equal(t, models.StatusCancelled, got.Status)
		}
		repo.AssertNotCalled(t, "SetAppointmentStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("NotFound", func(t *testing.T) {
		repo := new(mockRepo)
		bus := new(mockBus)
		s := newTestStore(repo, bus)

		repo.On("GetAppointment", ctx, int64(99)).Return(nil, ErrNotFound).Once()

		_, err := s.Cancel(ctx, 99)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStore_Confirm(t *testing.T) {
	ctx := context.Background()

	t.Run("PendingToConfirmed", func(t *testing.T) {
		repo := new(mockRepo)
		bus := new(mockBus)
		s := newTestStore(repo, bus)

		repo.On("GetAppointment", ctx, int64(7)).Return(&models.Appointment{
			ID: 7, Date: "2024-03-15", TimeSlot: "09:00 AM", Status: models.StatusPending,
		}, nil).Once()
		repo.On("SetAppointmentStatus", ctx, int64(7), models.StatusConfirmed).Return(nil).Once()
		bus.On("PublishJSON", mock.Anything, mock.Anything).Return(nil).Once()

		got, err := s.Confirm(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, models.StatusConfirmed, got.Status)
	})

	t.Run("CancelledRejected", func(t *testing.T) {
		repo := new(mockRepo)
		bus := new(mockBus)
		s := newTestStore(repo, bus)

		repo.On("GetAppointment", ctx, int64(7)).Return(&models.Appointment{
			ID: 7, Status: models.StatusCancelled,
		}, nil).Once()

		_, err := s.Confirm(ctx, 7)
		assert.ErrorIs(t, err, ErrCancelled)
	})
}

func TestStore_Update(t *testing.T) {
	ctx := context.Background()

	existing := func() *models.Appointment {
		return &models.Appointment{
			ID: 5, DoctorID: 1, Date: "2024-03-15", TimeSlot: "09:00 AM",
			PatientName: "Sarah Johnson", PhoneNumber: "123-456-7890",
			Disease: "Regular checkup", Status: models.StatusPending,
		}
	}

	strPtr := func(s string) *string { return &s }

	t.Run("NotesOnlySkipsConflictCheck", func(t *testing.T) {
		repo := new(mockRepo)
		bus := new(mockBus)
		s := newTestStore(repo, bus)

		repo.On("GetAppointment", ctx, int64(5)).Return(existing(), nil).Once()
		repo.On("UpdateAppointment", ctx, mock.Anything).Return(nil).Once()
		bus.On("PublishJSON", mock.Anything, mock.Anything).Return(nil).Once()

		got, err := s.Update(ctx, 5, UpdatePatch{Notes: strPtr("bring reports")})
		require.NoError(t, err)
		assert.Equal(t, "bring reports", got.Notes)
		repo.AssertNotCalled(t, "IsSlotBooked", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("SlotMoveChecksOthersExcludingSelf", func(t *testing.T) {
		repo := new(mockRepo)
		bus := new(mockBus)
		s := newTestStore(repo, bus)

		repo.On("GetAppointment", ctx, int64(5)).Return(existing(), nil).Once()
		repo.On("IsSlotBooked", ctx, int64(1), "2024-03-15", "09:30 AM", int64(5)).Return(false, nil).Once()
		repo.On("UpdateAppointment", ctx, mock.Anything).Return(nil).Once()
		bus.On("PublishJSON", mock.Anything, mock.Anything).Return(nil).Once()

		got, err := s.Update(ctx, 5, UpdatePatch{TimeSlot: strPtr("09:30 AM")})
		require.NoError(t, err)
		assert.Equal(t, "09:30 AM", got.TimeSlot)
		repo.AssertExpectations(t)
	})

	t.Run("SlotMoveConflict", func(t *testing.T) {
		repo := new(mockRepo)
		bus := new(mockBus)
		s := newTestStore(repo, bus)

		repo.On("GetAppointment", ctx, int64(5)).Return(existing(), nil).Once()
		repo.On("IsSlotBooked", ctx, int64(1), "2024-03-15", "09:30 AM", int64(5)).Return(true, nil).Once()

		_, err := s.Update(ctx, 5, UpdatePatch{TimeSlot: strPtr("09:30 AM")})
		assert.ErrorIs(t, err, ErrSlotConflict)
		repo.AssertNotCalled(t, "UpdateAppointment", mock.Anything, mock.Anything)
	})

	t.Run("BlankRequiredFieldRejected", func(t *testing.T) {
		repo := new(mockRepo)
		bus := new(mockBus)
		s := newTestStore(repo, bus)

		tests := []struct {
			field string
			patch UpdatePatch
		}{
			{"patient_name", UpdatePatch{PatientName: strPtr("")}},
			{"phone_number", UpdatePatch{PhoneNumber: strPtr("")}},
			{"disease", UpdatePatch{Disease: strPtr("")}},
		}
		for _, tt := range tests {
			repo.On("GetAppointment", ctx, int64(5)).Return(existing(), nil).Once()

			_, err := s.Update(ctx, 5, tt.patch)
			require.True(t, IsValidation(err), "field %s", tt.field)
			assert.Contains(t, err.Error(), tt.field)
		}
		repo.AssertNotCalled(t, "UpdateAppointment", mock.Anything, mock.Anything)
	})

	t.Run("BlankNotesAllowed", func(t *testing.T) {
		repo := new(mockRepo)
		bus := new(mockBus)
		s := newTestStore(repo, bus)

		repo.On("GetAppointment", ctx, int64(5)).Return(existing(), nil).Once()
		repo.On("UpdateAppointment", ctx, mock.Anything).Return(nil).Once()
		bus.On("PublishJSON", mock.Anything, mock.Anything).Return(nil).Once()

		got, err := s.Update(ctx, 5, UpdatePatch{Notes: strPtr("")})
		require.NoError(t, err)
		assert.Equal(t, "", got.Notes)
	})

	t.Run("CancelledRejected", func(t *testing.T) {
		repo := new(mockRepo)
		bus := new(mockBus)
		s := newTestStore(repo, bus)

		cancelled := existing()
		cancelled.Status = models.StatusCancelled
		repo.On("GetAppointment", ctx, int64(5)).Return(cancelled, nil).Once()

		_, err := s.Update(ctx, 5, UpdatePatch{Notes: strPtr("x")})
		assert.ErrorIs(t, err, ErrCancelled)
	})

	t.Run("NotFound", func(t *testing.T) {
		repo := new(mockRepo)
		bus := new(mockBus)
		s := newTestStore(repo, bus)

		repo.On("GetAppointment", ctx, int64(404)).Return(nil, ErrNotFound).Once()

		_, err := s.Update(ctx, 404, UpdatePatch{Notes: strPtr("x")})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStore_List(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)
	bus := new(mockBus)
	s := newTestStore(repo, bus)

	all := []models.Appointment{
		{ID: 1, Date: "2024-02-01", TimeSlot: "09:00 AM", Status: models.StatusConfirmed},
		{ID: 2, Date: "2024-03-15", TimeSlot: "09:00 AM", Status: models.StatusPending},
		{ID: 3, Date: "2024-03-15", TimeSlot: "02:00 PM", Status: models.StatusCancelled},
	}
	repo.On("ListAppointments", ctx, mock.Anything).Return(all, nil)

	t.Run("AllAnnotated", func(t *testing.T) {
		got, err := s.List(ctx, models.AppointmentFilter{})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, models.TemporalPast, got[0].TemporalStatus)
		assert.Equal(t, models.TemporalUpcoming, got[1].TemporalStatus)
		assert.Equal(t, "", got[2].TemporalStatus)
	})

	t.Run("UpcomingOnly", func(t *testing.T) {
		got, err := s.List(ctx, models.AppointmentFilter{Temporal: models.TemporalUpcoming})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, int64(2), got[0].ID)
	})

	t.Run("PastOnly", func(t *testing.T) {
		got, err := s.List(ctx, models.AppointmentFilter{Temporal: models.TemporalPast})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, int64(1), got[0].ID)
	})

	t.Run("UnknownTemporalRejected", func(t *testing.T) {
		_, err := s.List(ctx, models.AppointmentFilter{Temporal: "bogus"})
		require.True(t, IsValidation(err))
		assert.Contains(t, err.Error(), "temporal")
	})

	t.Run("EmptyIsNotError", func(t *testing.T) {
		empty := new(mockRepo)
		s := newTestStore(empty, bus)
		empty.On("ListAppointments", ctx, mock.Anything).Return([]models.Appointment{}, nil)

		got, err := s.List(ctx, models.AppointmentFilter{})
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}

func TestStore_RefreshTemporalStatus(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)
	bus := new(mockBus)
	s := newTestStore(repo, bus)

	repo.On("ListAppointments", ctx, mock.Anything).Return([]models.Appointment{
		{ID: 1, Date: "2024-02-01", TimeSlot: "09:00 AM", Status: models.StatusConfirmed},
		{ID: 2, Date: "2024-03-15", TimeSlot: "09:00 AM", Status: models.StatusPending},
		{ID: 3, Date: "2024-03-20", TimeSlot: "02:00 PM", Status: models.StatusCancelled},
	}, nil)

	counts, err := s.RefreshTemporalStatus(ctx, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Past)
	assert.Equal(t, 1, counts.Upcoming)
}

func TestStore_DueReminders(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)
	bus := new(mockBus)
	s := newTestStore(repo, bus)

	repo.On("ListAppointments", ctx, mock.Anything).Return([]models.Appointment{
		// Starts in 21 hours: due.
		{ID: 1, Date: "2024-03-02", TimeSlot: "09:00 AM", Status: models.StatusConfirmed},
		// Already reminded.
		{ID: 2, Date: "2024-03-02", TimeSlot: "10:00 AM", Status: models.StatusConfirmed, ReminderSent: true},
		// Cancelled records are never touched.
		{ID: 3, Date: "2024-03-02", TimeSlot: "11:00 AM", Status: models.StatusCancelled},
		// Too far out.
		{ID: 4, Date: "2024-03-10", TimeSlot: "09:00 AM", Status: models.StatusPending},
		// Already started.
		{ID: 5, Date: "2024-02-28", TimeSlot: "09:00 AM", Status: models.StatusConfirmed},
	}, nil)

	due, err := s.DueReminders(ctx, fixedNow, 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, int64(1), due[0].ID)
}

func TestStore_IsSlotBooked_Normalizes(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)
	bus := new(mockBus)
	s := newTestStore(repo, bus)

	repo.On("IsSlotBooked", ctx, int64(1), "2024-03-15", "09:00 AM", int64(0)).Return(true, nil).Once()

	booked, err := s.IsSlotBooked(ctx, 1, "2024-03-15", "9")
	require.NoError(t, err)
	assert.True(t, booked)

	_, err = s.IsSlotBooked(ctx, 1, "2024-03-15", "nonsense")
	require.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "time_slot")

	_, err = s.IsSlotBooked(ctx, 1, "not-a-date", "09:00 AM")
	require.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "date")
}

func TestStore_AvailableSlots_InvalidDate(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)
	bus := new(mockBus)
	s := newTestStore(repo, bus)

	_, err := s.AvailableSlots(ctx, 1, "not-a-date")
	require.True(t, IsValidation(err))
	repo.AssertNotCalled(t, "ListAppointments", mock.Anything, mock.Anything)
}
