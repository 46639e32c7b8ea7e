package domain_test

import (
	"testing"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"

	"github.com/stretchr/testify/assert"
)

func booking(id, pro, hhmm string, minutes int, status domain.AppointmentStatus) domain.Appointment {
	return domain.Appointment{ID: id, ProfessionalID: pro, Date: "2026-03-10", Time: hhmm, Duration: minutes, Status: status}
}

func TestAppointmentOverlaps(t *testing.T) {
	base := booking("a-1", "pro-1", "10:00", 60, domain.AppointmentScheduled)

	tests := []struct {
		name  string
		other domain.Appointment
		want  bool
	}{
		{"same slot", booking("a-2", "pro-1", "10:00", 60, domain.AppointmentScheduled), true},
		{"starts inside", booking("a-2", "pro-1", "10:30", 60, domain.AppointmentScheduled), true},
		{"contains", booking("a-2", "pro-1", "09:30", 120, domain.AppointmentScheduled), true},
		{"back to back after", booking("a-2", "pro-1", "11:00", 30, domain.AppointmentScheduled), false},
		{"back to back before", booking("a-2", "pro-1", "09:00", 60, domain.AppointmentScheduled), false},
		{"other professional", booking("a-2", "pro-2", "10:00", 60, domain.AppointmentScheduled), false},
		{"cancelled", booking("a-2", "pro-1", "10:00", 60, domain.AppointmentCancelled), false},
		{"no show", booking("a-2", "pro-1", "10:00", 60, domain.AppointmentNoShow), false},
		{"completed still occupies", booking("a-2", "pro-1", "10:15", 15, domain.AppointmentCompleted), true},
		{"same booking", booking("a-1", "pro-1", "10:00", 60, domain.AppointmentScheduled), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.Overlaps(tt.other))
			assert.Equal(t, tt.want, tt.other.Overlaps(base))
		})
	}

	other := tests[0].other
	other.Date = "2026-03-11"
	assert.False(t, base.Overlaps(other), "different day")
}

func TestConflicts(t *testing.T) {
	a := booking("", "pro-1", "10:00", 30, domain.AppointmentScheduled)
	existing := []domain.Appointment{
		booking("a-1", "pro-1", "10:15", 30, domain.AppointmentScheduled),
		booking("a-2", "pro-1", "10:30", 30, domain.AppointmentScheduled),
		booking("a-3", "pro-1", "09:50", 30, domain.AppointmentCancelled),
	}

	got := domain.Conflicts(a, existing)

	if assert.Len(t, got, 1) {
		assert.Equal(t, "a-1", got[0].ID)
	}
}

func TestAppointmentStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to domain.AppointmentStatus
		want     bool
	}{
		{domain.AppointmentScheduled, domain.AppointmentCompleted, true},
		{domain.AppointmentScheduled, domain.AppointmentCancelled, true},
		{domain.AppointmentScheduled, domain.AppointmentNoShow, true},
		{domain.AppointmentScheduled, domain.AppointmentScheduled, true},
		{domain.AppointmentCompleted, domain.AppointmentScheduled, false},
		{domain.AppointmentCancelled, domain.AppointmentCompleted, false},
		{domain.AppointmentNoShow, domain.AppointmentCancelled, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestFilterAppointments_SortedByDateAndTime(t *testing.T) {
	in := []domain.Appointment{
		{ID: "3", Date: "2026-03-11", Time: "08:00", ProfessionalID: "pro-1", Status: domain.AppointmentScheduled},
		{ID: "2", Date: "2026-03-10", Time: "14:00", ProfessionalID: "pro-2", Status: domain.AppointmentScheduled},
		{ID: "1", Date: "2026-03-10", Time: "09:00", ProfessionalID: "pro-1", Status: domain.AppointmentCompleted},
	}

	all := domain.FilterAppointments(in, domain.AppointmentFilter{})
	assert.Equal(t, []string{"1", "2", "3"}, []string{all[0].ID, all[1].ID, all[2].ID})

	pro1 := domain.FilterAppointments(in, domain.AppointmentFilter{ProfessionalID: "pro-1", To: "2026-03-10"})
	if assert.Len(t, pro1, 1) {
		assert.Equal(t, "1", pro1[0].ID)
	}
}
