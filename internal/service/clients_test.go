package service_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClients_DuplicatePhoneRejected(t *testing.T) {
	h := newHarness(t)
	seedTenantA(h)
	ctx := context.Background()

	_, err := h.svc.Clients.Create(ctx, adminA, domain.Client{Name: "Outra Maria", Phone: "11999990000"})

	var conflict *domain.ErrConflict
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, domain.ConflictDuplicate, conflict.Kind)
	assert.Equal(t, int32(0), h.clients.creates.Load())

	// Same phone in another company is fine.
	_, err = h.svc.Clients.Create(ctx, adminB, domain.Client{Name: "Maria", Phone: "(11) 99999-0000"})
	assert.NoError(t, err)
}

func TestClients_UpdateKeepsPhoneUnique(t *testing.T) {
	h := newHarness(t)
	seedTenantA(h)
	h.clients.put(domain.Client{ID: "cli-2", CompanyID: companyA, Name: "José", Phone: "11 3333-4444"})
	ctx := context.Background()

	_, err := h.svc.Clients.Update(ctx, adminA, "cli-2", "", json.RawMessage(`{"phone":"11999990000"}`))
	var conflict *domain.ErrConflict
	require.ErrorAs(t, err, &conflict)

	updated, err := h.svc.Clients.Update(ctx, adminA, "cli-1", "", json.RawMessage(`{"phone":"(11) 99999-0000","notes":"Prefere manhã"}`))
	require.NoError(t, err, "reformatting the own phone is not a duplicate")
	assert.Equal(t, "(11) 99999-0000", updated.Phone)
}

func TestClients_ListWithStats(t *testing.T) {
	h := newHarness(t)
	seedTenantA(h)
	h.clients.put(domain.Client{ID: "cli-2", CompanyID: companyA, Name: "Ana", Phone: "11 3333-4444"})
	h.appointments.put(domain.Appointment{ID: "ap-1", CompanyID: companyA, ClientID: "cli-1", ClientName: "Maria", ProfessionalID: "pro-1", ServiceID: "svc-1", Date: "2026-03-01", Time: "10:00", Duration: 30, Price: dec("50"), Status: domain.AppointmentCompleted})
	h.appointments.put(domain.Appointment{ID: "ap-2", CompanyID: companyA, ClientName: "Maria", ClientPhone: "11999990000", ProfessionalID: "pro-1", ServiceID: "svc-1", Date: "2026-03-10", Time: "10:00", Duration: 30, Price: dec("45"), Status: domain.AppointmentCompleted})
	h.appointments.put(domain.Appointment{ID: "ap-3", CompanyID: companyA, ClientID: "cli-1", ClientName: "Maria", ProfessionalID: "pro-1", ServiceID: "svc-1", Date: "2026-03-15", Time: "10:00", Duration: 30, Price: dec("50"), Status: domain.AppointmentCancelled})
	h.appointments.put(domain.Appointment{ID: "ap-4", CompanyID: companyA, ClientID: "cli-1", ClientName: "Maria", ProfessionalID: "pro-1", ServiceID: "svc-1", Date: "2026-03-25", Time: "10:00", Duration: 30, Price: dec("50"), Status: domain.AppointmentScheduled})

	list, err := h.svc.Clients.List(context.Background(), adminA, "")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Ana", list[0].Name)
	assert.Equal(t, 0, list[0].TotalAppointments)

	maria := list[1]
	assert.Equal(t, 3, maria.TotalAppointments)
	assert.Equal(t, "2026-03-10", maria.LastVisit)
	assert.True(t, maria.TotalSpent.Equal(dec("95")), "got %s", maria.TotalSpent)
}

func TestClients_Search(t *testing.T) {
	h := newHarness(t)
	seedTenantA(h)
	h.clients.put(domain.Client{ID: "cli-2", CompanyID: companyA, Name: "José", Phone: "11 3333-4444"})
	ctx := context.Background()

	byName, err := h.svc.Clients.List(ctx, adminA, "mar")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "cli-1", byName[0].ID)

	byPhone, err := h.svc.Clients.List(ctx, adminA, "3333-44")
	require.NoError(t, err)
	require.Len(t, byPhone, 1)
	assert.Equal(t, "cli-2", byPhone[0].ID)
}
