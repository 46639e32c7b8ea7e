// Package service provides the business logic layer (use cases): the tenant
// data cache, the CRUD orchestrator, the confirmation gate and the thin
// scheduling rules built on top of them.
package service

import (
	"time"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
	"github.com/boddenberg/agenda-bfa-go/internal/infra/observability"
	"github.com/boddenberg/agenda-bfa-go/internal/port"

	"go.uber.org/zap"
)

// Stores are every remote dependency the services use.
type Stores struct {
	TenantStores
	Coupons       port.EntityStore[domain.Coupon]
	Invoices      port.EntityStore[domain.Invoice]
	Notifications port.EntityStore[domain.Notification]
	Tickets       port.EntityStore[domain.Ticket]
	Profiles      port.ProfileStore
	Provisioner   port.ProfessionalProvisioner
}

// Policy holds the tunable business rules.
type Policy struct {
	TrialDays           int
	RejectDoubleBooking bool
}

// Entity names used in toasts, logs and metrics.
var (
	entityCompany      = Entity{Name: "empresa", Feminine: true}
	entityService      = Entity{Name: "serviço"}
	entityProfessional = Entity{Name: "profissional"}
	entityAppointment  = Entity{Name: "agendamento"}
	entityClient       = Entity{Name: "cliente"}
	entityExpense      = Entity{Name: "despesa", Feminine: true}
	entityCoupon       = Entity{Name: "cupom"}
	entityInvoice      = Entity{Name: "fatura", Feminine: true}
	entityNotification = Entity{Name: "notificação", Feminine: true}
	entityTicket       = Entity{Name: "chamado"}
)

// Services bundles every use case served by the HTTP layer.
type Services struct {
	Data          *TenantData
	Confirmations *ConfirmationQueue
	Companies     *CompanyService
	Catalog       *CatalogService
	Schedule      *ScheduleService
	Clients       *ClientService
	Coupons       *CouponService
	Finance       *FinanceService
	Inbox         *InboxService
	Dashboard     *DashboardService
	Identity      *IdentityService
	Platform      *PlatformConfig
	Landing       *LandingDrafts
}

// Deps are the shared collaborators of the services.
type Deps struct {
	Stores   Stores
	Data     *TenantData
	Gate     port.Confirmer
	Toasts   port.Notifier
	Policy   Policy
	Metrics  *observability.Metrics
	Logger   *zap.Logger
	Now      func() time.Time
	Identity *IdentityService
	Platform *PlatformConfig
	Landing  *LandingDrafts
	Queue    *ConfirmationQueue
}

// NewServices wires the use cases around the shared collaborators.
func NewServices(d Deps) *Services {
	if d.Now == nil {
		d.Now = time.Now
	}
	inbox := NewInboxService(d)
	return &Services{
		Data:          d.Data,
		Confirmations: d.Queue,
		Companies:     NewCompanyService(d),
		Catalog:       NewCatalogService(d),
		Schedule:      NewScheduleService(d),
		Clients:       NewClientService(d),
		Coupons:       NewCouponService(d),
		Finance:       NewFinanceService(d),
		Inbox:         inbox,
		Dashboard:     NewDashboardService(d),
		Identity:      d.Identity,
		Platform:      d.Platform,
		Landing:       d.Landing,
	}
}
