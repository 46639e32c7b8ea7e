package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Health, dashboards & API wrappers
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// OpsSnapshot is returned by GET /v1/admin/ops.
type OpsSnapshot struct {
	CrudSuccess        int64   `json:"crudSuccess"`
	CrudFailure        int64   `json:"crudFailure"`
	ConfirmedDeletes   int64   `json:"confirmedDeletes"`
	DeclinedDeletes    int64   `json:"declinedDeletes"`
	WorkingSetHitRate  float64 `json:"workingSetHitRate"`
	IsolationDrops     int64   `json:"isolationDrops"`
	ExpiredTrials      int64   `json:"expiredTrials"`
	WorkingSets        int64   `json:"workingSets"`
	ExternalErrorCount int64   `json:"externalErrorCount"`
}

// CompanyDashboard is returned by GET /v1/company/dashboard.
type CompanyDashboard struct {
	Date                string          `json:"date"`
	AppointmentsToday   int             `json:"appointmentsToday"`
	UpcomingToday       int             `json:"upcomingToday"`
	MonthRevenue        decimal.Decimal `json:"monthRevenue"`
	MonthExpenses       decimal.Decimal `json:"monthExpenses"`
	MonthProfit         decimal.Decimal `json:"monthProfit"`
	CompletedThisMonth  int             `json:"completedThisMonth"`
	ActiveClients       int             `json:"activeClients"`
	ActiveProfessionals int             `json:"activeProfessionals"`
	ActiveServices      int             `json:"activeServices"`
	Trial               TrialStatus     `json:"trial"`
	GeneratedAt         time.Time       `json:"generatedAt"`
}

// PlatformStats is returned by GET /v1/admin/stats.
type PlatformStats struct {
	TotalCompanies   int                   `json:"totalCompanies"`
	ByStatus         map[CompanyStatus]int `json:"byStatus"`
	ByPlan           map[Plan]int          `json:"byPlan"`
	MonthlyRevenue   decimal.Decimal       `json:"monthlyRevenue"`
	TrialsEndingSoon int                   `json:"trialsEndingSoon"`
	OpenTickets      int                   `json:"openTickets"`
}

// LoadStatus reports the state of a tenant working set.
type LoadStatus struct {
	CompanyID string            `json:"companyId"`
	Loading   bool              `json:"loading"`
	Error     string            `json:"error,omitempty"`
	Failed    map[string]string `json:"failed,omitempty"`
	LoadedAt  *time.Time        `json:"loadedAt,omitempty"`
}

// SuccessResponse wraps a successful single-entity response.
type SuccessResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}
