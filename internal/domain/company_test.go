package domain_test

import (
	"testing"
	"time"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestCompanyTrial(t *testing.T) {
	tests := []struct {
		name     string
		status   domain.CompanyStatus
		endsAt   *time.Time
		state    domain.TrialState
		daysLeft int
	}{
		{"exactly two days", domain.CompanyTrial, at(now.Add(48 * time.Hour)), domain.TrialActive, 2},
		{"partial day rounds up", domain.CompanyTrial, at(now.Add(36 * time.Hour)), domain.TrialActive, 2},
		{"one minute left", domain.CompanyTrial, at(now.Add(time.Minute)), domain.TrialActive, 1},
		{"ends now", domain.CompanyTrial, at(now), domain.TrialExpired, 0},
		{"ended yesterday", domain.CompanyTrial, at(now.Add(-24 * time.Hour)), domain.TrialExpired, 0},
		{"active company", domain.CompanyActive, at(now.Add(48 * time.Hour)), domain.NotTrial, 0},
		{"trial without end date", domain.CompanyTrial, nil, domain.NotTrial, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := domain.Company{Status: tt.status, TrialEndsAt: tt.endsAt}

			got := c.Trial(now)

			assert.Equal(t, tt.state, got.State)
			assert.Equal(t, tt.daysLeft, got.TrialDaysLeft)
			assert.Equal(t, tt.status, got.Status)
		})
	}
}

func TestCompanyStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to domain.CompanyStatus
		want     bool
	}{
		{domain.CompanyTrial, domain.CompanyActive, true},
		{domain.CompanyTrial, domain.CompanySuspended, true},
		{domain.CompanyActive, domain.CompanySuspended, true},
		{domain.CompanySuspended, domain.CompanyActive, true},
		{domain.CompanyActive, domain.CompanyCancelled, true},
		{domain.CompanyActive, domain.CompanyTrial, false},
		{domain.CompanySuspended, domain.CompanyTrial, false},
		{domain.CompanyCancelled, domain.CompanyActive, false},
		{domain.CompanyCancelled, domain.CompanyCancelled, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestPlanSeatLimit(t *testing.T) {
	assert.Equal(t, 1, domain.PlanBasic.SeatLimit())
	assert.Equal(t, 5, domain.PlanProfessional.SeatLimit())
	assert.Equal(t, 0, domain.PlanEnterprise.SeatLimit())
}
