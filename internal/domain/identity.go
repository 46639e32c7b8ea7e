package domain

import "time"

// ============================================================
// Auth identity & platform preferences
// ============================================================

// Role scopes which dashboard a user can reach.
type Role string

const (
	RoleSuperAdmin   Role = "super_admin"
	RoleCompanyAdmin Role = "company_admin"
	RoleProfessional Role = "professional"
)

// Identity is the authenticated caller, resolved from the access token and
// the profiles table.
type Identity struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	CompanyID string `json:"companyId,omitempty"`
	Role      Role   `json:"role"`
}

// HasTenant reports whether the identity is bound to a company.
func (i Identity) HasTenant() bool {
	return i.CompanyID != ""
}

// ProfessionalInvite is the payload of the create-professional function.
type ProfessionalInvite struct {
	Name      string `json:"profName"`
	Email     string `json:"profEmail"`
	CompanyID string `json:"companyId"`
}

// ProfessionalInviteResult is returned by the create-professional function.
type ProfessionalInviteResult struct {
	Success           bool   `json:"success"`
	UserID            string `json:"userId"`
	TemporaryPassword string `json:"temporaryPassword"`
	Error             string `json:"error,omitempty"`
}

// CreatedProfessional is the API response after inviting a professional.
type CreatedProfessional struct {
	Professional      Professional `json:"professional"`
	TemporaryPassword string       `json:"temporaryPassword"`
}

// SignupRequest starts a trial company for the caller.
type SignupRequest struct {
	CompanyName    string `json:"companyName"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	CustomURL      string `json:"customUrl"`
	WhatsappNumber string `json:"whatsappNumber"`
	Plan           Plan   `json:"plan"`
}

// Branding is the platform-wide look configured by the super admin.
type Branding struct {
	PlatformName    string    `json:"platformName"`
	LogoURL         string    `json:"logoUrl"`
	PrimaryColor    string    `json:"primaryColor"`
	SecondaryColor  string    `json:"secondaryColor"`
	SupportEmail    string    `json:"supportEmail"`
	SupportWhatsapp string    `json:"supportWhatsapp"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// DefaultBranding is served until a super admin saves one.
func DefaultBranding() Branding {
	return Branding{
		PlatformName:   "Agenda",
		PrimaryColor:   "#7c3aed",
		SecondaryColor: "#0ea5e9",
	}
}
