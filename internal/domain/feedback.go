package domain

import "time"

// ============================================================
// Toasts & confirmation prompts
// ============================================================

// ToastKind is the tone of a user-facing message.
type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
)

// Toast is a transient user-facing message recorded in the tenant's feed.
type Toast struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"companyId"`
	Kind      ToastKind `json:"kind"`
	Title     string    `json:"title"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// PromptState follows open -> confirmed | cancelled.
type PromptState string

const (
	PromptOpen      PromptState = "open"
	PromptConfirmed PromptState = "confirmed"
	PromptCancelled PromptState = "cancelled"
)

// Prompt is a pending yes/no decision for a destructive action.
type Prompt struct {
	ID          string      `json:"id"`
	CompanyID   string      `json:"companyId"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	ConfirmText string      `json:"confirmText"`
	CancelText  string      `json:"cancelText"`
	Destructive bool        `json:"destructive"`
	State       PromptState `json:"state"`
	CreatedAt   time.Time   `json:"createdAt"`
	ExpiresAt   *time.Time  `json:"expiresAt,omitempty"`
}
