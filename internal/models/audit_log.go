package models

import "time"

// Audit actions
const (
	AuditActionCreate         = "create"
	AuditActionUpdate         = "update"
	AuditActionDelete         = "delete"
	AuditActionLogin          = "login"
	AuditActionLogout         = "logout"
	AuditActionView           = "view"
	AuditActionPasswordChange = "password_change"
)

// Audit resources
const (
	AuditResourceAuth         = "auth"
	AuditResourceUser         = "user"
	AuditResourceTicket       = "ticket"
	AuditResourceArticle      = "kb_article"
	AuditResourceSystemConfig = "system_config"
)

type AuditLog struct {
	ID         string    `json:"id"`
	UserID     *string   `json:"user_id"` // nil for system-generated events
	UserName   string    `json:"user_name,omitempty"`
	Action     string    `json:"action"`
	Resource   string    `json:"resource"`
	ResourceID *string   `json:"resource_id"`
	Details    *string   `json:"details"`
	IPAddress  *string   `json:"ip_address"`
	UserAgent  *string   `json:"user_agent"`
	CreatedAt  time.Time `json:"created_at"`
}

// AuditLogFilter narrows audit-log queries.
type AuditLogFilter struct {
	UserID   string
	Action   string
	Resource string
	Limit    int
	Offset   int
}
