package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionLogin          = "login"
	AuditActionLogout         = "logout"
	AuditActionPasswordChange = "change_password"
	AuditActionUserCreate     = "create_user"
	AuditActionUserUpdate     = "update_user"
	AuditActionUserDelete     = "delete_user"
	AuditActionGrantRole      = "grant_role"
	AuditActionUpdateRole     = "update_role"
	AuditActionRevokeRole     = "revoke_role"
	AuditActionContentCreate  = "create_content"
	AuditActionContentUpdate  = "update_content"
	AuditActionContentDelete  = "delete_content"
)

// AuditLog is one append-only audit trail record. Entries are never updated
// or deleted after creation.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	ActorID    *string   `db:"actor_id" json:"actor_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// AuditFilter captures retrieval criteria for audit entries.
type AuditFilter struct {
	ActorID  *string
	Action   string
	Resource string
	Limit    int
}
