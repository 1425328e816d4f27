package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates all auth audit event types.
type EventType string

const (
	EventAdminLoginSucceeded EventType = "auth.admin.login.succeeded"
	EventAdminLoginFailed    EventType = "auth.admin.login.failed"
	EventAdminOTPIssued      EventType = "auth.admin.otp.issued"
	EventAdminOTPVerified    EventType = "auth.admin.otp.verified"
	EventUserCreated         EventType = "auth.user.created"
	EventUserUpdated         EventType = "auth.user.updated"
	EventUserDeleted         EventType = "auth.user.deleted"
	EventUserSocialLogin     EventType = "auth.user.social_login"
	EventUserKycApproved     EventType = "auth.user.kyc_approved"
	EventUserPasswordReset   EventType = "auth.user.password_reset"
)

// AggregateType enumerates the aggregate root types for outbox events.
type AggregateType string

const (
	AggregateUser  AggregateType = "user"
	AggregateAdmin AggregateType = "admin"
)

// OutboxDraft is the payload written to the event_outbox table.
type OutboxDraft struct {
	EventID       uuid.UUID       `json:"event_id"`
	AggregateType AggregateType   `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     EventType       `json:"event_type"`
	PartitionKey  string          `json:"partition_key"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// OutboxRow is an OutboxDraft plus its table sequence id, as read back by the
// outbox consumer.
type OutboxRow struct {
	SeqID int64
	OutboxDraft
}
