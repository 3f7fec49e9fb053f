package types

import (
	"time"

	"github.com/google/uuid"
)

type IntentKind string

const (
	IntentSingle IntentKind = "single"
	IntentBulk   IntentKind = "bulk"
)

// ScheduledIntent wraps a pending transfer payload tagged with its execution
// time. Exactly one of Single or Bulk is set, per Kind. The intent exists only
// until it executes or is cancelled.
type ScheduledIntent struct {
	ID          uuid.UUID              `db:"id" json:"id"`
	Kind        IntentKind             `db:"kind" json:"kind"`
	Single      *CreateTransferRequest `json:"single,omitempty"`
	Bulk        *CreateBulkRequest     `json:"bulk,omitempty"`
	ScheduledAt time.Time              `db:"scheduled_at" json:"scheduled_at"`
	CreatedAt   time.Time              `db:"created_at" json:"created_at"`
}
