package registration

import "time"

// Status is the registration lifecycle state. Cancelled stays in the
// vocabulary for store filters even though unregister physically deletes
// the row.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// Registration links a volunteer to an event.
type Registration struct {
	ID      string
	EventID string
	UserID  string
	// Notes is the volunteer's free-text message to the organizer,
	// captured at registration time.
	Notes  string
	Status Status
	// DecidedBy is the admin or organizer who approved or rejected.
	DecidedBy string
	DecidedAt *time.Time
	// Completed records attendance on an approved registration. The flag
	// is monotonic: once set it is never cleared, and the status stays
	// approved so the row keeps counting against event capacity.
	Completed   bool
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Blocks reports whether the registration occupies the volunteer's
// one-registration-per-event slot. Every row but a cancelled one does:
// a rejected volunteer must withdraw the rejected row before registering
// again.
func (r *Registration) Blocks() bool {
	return r.Status != StatusCancelled
}
