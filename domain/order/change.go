package order

import "time"

// Role is the kind of actor requesting a transition.
type Role string

// Actor roles.
const (
	RoleAdmin Role = "admin"
	RoleOwner Role = "owner"
)

// Valid reports whether the role is known.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleOwner
}

// Actor identifies who requests a transition.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// Admin returns an admin actor.
func Admin(id string) Actor {
	return Actor{ID: id, Role: RoleAdmin}
}

// Owner returns an owner actor for the given customer.
func Owner(id string) Actor {
	return Actor{ID: id, Role: RoleOwner}
}

// Owns reports whether the actor is the owner of the record.
func (a Actor) Owns(r *Record) bool {
	return a.Role == RoleOwner && a.ID != "" && r != nil && a.ID == r.OwnerID
}

// StateChange is an approved transition ready to be persisted.
type StateChange struct {
	RecordID string
	Product  Product
	From     Status
	To       Status
	Actor    Actor

	// TimestampField is derived from To. Empty when the target stamps nothing.
	TimestampField TimestampField

	// DocumentVerification is set when the transition carries a verdict.
	DocumentVerification DocumentVerification

	// RequiresEnhancedDocumentation is the cash-limit annotation computed
	// while gating the transition.
	RequiresEnhancedDocumentation bool

	// Free-text fields. A nil pointer leaves the field unchanged and an
	// empty string clears it.
	AdminNotes            *string
	ActionRequiredMessage *string
	RejectionReason       *string
}

// Patch converts the change into a record patch stamped at now.
func (c StateChange) Patch(now time.Time) Patch {
	to := c.To
	enhanced := c.RequiresEnhancedDocumentation
	p := Patch{
		Status:                        &to,
		RequiresEnhancedDocumentation: &enhanced,
		AdminNotes:                    c.AdminNotes,
		ActionRequiredMessage:         c.ActionRequiredMessage,
		RejectionReason:               c.RejectionReason,
	}
	if c.DocumentVerification != "" {
		dv := c.DocumentVerification
		p.DocumentVerification = &dv
	}
	if c.TimestampField != "" {
		p.Stamps = map[TimestampField]time.Time{c.TimestampField: now}
	}
	return p
}

// Patch is a partial update to a record. Nil fields are left untouched.
type Patch struct {
	Status                        *Status
	PaymentStage                  *PaymentStage
	AdvanceReference              *string
	BalanceReference              *string
	DocumentVerification          *DocumentVerification
	RequiresEnhancedDocumentation *bool
	AdminNotes                    *string
	ActionRequiredMessage         *string
	RejectionReason               *string

	// Stamps are applied only where the record has no value yet.
	Stamps map[TimestampField]time.Time
}

// Apply mutates r according to the patch and bumps its version.
func (p Patch) Apply(r *Record, now time.Time) {
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.PaymentStage != nil {
		r.PaymentStage = *p.PaymentStage
	}
	if p.AdvanceReference != nil {
		r.AdvanceReference = *p.AdvanceReference
	}
	if p.BalanceReference != nil {
		r.BalanceReference = *p.BalanceReference
	}
	if p.DocumentVerification != nil {
		r.DocumentVerification = *p.DocumentVerification
	}
	if p.RequiresEnhancedDocumentation != nil {
		r.RequiresEnhancedDocumentation = *p.RequiresEnhancedDocumentation
	}
	if p.AdminNotes != nil {
		r.AdminNotes = *p.AdminNotes
	}
	if p.ActionRequiredMessage != nil {
		r.ActionRequiredMessage = *p.ActionRequiredMessage
	}
	if p.RejectionReason != nil {
		r.RejectionReason = *p.RejectionReason
	}
	if len(p.Stamps) > 0 && r.Timestamps == nil {
		r.Timestamps = make(map[TimestampField]time.Time, len(p.Stamps))
	}
	for field, at := range p.Stamps {
		if _, ok := r.Timestamps[field]; !ok {
			r.Timestamps[field] = at.UTC()
		}
	}
	r.Version++
	r.UpdatedAt = now.UTC()
}
