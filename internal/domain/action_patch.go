package domain

import "math"

// ActionPatch holds the fields of a partial action update. Nil fields are
// left untouched; an empty Owner or DueDate clears the value.
type ActionPatch struct {
	Title      *string       `json:"title,omitempty"`
	Owner      *string       `json:"owner,omitempty"`
	DueDate    *string       `json:"due_date,omitempty"`
	Priority   *Priority     `json:"priority,omitempty"`
	Confidence *float64      `json:"confidence,omitempty"`
	Status     *ActionStatus `json:"status,omitempty"`
}

// IsEmpty reports whether the patch changes nothing
func (p ActionPatch) IsEmpty() bool {
	return p.Title == nil && p.Owner == nil && p.DueDate == nil &&
		p.Priority == nil && p.Confidence == nil && p.Status == nil
}

// Validate rejects values that would break action invariants
func (p ActionPatch) Validate() error {
	if p.Title != nil && *p.Title == "" {
		return NewDomainError(ErrCodeValidation, "action title cannot be empty")
	}
	if p.DueDate != nil && *p.DueDate != "" && !IsValidDueDate(*p.DueDate) {
		return NewDomainError(ErrCodeValidation, "due_date must be YYYY-MM-DD")
	}
	if p.Priority != nil && !p.Priority.IsValid() {
		return NewDomainError(ErrCodeValidation, "priority must be one of low, med, high")
	}
	if p.Confidence != nil && (math.IsNaN(*p.Confidence) || math.IsInf(*p.Confidence, 0)) {
		return NewDomainError(ErrCodeValidation, "confidence must be a finite number")
	}
	if p.Status != nil && !p.Status.IsValid() {
		return NewDomainError(ErrCodeValidation, "status must be open or done")
	}
	return nil
}

// Apply merges the patch into a, overwriting only the given fields
func (p ActionPatch) Apply(a *ActionItem) {
	if p.Title != nil {
		a.Title = *p.Title
	}
	if p.Owner != nil {
		a.Owner = optional(*p.Owner)
	}
	if p.DueDate != nil {
		a.DueDate = optional(*p.DueDate)
	}
	if p.Priority != nil {
		a.Priority = *p.Priority
	}
	if p.Confidence != nil {
		a.Confidence = math.Max(0, math.Min(1, *p.Confidence))
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
