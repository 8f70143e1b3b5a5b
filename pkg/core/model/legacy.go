package model

// LegacyUser is a volunteer account as it exists in the legacy admin panel
type LegacyUser struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	FirstName  string `json:"firstName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
	Phone      string `json:"phone,omitempty"`
	ApprovedAt string `json:"approvedAt,omitempty"` // raw legacy timestamp, parsed during transform
	PhotoURL   string `json:"photoUrl,omitempty"`   // may be relative to the legacy base URL
}

// LegacyEvent is a legacy event. The name is free text and often encodes the date and site,
// e.g. "Sunday 7th September WGTN".
type LegacyEvent struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Date      string `json:"date,omitempty"` // structured date field, empty when the legacy record has none
	Location  string `json:"location,omitempty"`
	Capacity  int    `json:"capacity,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// LegacySignup links a legacy user to a legacy event
type LegacySignup struct {
	ID         string `json:"id"`
	UserID     string `json:"userId"`
	EventID    string `json:"eventId"`
	Status     string `json:"status,omitempty"` // numeric code ("1".."9") or a label such as "Confirmed"
	Position   string `json:"position,omitempty"`
	CreatedAt  string `json:"createdAt,omitempty"`
	UpdatedAt  string `json:"updatedAt,omitempty"`
	CanceledAt string `json:"canceledAt,omitempty"`
}
