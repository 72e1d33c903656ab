package models

type CaseStatus string

const (
	CaseStatusPending  CaseStatus = "pending"
	CaseStatusApproved CaseStatus = "approved"
	CaseStatusClosed   CaseStatus = "closed"
)

// Case binds one client to one lawyer. The messaging core consumes its
// lifecycle signals: approval opens the chat room, tracking updates notify
// the client, deletion cascades room, messages, and notifications.
type Case struct {
	BaseModel
	ClientID    string     `gorm:"type:uuid;not null;index" json:"client_id"`
	LawyerID    string     `gorm:"type:uuid;not null;index" json:"lawyer_id"`
	Title       string     `gorm:"not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Status      CaseStatus `gorm:"not null;default:'pending'" json:"status"`
}

// CaseUpdate is a tracking entry appended by the lawyer. Each one triggers
// a notification to the case's client.
type CaseUpdate struct {
	BaseModel
	CaseID   string `gorm:"type:uuid;not null;index" json:"case_id"`
	AuthorID string `gorm:"type:uuid;not null" json:"author_id"`
	Body     string `gorm:"type:text;not null" json:"body"`
}
