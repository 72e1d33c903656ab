package models

type UserRole string

const (
	UserRoleClient UserRole = "client"
	UserRoleLawyer UserRole = "lawyer"
	UserRoleAdmin  UserRole = "admin"
)

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// User is the participant directory entry. Account management lives in a
// separate surface; the messaging core only reads identity, display name,
// and role.
type User struct {
	BaseModel
	Name         string     `gorm:"not null" json:"name"`
	Email        string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"not null" json:"-"`
	Role         UserRole   `gorm:"not null;index" json:"role"`
	Status       UserStatus `gorm:"not null;default:'active'" json:"status"`
}
