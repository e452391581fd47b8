package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RolePractitioner Role = "PRACTITIONER"
	RolePatient      Role = "PATIENT"
)

func (r Role) IsValid() bool {
	switch r {
	case RolePractitioner, RolePatient:
		return true
	}
	return false
}

// User is an identity owned by the directory. Appointments and patient records
// only hold its ID.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	Username     string `gorm:"column:username;type:varchar(100);uniqueIndex;not null"`
	PasswordHash string `gorm:"column:password_hash;type:varchar(255);not null"`
	Role         Role   `gorm:"column:role;type:varchar(30);not null;index"`
}

func (User) TableName() string {
	return "auth.users"
}

func (u *User) IsPractitioner() bool {
	return u.Role == RolePractitioner
}

func (u *User) IsPatient() bool {
	return u.Role == RolePatient
}

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"` // Always "Bearer"
}

type Claims struct {
	UserID   uuid.UUID `json:"sub"`
	Username string    `json:"username"`
	Role     Role      `json:"role"`
}
