// Package model holds the relational persistence models.
package model

import (
	"time"

	"github.com/google/uuid"
)

// UserModel mirrors the 'users' table. IDs are generated in the application.
// Token columns are nullable so cleared tokens never collide in their indexes.
type UserModel struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Username            string     `gorm:"type:varchar(50);uniqueIndex;not null"`
	Email               string     `gorm:"type:varchar(255);uniqueIndex;not null"`
	Phone               string     `gorm:"type:varchar(15);uniqueIndex;not null"`
	PasswordHash        string     `gorm:"type:varchar(255);not null"`
	ProfileImageURL     string     `gorm:"type:text"`
	JoinedAt            time.Time  `gorm:"not null"`
	Verified            bool       `gorm:"not null"`
	VerificationToken   *string    `gorm:"type:varchar(64);index"`
	ResetToken          *string    `gorm:"type:varchar(64);index"`
	ResetTokenExpiresAt *time.Time `gorm:"type:timestamptz"`
}

// TableName explicitly sets the table name for GORM.
func (UserModel) TableName() string {
	return "users"
}
