// internal/models/user.go
package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	BaseModel
	Username     string     `json:"username" gorm:"uniqueIndex;size:50;not null"`
	FullName     string     `json:"full_name" gorm:"size:255;not null"`
	Email        string     `json:"email" gorm:"size:255"`
	PasswordHash string     `json:"-" gorm:"size:255;not null"`
	Role         Role       `json:"role" gorm:"type:varchar(32);not null;index"`
	ProvinceID   *uint      `json:"province_id" gorm:"index"`
	Status       UserStatus `json:"status" gorm:"type:varchar(20);default:'active'"`
	LastLoginAt  *time.Time `json:"last_login_at"`

	Province *Province `json:"province,omitempty" gorm:"foreignKey:ProvinceID"`
}

func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}
