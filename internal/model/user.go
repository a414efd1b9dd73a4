package model

import "time"

// User is an account registered with the service. A user is pending
// (Enabled=false, RegistrationToken set) until the emailed token is
// confirmed, after which it is active (Enabled=true, RegistrationToken nil).
type User struct {
	ID                uint      `json:"id" gorm:"primaryKey"`
	Email             string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	Password          string    `json:"-" gorm:"size:255;not null"` // bcrypt hash, never exposed
	FirstName         string    `json:"first_name" gorm:"size:255;not null"`
	LastName          string    `json:"last_name" gorm:"size:255;not null"`
	Enabled           bool      `json:"enabled" gorm:"not null;default:false"`
	RegistrationToken *string   `json:"-" gorm:"uniqueIndex;size:64"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// IsPending reports whether the user still has to confirm the registration.
func (u *User) IsPending() bool {
	return !u.Enabled && u.RegistrationToken != nil
}
