package models

import "time"

// User represents a registered account. Accounts are disabled through
// IsActive; a deleted row is gone, so its username and email are free again.
type User struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Username    string     `gorm:"uniqueIndex;size:150;not null" json:"username"`
	Email       string     `gorm:"uniqueIndex;size:254;not null" json:"email"` // stored lower-cased
	Password    string     `gorm:"size:255" json:"-"`                          // bcrypt hash
	Role        Role       `gorm:"size:20;default:musician;index" json:"role"`
	Bio         string     `gorm:"type:text" json:"bio"`
	Location    string     `gorm:"size:100" json:"location"`
	Instruments StringList `gorm:"type:text" json:"instruments"`
	Genres      StringList `gorm:"type:text" json:"genres"`
	IsActive    bool       `gorm:"default:true" json:"is_active"`
	LastLogin   *time.Time `json:"last_login"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (User) TableName() string { return "users" }

func (u *User) InstrumentLabels() []string { return Instruments.Labels(u.Instruments) }
func (u *User) GenreLabels() []string      { return Genres.Labels(u.Genres) }
