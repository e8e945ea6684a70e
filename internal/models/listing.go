package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Listing is a band's posted opportunity
type Listing struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	Title             string     `gorm:"size:200;not null" json:"title"`
	BandName          string     `gorm:"size:100;not null" json:"band_name"`
	Description       string     `gorm:"type:text;not null" json:"description"`
	InstrumentsNeeded StringList `gorm:"type:text" json:"instruments_needed"`
	Genres            StringList `gorm:"type:text" json:"genres"`
	InstrumentCount   int        `gorm:"not null;default:0;index" json:"instrument_count"` // kept in sync by BeforeSave
	Location          string     `gorm:"size:100" json:"location"`
	IsActive          bool       `gorm:"index" json:"is_active"`
	BandAdminID       uint       `gorm:"index;not null" json:"band_admin_id"`
	BandAdmin         *User      `gorm:"foreignKey:BandAdminID;constraint:OnDelete:CASCADE" json:"band_admin,omitempty"`
	CreatedAt         time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (Listing) TableName() string { return "listings" }

func (l *Listing) BeforeSave(tx *gorm.DB) error {
	l.InstrumentCount = len(l.InstrumentsNeeded)
	return nil
}

// PostedDisplay renders e.g. "Posted Jan 15, 2024".
func (l *Listing) PostedDisplay() string {
	return fmt.Sprintf("Posted %s", l.CreatedAt.Format("Jan 02, 2006"))
}

func (l *Listing) InstrumentLabels() []string { return Instruments.Labels(l.InstrumentsNeeded) }
func (l *Listing) GenreLabels() []string      { return Genres.Labels(l.Genres) }
