package model

import (
	"time"

	"gorm.io/gorm"
)

// DailyNote is the diary entry of one calendar day. Date is the start of that day.
type DailyNote struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Date      time.Time `json:"date"`
	DateMs    int64     `gorm:"index:by_date" json:"-"`
	Content   string    `json:"content"`
	CreatedAt time.Time `gorm:"autoCreateTime:false" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false" json:"updated_at"`
}

// TableName keeps the collection name used by the rest of the app.
func (DailyNote) TableName() string {
	return "notes"
}

// BeforeSave keeps the indexed day key in sync with Date.
func (n *DailyNote) BeforeSave(*gorm.DB) error {
	n.DateMs = n.Date.UnixMilli()
	return nil
}
