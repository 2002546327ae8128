package models

import (
	"time"
)

// ActionRecord is the persisted row of one turn-on/turn-off attempt
type ActionRecord struct {
	Seq           uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	ID            string    `gorm:"size:36;uniqueIndex;not null" json:"id"`
	Timestamp     time.Time `gorm:"index;not null" json:"timestamp"`
	AppName       string    `gorm:"size:100;index;not null" json:"app_name"`
	Action        string    `gorm:"size:16;not null" json:"action"`
	Success       bool      `gorm:"not null" json:"success"`
	Error         string    `json:"error,omitempty"`
	PreviousState string    `gorm:"size:16" json:"previous_state,omitempty"`
	NewState      string    `gorm:"size:16" json:"new_state,omitempty"`
	Trigger       string    `gorm:"size:16;default:scheduled" json:"trigger"`
}

// TableName returns the table name for ActionRecord model
func (ActionRecord) TableName() string {
	return "action_records"
}
