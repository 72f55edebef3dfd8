package models

import "time"

// DeliveryMode is how a reminder was registered with the alarm layer
type DeliveryMode string

const (
	DeliveryExact      DeliveryMode = "exact"
	DeliveryBestEffort DeliveryMode = "best_effort"
)

// ReminderPayload is carried with an alarm and handed back when it fires
type ReminderPayload struct {
	ActivityID       string `json:"activityId"`
	UserID           string `json:"userId"`
	ActivityName     string `json:"activityName"`
	ActivityTime     string `json:"activityTime"`
	PictogramID      int    `json:"pictogramId"`
	PictogramKeyword string `json:"pictogramKeyword"`
}

// Reminder is a pending alarm, at most one per activity
type Reminder struct {
	Key       string
	FireAt    time.Time
	Mode      DeliveryMode
	Payload   ReminderPayload
	CreatedAt time.Time
}
