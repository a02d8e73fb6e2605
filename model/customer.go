package model

import "time"

// DefaultReminderTime is the slot assigned to customers that do not pick one.
const DefaultReminderTime = "20:00"

type Customer struct {
	Id           uint32 `storm:"id,increment"`
	Phone        string `storm:"unique"`
	Name         string
	ReminderTime string `storm:"index"`
	Active       bool   `storm:"index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
