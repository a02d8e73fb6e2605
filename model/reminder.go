package model

import (
	"fmt"
	"time"
)

const (
	//delivery outcomes
	SENT   string = "SENT"
	FAILED        = "FAILED"

	//layouts of the composite key parts
	DateLayout = "2006-01-02"
	SlotLayout = "15:04"
)

// ReminderRecord tracks one reminder sent to one customer on one day for one
// slot. Key carries the uniqueness constraint that makes record creation an
// insert-if-absent; concurrent senders racing on the same (customer, date,
// slot) lose to the first insert.
type ReminderRecord struct {
	Id               uint32 `storm:"id,increment"`
	Key              string `storm:"unique"`
	CustomerId       uint32 `storm:"index"`
	Date             string `storm:"index"`
	Slot             string
	Message          string
	SentAt           time.Time
	Outcome          string
	Confirmed        bool `storm:"index"`
	ConfirmedAt      time.Time
	ConfirmationMsg  string
	EscalationLevel  int
	NextEscalationAt time.Time
	CreatedAt        time.Time `storm:"index"`
}

// RecordKey builds the unique key of a ReminderRecord.
func RecordKey(customerId uint32, date, slot string) string {
	return fmt.Sprintf("%d|%s|%s", customerId, date, slot)
}
