package model

import "time"

const (
	//classified intents of inbound messages
	INTENT_CONFIRMED     string = "CONFIRMED"
	INTENT_NOT_CONFIRMED        = "NOT_CONFIRMED"
	INTENT_UNRELATED            = "UNRELATED"
)

// InboundMessage is the audit log of replies received from customers.
type InboundMessage struct {
	Id         uint32 `storm:"id,increment"`
	Sender     string `storm:"index"`
	Text       string
	Intent     string
	ReceivedAt time.Time
	CreatedAt  time.Time `storm:"index"`
}
