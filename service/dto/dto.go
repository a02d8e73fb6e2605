package dto

import "time"

type Id struct {
	Id uint32 `json:"id"`
}

type NewCustomer struct {
	Phone        string `json:"phone"`
	Name         string `json:"name"`
	ReminderTime string `json:"reminder_time"`
}

type UpdateCustomer struct {
	Name         *string `json:"name"`
	ReminderTime *string `json:"reminder_time"`
	Active       *bool   `json:"active"`
}

type Customer struct {
	Id           uint32    `json:"id"`
	Phone        string    `json:"phone"`
	Name         string    `json:"name"`
	ReminderTime string    `json:"reminder_time"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DueCheckResult reports the per-recipient outcome of one due check.
type DueCheckResult struct {
	Slot    string   `json:"slot"`
	Checked int      `json:"checked"`
	Sent    []string `json:"sent"`
	Skipped []string `json:"skipped"`
	Failed  []string `json:"failed"`
}

const (
	ReconcileConfirmed = "confirmed"
	ReconcileIgnored   = "ignored"
)

type ReconcileResult struct {
	Status string `json:"status"`
	Reply  string `json:"reply,omitempty"`
}

type RecoveryResult struct {
	Recovered []string `json:"recovered"`
	Skipped   []string `json:"skipped"`
	Failed    []string `json:"failed"`
}

type EscalationResult struct {
	Checked int `json:"total_checked"`
	Sent    int `json:"escalations_sent"`
	Failed  int `json:"failed_escalations"`
	Stopped int `json:"stopped"`
}

type InboundMessage struct {
	Id         uint32    `json:"id"`
	Sender     string    `json:"sender"`
	Text       string    `json:"text"`
	Intent     string    `json:"intent"`
	ReceivedAt time.Time `json:"received_at"`
}

type Health struct {
	Status        string `json:"status"`
	InstanceState string `json:"instance_state,omitempty"`
}
