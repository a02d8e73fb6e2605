package ai

// Intent is the verdict on an inbound reply to a reminder.
type Intent int

const (
	//IntentUnrelated covers everything that is not a clear confirmation or
	//miss, including ambiguous phrasing. Ambiguity never counts as confirmed.
	IntentUnrelated Intent = iota
	IntentConfirmed
	IntentNotConfirmed
)

func (i Intent) String() string {
	switch i {
	case IntentConfirmed:
		return "CONFIRMED"
	case IntentNotConfirmed:
		return "NOT_CONFIRMED"
	default:
		return "UNRELATED"
	}
}

// Classifier decides what an inbound reply means and produces the outbound
// message texts. Implementations must never guess a confirmation.
type Classifier interface {
	//ClassifyConfirmation classifies a free-text reply to a reminder
	ClassifyConfirmation(text string) Intent
	//ReminderMessage produces the daily reminder text
	ReminderMessage() string
	//EscalationMessage produces a follow-up text for the given escalation level
	EscalationMessage(level int, name string) string
	//ReplyTo produces the response text sent back after classifying a reply
	ReplyTo(intent Intent) string
}
