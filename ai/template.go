package ai

import "strings"

var (
	confirmPatterns = []string{
		"taken", "yes", "done", "ok", "✅", "took", "swallowed", "consumed",
		"לקחתי", "כן", "סיימתי", "אוקיי", "לקחת", "בלעתי", "גמרתי",
	}
	missedPatterns = []string{
		"missed", "no", "forgot", "❌", "didn't", "havent", "haven't", "forgotten",
		"החמצתי", "לא", "שכחתי", "לא לקחתי", "לא לקחת", "שכחת",
	}
)

const (
	defaultReminder   = "Time to take your pill! 💊"
	confirmedReply    = "מעולה! רשמתי שלקחת את הגלולה. תישארי בריאה! 💪"
	notConfirmedReply = "אל דאגה! קחי אותה בהקדם האפשרי. הבריאות שלך חשובה! 🏥"
	unrelatedReply    = "לא הבנתי את זה. תכתבי 'לקחתי' אם לקחת או 'החמצתי' אם החמצת."
)

var escalationTemplates = map[int]string{
	1: "היי! עדיין לא לקחת את הכדור? ⏰💊\nזכרי - זה חשוב לבריאות שלך!",
	2: "אני מחכה... הכדור שלך עדיין מחכה! 😤💊\nזה כבר שעה - אל תשכחי!",
	3: "זה כבר שעה וחצי! הכדור לא יקח את עצמו! 😠💊\nבואי, זה רק דקה אחת!",
	4: "שתי שעות! זה לא משחק! קחי את הכדור עכשיו! 😡💊\nזה חשוב מדי בשביל לדחות!",
}

// NewTemplateClassifier returns a keyword-matching classifier with fixed
// message texts. It also backs the OpenAI classifier as its fallback.
func NewTemplateClassifier() Classifier {
	return &templateClassifier{}
}

type templateClassifier struct {
}

func (t templateClassifier) ClassifyConfirmation(text string) Intent {
	lowered := strings.ToLower(strings.TrimSpace(text))
	if lowered == "" {
		return IntentUnrelated
	}
	//missed patterns first: "לא לקחתי" contains the confirm pattern "לקחתי"
	for _, pattern := range missedPatterns {
		if strings.Contains(lowered, pattern) {
			return IntentNotConfirmed
		}
	}
	for _, pattern := range confirmPatterns {
		if strings.Contains(lowered, pattern) {
			return IntentConfirmed
		}
	}
	return IntentUnrelated
}

func (t templateClassifier) ReminderMessage() string {
	return defaultReminder
}

func (t templateClassifier) EscalationMessage(level int, name string) string {
	msg, ok := escalationTemplates[level]
	if !ok {
		msg = escalationTemplates[1]
	}
	if name != "" {
		return name + "! " + msg
	}
	return msg
}

func (t templateClassifier) ReplyTo(intent Intent) string {
	switch intent {
	case IntentConfirmed:
		return confirmedReply
	case IntentNotConfirmed:
		return notConfirmedReply
	default:
		return unrelatedReply
	}
}
