package ai

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const classifySystemPrompt = `You analyze replies to daily pill reminders.
Decide whether the user confirmed taking the pill. Replies may be in Hebrew or English.
Answer strictly with JSON: {"verdict": "confirmed"} when the user clearly confirmed,
{"verdict": "not_confirmed"} when the user clearly said she missed or skipped it,
{"verdict": "unrelated"} for anything else or anything unclear.`

const reminderSystemPrompt = `You write short, funny, slightly sarcastic daily pill reminders in Hebrew,
addressed to women, with emojis, at most 2-3 sentences, varied every day.
Refer to the pill as כדור or גלולה.`

// NewOpenAiClassifier wraps the chat-completion API. Every API or parsing
// failure falls back to the template classifier, which never guesses.
func NewOpenAiClassifier(apiKey, model string) Classifier {
	return &openAiClassifier{
		client:   openai.NewClient(apiKey),
		model:    model,
		fallback: NewTemplateClassifier(),
	}
}

type openAiClassifier struct {
	client   *openai.Client
	model    string
	fallback Classifier
}

func (o *openAiClassifier) complete(system, user string, temperature float32) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		MaxTokens:   200,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (o *openAiClassifier) ClassifyConfirmation(text string) Intent {
	answer, err := o.complete(classifySystemPrompt, "User reply: "+text, 0.3)
	if err != nil || answer == "" {
		zap.L().Warn("Classification fell back to templates", zap.Error(err))
		return o.fallback.ClassifyConfirmation(text)
	}

	var verdict struct {
		Verdict string `json:"verdict"`
	}
	if err := json.Unmarshal([]byte(answer), &verdict); err != nil {
		zap.L().Warn("Unparsable classification verdict", zap.String("answer", answer))
		return o.fallback.ClassifyConfirmation(text)
	}

	switch verdict.Verdict {
	case "confirmed":
		return IntentConfirmed
	case "not_confirmed":
		return IntentNotConfirmed
	default:
		return IntentUnrelated
	}
}

func (o *openAiClassifier) ReminderMessage() string {
	answer, err := o.complete(reminderSystemPrompt, "צור תזכורת יומית לגלולה לשעה הקרובה", 0.8)
	if err != nil || answer == "" {
		return o.fallback.ReminderMessage()
	}
	return answer
}

func (o *openAiClassifier) EscalationMessage(level int, name string) string {
	//escalation texts escalate in tone, templates already do that well
	return o.fallback.EscalationMessage(level, name)
}

func (o *openAiClassifier) ReplyTo(intent Intent) string {
	return o.fallback.ReplyTo(intent)
}
