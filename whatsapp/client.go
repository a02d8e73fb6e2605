package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

type RateLimiter interface {
	// Wait blocks until the limiter permits an event to happen.
	Wait(ctx context.Context) error
}

// SenderData identifies the author of an inbound notification.
type SenderData struct {
	ChatId     string `json:"chatId"`
	SenderName string `json:"senderName"`
}

// Phone returns the bare phone number of the sender (chat id without the suffix).
func (s SenderData) Phone() string {
	if i := strings.Index(s.ChatId, "@"); i >= 0 {
		return s.ChatId[:i]
	}
	return s.ChatId
}

type TextMessageData struct {
	TextMessage string `json:"textMessage"`
}

type ExtendedTextMessageData struct {
	Text string `json:"text"`
}

type MessageData struct {
	TypeMessage             string                   `json:"typeMessage"`
	TextMessageData         *TextMessageData         `json:"textMessageData,omitempty"`
	ExtendedTextMessageData *ExtendedTextMessageData `json:"extendedTextMessageData,omitempty"`
}

// Text extracts the message body from whichever envelope variant carries it.
func (m MessageData) Text() string {
	if m.TextMessageData != nil {
		return m.TextMessageData.TextMessage
	}
	if m.ExtendedTextMessageData != nil {
		return m.ExtendedTextMessageData.Text
	}
	return ""
}

// NotificationBody is the webhook payload of the gateway, also returned by
// the polling endpoint wrapped in a Notification.
type NotificationBody struct {
	TypeWebhook string      `json:"typeWebhook"`
	Timestamp   int64       `json:"timestamp"`
	SenderData  SenderData  `json:"senderData"`
	MessageData MessageData `json:"messageData"`
}

type Notification struct {
	ReceiptId int64            `json:"receiptId"`
	Body      NotificationBody `json:"body"`
}

type Client interface {
	//SendMessage sends a text message to the phone number (digits, country code, no plus)
	SendMessage(phone, text string) error
	//ReceiveNotification polls one inbound notification, nil when the queue is empty
	ReceiveNotification() (*Notification, error)
	//DeleteNotification acknowledges a polled notification so it is not redelivered
	DeleteNotification(receiptId int64) error
	//GetStateInstance returns the state of the gateway instance (e.g. "authorized")
	GetStateInstance() (string, error)
}

type client struct {
	baseUrl     string
	instanceId  string
	token       string
	httpClient  *http.Client
	rateLimiter RateLimiter
}

func NewClient(baseUrl, instanceId, token string, tps int) Client {
	return &client{
		baseUrl:     strings.TrimRight(baseUrl, "/"),
		instanceId:  instanceId,
		token:       token,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		rateLimiter: rate.NewLimiter(rate.Limit(tps), 1),
	}
}

func (c *client) url(method string) string {
	return fmt.Sprintf("%s/waInstance%s/%s/%s", c.baseUrl, c.instanceId, method, c.token)
}

func (c *client) SendMessage(phone, text string) error {
	c.rateLimiter.Wait(context.Background())

	payload, err := json.Marshal(map[string]string{
		"chatId":  phone + "@c.us",
		"message": text,
	})
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Post(c.url("sendMessage"), "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("send message: gateway returned %s: %s", resp.Status, string(body))
	}
	return nil
}

func (c *client) ReceiveNotification() (*Notification, error) {
	resp, err := c.httpClient.Get(c.url("receiveNotification"))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("receive notification: gateway returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	//the gateway returns the literal null when the queue is empty
	if len(bytes.TrimSpace(body)) == 0 || string(bytes.TrimSpace(body)) == "null" {
		return nil, nil
	}

	var notification Notification
	if err := json.Unmarshal(body, &notification); err != nil {
		return nil, err
	}
	return &notification, nil
}

func (c *client) DeleteNotification(receiptId int64) error {
	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/%d", c.url("deleteNotification"), receiptId), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("delete notification: gateway returned %s", resp.Status)
	}
	return nil
}

func (c *client) GetStateInstance() (string, error) {
	resp, err := c.httpClient.Get(c.url("getStateInstance"))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("get state: gateway returned %s", resp.Status)
	}

	var state struct {
		StateInstance string `json:"stateInstance"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return "", err
	}
	return state.StateInstance, nil
}
