package whatsapp

import (
	"time"

	"github.com/cskr/pubsub"
	"github.com/medbot/pill-reminder/log"
)

const (
	INBOUND = "inbound"
)

// InboundText is a text reply received from a customer, published on the
// INBOUND topic for whoever consumes confirmations.
type InboundText struct {
	Sender     string
	Text       string
	ReceivedAt time.Time
}

type Poller interface {
	Start()
	Stop()
	Subscribe() chan interface{}
}

type poller struct {
	client   Client
	ps       *pubsub.PubSub
	interval time.Duration
	done     chan struct{}
}

func NewPoller(client Client, interval time.Duration) Poller {
	return &poller{
		client:   client,
		ps:       pubsub.New(100),
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (p *poller) Start() {
	go p.pollNotifications()
}

func (p *poller) Stop() {
	close(p.done)
}

func (p *poller) Subscribe() chan interface{} {
	return p.ps.Sub(INBOUND)
}

func (p *poller) pollNotifications() {
	for {
		select {
		case <-p.done:
			return
		default:
		}

		notification, err := p.client.ReceiveNotification()
		if err != nil {
			log.WarnIfErr("polling notifications", err)
			time.Sleep(p.interval)
			continue
		}
		if notification == nil {
			//queue drained, wait for the next batch
			time.Sleep(p.interval)
			continue
		}

		p.dispatch(notification)

		err = p.client.DeleteNotification(notification.ReceiptId)
		log.WarnIfErr("acknowledging notification", err)
	}
}

func (p *poller) dispatch(notification *Notification) {
	text := notification.Body.MessageData.Text()
	if text == "" {
		//non-text notification (delivery status, media etc), nothing to reconcile
		return
	}

	receivedAt := time.Unix(notification.Body.Timestamp, 0)
	if notification.Body.Timestamp == 0 {
		receivedAt = time.Now()
	}

	p.ps.Pub(InboundText{
		Sender:     notification.Body.SenderData.Phone(),
		Text:       text,
		ReceivedAt: receivedAt,
	}, INBOUND)
}
