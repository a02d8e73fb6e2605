package dao

import (
	"time"

	"github.com/asdine/storm/v3/q"
	"github.com/medbot/pill-reminder/model"
)

type MessageDao interface {
	//Create stores an inbound message and returns its id
	Create(sender, text, intent string, receivedAt time.Time) (uint32, error)
	//GetRecent returns up to {limit} most recent inbound messages
	GetRecent(limit int) ([]model.InboundMessage, error)
	//RemoveOlderThanDays removes all messages older than {days}
	RemoveOlderThanDays(days int) error
}

func NewMessageDao(db Db) MessageDao {
	return &messageDao{db: db}
}

type messageDao struct {
	db Db
}

func (d messageDao) Create(sender, text, intent string, receivedAt time.Time) (uint32, error) {
	msg := &model.InboundMessage{
		Sender:     sender,
		Text:       text,
		Intent:     intent,
		ReceivedAt: receivedAt,
		CreatedAt:  time.Now(),
	}
	err := d.db.Save(msg)
	return msg.Id, err
}

func (d messageDao) GetRecent(limit int) ([]model.InboundMessage, error) {
	var messages []model.InboundMessage
	err := d.db.Select().OrderBy("Id").Reverse().Limit(limit).Find(&messages)
	if err == ErrNotFound {
		return nil, nil
	}
	return messages, err
}

func (d messageDao) RemoveOlderThanDays(days int) error {
	err := d.db.Select(q.Lt("CreatedAt", time.Now().Add(-24*time.Duration(days)*time.Hour))).Delete(&model.InboundMessage{})
	if err != nil && err != ErrNotFound {
		return err
	}
	return nil
}
