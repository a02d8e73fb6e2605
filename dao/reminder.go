package dao

import (
	"time"

	"github.com/asdine/storm/v3/q"
	"github.com/medbot/pill-reminder/model"
)

type ReminderDao interface {
	//CreateUnique inserts a reminder record unless one with the same key exists.
	//A conflicting record makes it return ErrAlreadyExists without touching the db.
	CreateUnique(record *model.ReminderRecord) (uint32, error)
	//GetOneByKey returns the record with the given (customer, date, slot) key
	GetOneByKey(key string) (model.ReminderRecord, error)
	//GetLatestUnconfirmed returns the most recent unconfirmed record of the
	//customer whose date is not after maxDate
	GetLatestUnconfirmed(customerId uint32, maxDate string) (model.ReminderRecord, error)
	//Confirm sets the confirmed flag of a record. Confirming an already
	//confirmed record is a no-op and keeps the original confirmation time.
	Confirm(id uint32, confirmedAt time.Time, confirmationMsg string) error
	//GetAllByDate returns all records created for the given date
	GetAllByDate(date string) ([]model.ReminderRecord, error)
	//GetNeedingEscalation returns unconfirmed, successfully sent records whose
	//next escalation is due and whose level is below maxLevel
	GetNeedingEscalation(now time.Time, maxLevel int) ([]model.ReminderRecord, error)
	//UpdateEscalation bumps the escalation level and schedules the next one
	UpdateEscalation(id uint32, level int, nextAt time.Time) error
	//RemoveOlderThanDays removes all records older than {days}
	RemoveOlderThanDays(days int) error
}

func NewReminderDao(db Db) ReminderDao {
	return &reminderDao{db: db}
}

type reminderDao struct {
	db Db
}

func (r reminderDao) CreateUnique(record *model.ReminderRecord) (uint32, error) {
	record.Id = 0
	record.CreatedAt = time.Now()
	err := r.db.Save(record)
	return record.Id, err
}

func (r reminderDao) GetOneByKey(key string) (record model.ReminderRecord, err error) {
	err = r.db.One("Key", key, &record)
	return
}

func (r reminderDao) GetLatestUnconfirmed(customerId uint32, maxDate string) (model.ReminderRecord, error) {
	var records []model.ReminderRecord
	err := r.db.Select(
		q.Eq("CustomerId", customerId),
		q.Eq("Confirmed", false),
		q.Lte("Date", maxDate),
	).OrderBy("Id").Reverse().Limit(1).Find(&records)
	if err != nil {
		return model.ReminderRecord{}, err
	}
	return records[0], nil
}

func (r reminderDao) Confirm(id uint32, confirmedAt time.Time, confirmationMsg string) error {
	var record model.ReminderRecord
	err := r.db.One("Id", id, &record)
	if err != nil {
		return err
	}
	if record.Confirmed {
		//monotonic transition, already done
		return nil
	}
	record.Confirmed = true
	record.ConfirmedAt = confirmedAt
	record.ConfirmationMsg = confirmationMsg
	return r.db.Save(&record)
}

func (r reminderDao) GetAllByDate(date string) ([]model.ReminderRecord, error) {
	var records []model.ReminderRecord
	err := r.db.Find("Date", date, &records)
	if err == ErrNotFound {
		return nil, nil
	}
	return records, err
}

func (r reminderDao) GetNeedingEscalation(now time.Time, maxLevel int) ([]model.ReminderRecord, error) {
	var records []model.ReminderRecord
	err := r.db.Select(
		q.Eq("Confirmed", false),
		q.Eq("Outcome", model.SENT),
		q.Lte("NextEscalationAt", now),
		q.Lt("EscalationLevel", maxLevel),
	).Find(&records)
	if err == ErrNotFound {
		return nil, nil
	}
	return records, err
}

func (r reminderDao) UpdateEscalation(id uint32, level int, nextAt time.Time) error {
	var record model.ReminderRecord
	err := r.db.One("Id", id, &record)
	if err != nil {
		return err
	}
	record.EscalationLevel = level
	record.NextEscalationAt = nextAt
	return r.db.Save(&record)
}

func (r reminderDao) RemoveOlderThanDays(days int) error {
	err := r.db.Select(q.Lt("CreatedAt", time.Now().Add(-24*time.Duration(days)*time.Hour))).Delete(&model.ReminderRecord{})
	if err != nil && err != ErrNotFound {
		return err
	}
	return nil
}
