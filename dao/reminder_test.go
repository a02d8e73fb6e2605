package dao

import (
	"testing"
	"time"

	"github.com/medbot/pill-reminder/model"
	"github.com/stretchr/testify/require"
)

const (
	CUSTOMER_ID uint32 = 7
	DATE               = "2024-05-01"
	REC_SLOT           = "20:00"
)

func newRecord(date, slot string, sentAt time.Time) *model.ReminderRecord {
	return &model.ReminderRecord{
		Key:              model.RecordKey(CUSTOMER_ID, date, slot),
		CustomerId:       CUSTOMER_ID,
		Date:             date,
		Slot:             slot,
		Message:          "Time to take your pill! 💊",
		SentAt:           sentAt,
		Outcome:          model.SENT,
		NextEscalationAt: sentAt.Add(30 * time.Minute),
	}
}

func TestReminderDao_CreateUnique(t *testing.T) {
	db, cleanup := createDB(t)
	defer cleanup()
	remDao := NewReminderDao(db)

	id, err := remDao.CreateUnique(newRecord(DATE, REC_SLOT, time.Now()))
	require.NoError(t, err)
	require.True(t, id > 0)

	record, err := remDao.GetOneByKey(model.RecordKey(CUSTOMER_ID, DATE, REC_SLOT))
	require.NoError(t, err)
	require.Equal(t, model.SENT, record.Outcome)
	require.False(t, record.Confirmed)
}

func TestReminderDao_CreateUniqueConflict(t *testing.T) {
	db, cleanup := createDB(t)
	defer cleanup()
	remDao := NewReminderDao(db)

	_, err := remDao.CreateUnique(newRecord(DATE, REC_SLOT, time.Now()))
	require.NoError(t, err)

	//same (customer, date, slot) must be rejected by the unique key
	_, err = remDao.CreateUnique(newRecord(DATE, REC_SLOT, time.Now()))
	require.ErrorIs(t, err, ErrAlreadyExists)

	//a different slot on the same day is a different record
	_, err = remDao.CreateUnique(newRecord(DATE, "08:00", time.Now()))
	require.NoError(t, err)
}

func TestReminderDao_Confirm(t *testing.T) {
	db, cleanup := createDB(t)
	defer cleanup()
	remDao := NewReminderDao(db)

	id, err := remDao.CreateUnique(newRecord(DATE, REC_SLOT, time.Now()))
	require.NoError(t, err)

	confirmedAt := time.Date(2024, 5, 1, 20, 5, 0, 0, time.UTC)
	require.NoError(t, remDao.Confirm(id, confirmedAt, "yes"))

	record, err := remDao.GetOneByKey(model.RecordKey(CUSTOMER_ID, DATE, REC_SLOT))
	require.NoError(t, err)
	require.True(t, record.Confirmed)
	require.Equal(t, confirmedAt.Unix(), record.ConfirmedAt.Unix())

	//confirming again keeps the original confirmation time
	require.NoError(t, remDao.Confirm(id, confirmedAt.Add(5*time.Minute), "yes again"))

	record, err = remDao.GetOneByKey(model.RecordKey(CUSTOMER_ID, DATE, REC_SLOT))
	require.NoError(t, err)
	require.Equal(t, confirmedAt.Unix(), record.ConfirmedAt.Unix())
	require.Equal(t, "yes", record.ConfirmationMsg)
}

func TestReminderDao_GetLatestUnconfirmed(t *testing.T) {
	db, cleanup := createDB(t)
	defer cleanup()
	remDao := NewReminderDao(db)

	_, err := remDao.GetLatestUnconfirmed(CUSTOMER_ID, DATE)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = remDao.CreateUnique(newRecord("2024-04-30", REC_SLOT, time.Now()))
	require.NoError(t, err)
	_, err = remDao.CreateUnique(newRecord(DATE, REC_SLOT, time.Now()))
	require.NoError(t, err)

	//the newest outstanding record wins
	record, err := remDao.GetLatestUnconfirmed(CUSTOMER_ID, DATE)
	require.NoError(t, err)
	require.Equal(t, DATE, record.Date)

	//records dated after the message date are not eligible
	record, err = remDao.GetLatestUnconfirmed(CUSTOMER_ID, "2024-04-30")
	require.NoError(t, err)
	require.Equal(t, "2024-04-30", record.Date)

	require.NoError(t, remDao.Confirm(record.Id, time.Now(), "yes"))
	_, err = remDao.GetLatestUnconfirmed(CUSTOMER_ID, "2024-04-30")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReminderDao_GetNeedingEscalation(t *testing.T) {
	db, cleanup := createDB(t)
	defer cleanup()
	remDao := NewReminderDao(db)

	now := time.Now()

	//due for escalation
	due := newRecord(DATE, REC_SLOT, now.Add(-40*time.Minute))
	due.NextEscalationAt = now.Add(-10 * time.Minute)
	dueId, err := remDao.CreateUnique(due)
	require.NoError(t, err)

	//not due yet
	early := newRecord(DATE, "21:00", now)
	early.NextEscalationAt = now.Add(30 * time.Minute)
	_, err = remDao.CreateUnique(early)
	require.NoError(t, err)

	//failed send never escalates
	failed := newRecord(DATE, "22:00", now.Add(-40*time.Minute))
	failed.Outcome = model.FAILED
	failed.NextEscalationAt = now.Add(-10 * time.Minute)
	_, err = remDao.CreateUnique(failed)
	require.NoError(t, err)

	records, err := remDao.GetNeedingEscalation(now, 4)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, dueId, records[0].Id)

	//a record at the max level is left alone
	require.NoError(t, remDao.UpdateEscalation(dueId, 4, now.Add(-time.Minute)))
	records, err = remDao.GetNeedingEscalation(now, 4)
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestReminderDao_RemoveOlderThanDays(t *testing.T) {
	db, cleanup := createDB(t)
	defer cleanup()
	remDao := NewReminderDao(db)

	//empty db is not an error
	require.NoError(t, remDao.RemoveOlderThanDays(7))

	_, err := remDao.CreateUnique(newRecord(DATE, REC_SLOT, time.Now()))
	require.NoError(t, err)

	//nothing is old enough yet
	require.NoError(t, remDao.RemoveOlderThanDays(7))
	_, err = remDao.GetOneByKey(model.RecordKey(CUSTOMER_ID, DATE, REC_SLOT))
	require.NoError(t, err)
}
