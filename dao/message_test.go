package dao

import (
	"testing"
	"time"

	"github.com/medbot/pill-reminder/model"
	"github.com/stretchr/testify/require"
)

func TestMessageDao_Create(t *testing.T) {
	db, cleanup := createDB(t)
	defer cleanup()
	msgDao := NewMessageDao(db)

	id, err := msgDao.Create(PHONE1, "yes", model.INTENT_CONFIRMED, time.Now())

	require.NoError(t, err)
	require.True(t, id > 0)
}

func TestMessageDao_GetRecent(t *testing.T) {
	db, cleanup := createDB(t)
	defer cleanup()
	msgDao := NewMessageDao(db)

	messages, err := msgDao.GetRecent(10)
	require.NoError(t, err)
	require.Empty(t, messages)

	_, err = msgDao.Create(PHONE1, "yes", model.INTENT_CONFIRMED, time.Now())
	require.NoError(t, err)
	_, err = msgDao.Create(PHONE2, "what?", model.INTENT_UNRELATED, time.Now())
	require.NoError(t, err)

	messages, err = msgDao.GetRecent(10)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	//newest first
	require.Equal(t, PHONE2, messages[0].Sender)

	messages, err = msgDao.GetRecent(1)
	require.NoError(t, err)
	require.Len(t, messages, 1)
}

func TestMessageDao_RemoveOlderThanDays(t *testing.T) {
	db, cleanup := createDB(t)
	defer cleanup()
	msgDao := NewMessageDao(db)

	require.NoError(t, msgDao.RemoveOlderThanDays(7))

	_, err := msgDao.Create(PHONE1, "yes", model.INTENT_CONFIRMED, time.Now())
	require.NoError(t, err)

	require.NoError(t, msgDao.RemoveOlderThanDays(7))

	messages, err := msgDao.GetRecent(10)
	require.NoError(t, err)
	require.Len(t, messages, 1)
}
