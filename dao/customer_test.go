package dao

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	PHONE1 = "972501111111"
	PHONE2 = "972502222222"
	SLOT   = "20:00"
)

func TestCustomerDao_Create(t *testing.T) {
	db, cleanup := createDB(t)
	defer cleanup()
	custDao := NewCustomerDao(db)

	id, err := custDao.Create(PHONE1, "Dana", SLOT)

	require.NoError(t, err)
	require.True(t, id > 0)

	customer, err := custDao.GetOneById(id)
	require.NoError(t, err)
	require.Equal(t, PHONE1, customer.Phone)
	require.Equal(t, SLOT, customer.ReminderTime)
	require.True(t, customer.Active)
}

func TestCustomerDao_CreateDuplicatePhone(t *testing.T) {
	db, cleanup := createDB(t)
	defer cleanup()
	custDao := NewCustomerDao(db)

	_, err := custDao.Create(PHONE1, "Dana", SLOT)
	require.NoError(t, err)

	_, err = custDao.Create(PHONE1, "Other", "21:00")
	require.ErrorIs(t, err, ErrAlreadyExists)
}

func TestCustomerDao_GetOneByPhone(t *testing.T) {
	db, cleanup := createDB(t)
	defer cleanup()
	custDao := NewCustomerDao(db)

	_, err := custDao.Create(PHONE1, "Dana", SLOT)
	require.NoError(t, err)

	customer, err := custDao.GetOneByPhone(PHONE1)
	require.NoError(t, err)
	require.Equal(t, "Dana", customer.Name)

	_, err = custDao.GetOneByPhone(PHONE2)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCustomerDao_GetActiveByReminderTime(t *testing.T) {
	db, cleanup := createDB(t)
	defer cleanup()
	custDao := NewCustomerDao(db)

	id1, err := custDao.Create(PHONE1, "Dana", SLOT)
	require.NoError(t, err)
	_, err = custDao.Create(PHONE2, "Noa", "21:30")
	require.NoError(t, err)

	customers, err := custDao.GetActiveByReminderTime(SLOT)
	require.NoError(t, err)
	require.Len(t, customers, 1)
	require.Equal(t, PHONE1, customers[0].Phone)

	//deactivated customers drop out of the slot lookup
	customer, err := custDao.GetOneById(id1)
	require.NoError(t, err)
	customer.Active = false
	require.NoError(t, custDao.Update(customer))

	customers, err = custDao.GetActiveByReminderTime(SLOT)
	require.NoError(t, err)
	require.Empty(t, customers)
}

func TestCustomerDao_GetAllActive(t *testing.T) {
	db, cleanup := createDB(t)
	defer cleanup()
	custDao := NewCustomerDao(db)

	customers, err := custDao.GetAllActive()
	require.NoError(t, err)
	require.Empty(t, customers)

	_, err = custDao.Create(PHONE1, "Dana", SLOT)
	require.NoError(t, err)
	id2, err := custDao.Create(PHONE2, "Noa", SLOT)
	require.NoError(t, err)

	customer, err := custDao.GetOneById(id2)
	require.NoError(t, err)
	customer.Active = false
	require.NoError(t, custDao.Update(customer))

	customers, err = custDao.GetAllActive()
	require.NoError(t, err)
	require.Len(t, customers, 1)
	require.Equal(t, PHONE1, customers[0].Phone)

	all, err := custDao.GetAll()
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestCustomerDao_UpdatePersistsClearedFlag(t *testing.T) {
	db, cleanup := createDB(t)
	defer cleanup()
	custDao := NewCustomerDao(db)

	id, err := custDao.Create(PHONE1, "Dana", SLOT)
	require.NoError(t, err)

	customer, err := custDao.GetOneById(id)
	require.NoError(t, err)
	customer.Active = false
	require.NoError(t, custDao.Update(customer))

	reloaded, err := custDao.GetOneById(id)
	require.NoError(t, err)
	require.False(t, reloaded.Active)
	require.True(t, reloaded.UpdatedAt.After(reloaded.CreatedAt) || reloaded.UpdatedAt.Equal(reloaded.CreatedAt))
}
