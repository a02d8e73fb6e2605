package dao

import (
	"time"

	"github.com/asdine/storm/v3/q"
	"github.com/medbot/pill-reminder/model"
)

type CustomerDao interface {
	//Create creates a customer record and returns its id
	Create(phone, name, reminderTime string) (uint32, error)
	//GetOneById returns a customer by id
	GetOneById(id uint32) (model.Customer, error)
	//GetOneByPhone returns a customer by normalized phone number
	GetOneByPhone(phone string) (model.Customer, error)
	//GetAllActive returns all customers with the active flag set
	GetAllActive() ([]model.Customer, error)
	//GetActiveByReminderTime returns active customers scheduled for the given HH:MM slot
	GetActiveByReminderTime(slot string) ([]model.Customer, error)
	//GetAll returns all customers, active or not
	GetAll() ([]model.Customer, error)
	//Update replaces the stored customer record
	Update(customer model.Customer) error
}

func NewCustomerDao(db Db) CustomerDao {
	return &customerDao{db: db}
}

type customerDao struct {
	db Db
}

func (c customerDao) Create(phone, name, reminderTime string) (uint32, error) {
	now := time.Now()
	customer := &model.Customer{
		Phone:        phone,
		Name:         name,
		ReminderTime: reminderTime,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := c.db.Save(customer)
	return customer.Id, err
}

func (c customerDao) GetOneById(id uint32) (customer model.Customer, err error) {
	err = c.db.One("Id", id, &customer)
	return
}

func (c customerDao) GetOneByPhone(phone string) (customer model.Customer, err error) {
	err = c.db.One("Phone", phone, &customer)
	return
}

func (c customerDao) GetAllActive() ([]model.Customer, error) {
	var customers []model.Customer
	err := c.db.Select(q.Eq("Active", true)).Find(&customers)
	if err == ErrNotFound {
		return nil, nil
	}
	return customers, err
}

func (c customerDao) GetActiveByReminderTime(slot string) ([]model.Customer, error) {
	var customers []model.Customer
	err := c.db.Select(q.Eq("Active", true), q.Eq("ReminderTime", slot)).Find(&customers)
	if err == ErrNotFound {
		return nil, nil
	}
	return customers, err
}

func (c customerDao) GetAll() (customers []model.Customer, err error) {
	err = c.db.All(&customers)
	return
}

func (c customerDao) Update(customer model.Customer) error {
	customer.UpdatedAt = time.Now()
	//Save replaces the whole record so cleared flags are persisted too
	return c.db.Save(&customer)
}
