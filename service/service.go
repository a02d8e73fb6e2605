package service

import (
	"errors"
	"time"

	"github.com/medbot/pill-reminder/ai"
	"github.com/medbot/pill-reminder/dao"
	"github.com/medbot/pill-reminder/model"
	"github.com/medbot/pill-reminder/service/dto"
	"github.com/medbot/pill-reminder/util"
	"github.com/medbot/pill-reminder/whatsapp"
	"go.uber.org/zap"
)

const (
	//escalations go out every 30 minutes, at most 4 of them, and both
	//escalation and missed-slot recovery give up 2 hours past the slot
	escalationInterval = 30 * time.Minute
	maxEscalations     = 4
	slotWindow         = 2 * time.Hour
)

type InvalidPayloadErr struct {
	message string
}

func (e *InvalidPayloadErr) Error() string {
	return e.message
}

func NewInvalidPayloadError(msg string) *InvalidPayloadErr {
	return &InvalidPayloadErr{message: msg}
}

type Service interface {
	//RunDueCheck resolves the due set for now and delivers to every member.
	//Safe to call repeatedly within the same minute and concurrently with
	//itself; duplicates are suppressed by the record uniqueness constraint.
	RunDueCheck(now time.Time) (dto.DueCheckResult, error)
	//Reconcile classifies an inbound reply and, on a confirmation, marks the
	//latest outstanding reminder of the sender as confirmed
	Reconcile(phone, text string, receivedAt time.Time) (dto.ReconcileResult, error)
	//HandleInbound reconciles a reply and sends the response text back
	HandleInbound(phone, text string, receivedAt time.Time) (dto.ReconcileResult, error)
	//RecoverMissed backfills slots that were due today but have no record at all
	RecoverMissed(now time.Time) (dto.RecoveryResult, error)
	//CheckEscalations sends follow-ups for unconfirmed reminders that are due one
	CheckEscalations(now time.Time) (dto.EscalationResult, error)

	AddCustomer(customer dto.NewCustomer) (dto.Id, error)
	UpdateCustomer(id uint32, update dto.UpdateCustomer) (dto.Customer, error)
	DeactivateCustomer(id uint32) error
	GetCustomers(activeOnly bool) ([]dto.Customer, error)
	//GetRecentMessages returns the newest inbound replies, newest first
	GetRecentMessages(limit int) ([]dto.InboundMessage, error)
	Health() dto.Health

	//RunSchedule drives due checks, recovery and escalations from a local
	//ticker until stop is closed. The remote HTTP trigger is the other caller
	//of the same operations; both may fire at the same wall-clock moment.
	RunSchedule(interval time.Duration, stop chan struct{})
	//ListenInbound consumes replies published by the notification poller
	ListenInbound(sub chan interface{})
}

type service struct {
	sender          whatsapp.Client
	classifier      ai.Classifier
	customerDao     dao.CustomerDao
	reminderDao     dao.ReminderDao
	messageDao      dao.MessageDao
	loc             *time.Location
	statusStoreDays int
}

func NewService(sender whatsapp.Client, classifier ai.Classifier, customerDao dao.CustomerDao,
	reminderDao dao.ReminderDao, messageDao dao.MessageDao, loc *time.Location, statusStoreDays int) Service {

	service := &service{
		sender:          sender,
		classifier:      classifier,
		customerDao:     customerDao,
		reminderDao:     reminderDao,
		messageDao:      messageDao,
		loc:             loc,
		statusStoreDays: statusStoreDays,
	}

	go service.CleanupDb()

	return service
}

func (s *service) CleanupDb() {
	for {
		err := s.reminderDao.RemoveOlderThanDays(s.statusStoreDays)
		if err != nil {
			zap.L().Warn("Error cleaning up reminder records", zap.Error(err))
		}
		err = s.messageDao.RemoveOlderThanDays(s.statusStoreDays)
		if err != nil {
			zap.L().Warn("Error cleaning up inbound messages", zap.Error(err))
		}
		time.Sleep(time.Hour)
	}
}

func (s *service) RunDueCheck(now time.Time) (dto.DueCheckResult, error) {
	now = now.In(s.loc)
	slot := now.Format(model.SlotLayout)
	date := now.Format(model.DateLayout)

	result := dto.DueCheckResult{Slot: slot}

	customers, err := s.customerDao.GetActiveByReminderTime(slot)
	if err != nil {
		return result, err
	}
	result.Checked = len(customers)

	for _, customer := range customers {
		//read-only due-set filter; the insert below is the real arbiter
		_, err := s.reminderDao.GetOneByKey(model.RecordKey(customer.Id, date, slot))
		if err == nil {
			result.Skipped = append(result.Skipped, customer.Phone)
			continue
		}
		if !errors.Is(err, dao.ErrNotFound) {
			zap.L().Error("Error reading reminder record", zap.Error(err))
			result.Failed = append(result.Failed, customer.Phone)
			continue
		}

		switch s.deliver(customer, date, slot, now) {
		case model.SENT:
			result.Sent = append(result.Sent, customer.Phone)
		case model.FAILED:
			result.Failed = append(result.Failed, customer.Phone)
		default:
			result.Skipped = append(result.Skipped, customer.Phone)
		}
	}

	return result, nil
}

// deliver sends the reminder and records the attempt with an insert-if-absent.
// Returns SENT, FAILED, or "" when a concurrent delivery won the insert.
func (s *service) deliver(customer model.Customer, date, slot string, now time.Time) string {
	text := s.classifier.ReminderMessage()

	outcome := model.SENT
	if err := s.sender.SendMessage(customer.Phone, text); err != nil {
		zap.L().Warn("Reminder send failed", zap.String("phone", customer.Phone), zap.Error(err))
		outcome = model.FAILED
	}

	_, err := s.reminderDao.CreateUnique(&model.ReminderRecord{
		Key:              model.RecordKey(customer.Id, date, slot),
		CustomerId:       customer.Id,
		Date:             date,
		Slot:             slot,
		Message:          text,
		SentAt:           now,
		Outcome:          outcome,
		NextEscalationAt: now.Add(escalationInterval),
	})
	if errors.Is(err, dao.ErrAlreadyExists) {
		//duplicate suppressed: another trigger recorded this slot first
		zap.L().Info("Duplicate delivery suppressed", zap.String("phone", customer.Phone), zap.String("slot", slot))
		return ""
	}
	if err != nil {
		zap.L().Error("Error recording reminder", zap.String("phone", customer.Phone), zap.Error(err))
		return model.FAILED
	}
	return outcome
}

func (s *service) Reconcile(phone, text string, receivedAt time.Time) (dto.ReconcileResult, error) {
	normalized, err := util.NormalizePhone(phone)
	if err != nil {
		return dto.ReconcileResult{}, NewInvalidPayloadError("Invalid phone " + phone)
	}

	intent := s.classifier.ClassifyConfirmation(text)
	reply := s.classifier.ReplyTo(intent)

	if _, err := s.messageDao.Create(normalized, text, intent.String(), receivedAt); err != nil {
		zap.L().Warn("Error logging inbound message", zap.Error(err))
	}

	result := dto.ReconcileResult{Status: dto.ReconcileIgnored, Reply: reply}
	if intent != ai.IntentConfirmed {
		return result, nil
	}

	customer, err := s.customerDao.GetOneByPhone(normalized)
	if errors.Is(err, dao.ErrNotFound) {
		//reply from an unknown number, nothing outstanding to confirm
		return result, nil
	}
	if err != nil {
		return result, err
	}

	maxDate := receivedAt.In(s.loc).Format(model.DateLayout)
	record, err := s.reminderDao.GetLatestUnconfirmed(customer.Id, maxDate)
	if errors.Is(err, dao.ErrNotFound) {
		//already confirmed or never sent; a repeated confirmation is a no-op
		return result, nil
	}
	if err != nil {
		return result, err
	}

	if err := s.reminderDao.Confirm(record.Id, receivedAt, text); err != nil {
		return result, err
	}

	zap.L().Info("Reminder confirmed", zap.String("phone", normalized), zap.String("date", record.Date))
	result.Status = dto.ReconcileConfirmed
	return result, nil
}

func (s *service) HandleInbound(phone, text string, receivedAt time.Time) (dto.ReconcileResult, error) {
	result, err := s.Reconcile(phone, text, receivedAt)
	if err != nil {
		return result, err
	}
	if result.Reply != "" {
		if err := s.sender.SendMessage(phone, result.Reply); err != nil {
			zap.L().Warn("Error sending reply", zap.String("phone", phone), zap.Error(err))
		}
	}
	return result, nil
}

func (s *service) RecoverMissed(now time.Time) (dto.RecoveryResult, error) {
	now = now.In(s.loc)
	date := now.Format(model.DateLayout)

	var result dto.RecoveryResult

	customers, err := s.customerDao.GetAllActive()
	if err != nil {
		return result, err
	}

	for _, customer := range customers {
		slotTime, err := time.ParseInLocation(model.SlotLayout, customer.ReminderTime, s.loc)
		if err != nil {
			zap.L().Warn("Customer has unparsable reminder time",
				zap.Uint32("id", customer.Id), zap.String("time", customer.ReminderTime))
			continue
		}
		due := time.Date(now.Year(), now.Month(), now.Day(),
			slotTime.Hour(), slotTime.Minute(), 0, 0, s.loc)

		if due.After(now) {
			//not due yet today
			continue
		}
		if now.Sub(due) > slotWindow {
			//too late to be useful, abandon the slot
			result.Skipped = append(result.Skipped, customer.Phone)
			continue
		}

		_, err = s.reminderDao.GetOneByKey(model.RecordKey(customer.Id, date, customer.ReminderTime))
		if err == nil {
			//any recorded attempt, success or failure, is terminal for recovery
			continue
		}
		if !errors.Is(err, dao.ErrNotFound) {
			zap.L().Error("Error reading reminder record", zap.Error(err))
			continue
		}

		zap.L().Info("Backfilling missed slot",
			zap.String("phone", customer.Phone), zap.String("slot", customer.ReminderTime))
		switch s.deliver(customer, date, customer.ReminderTime, now) {
		case model.SENT:
			result.Recovered = append(result.Recovered, customer.Phone)
		case model.FAILED:
			result.Failed = append(result.Failed, customer.Phone)
		default:
			result.Skipped = append(result.Skipped, customer.Phone)
		}
	}

	return result, nil
}

func (s *service) CheckEscalations(now time.Time) (dto.EscalationResult, error) {
	now = now.In(s.loc)

	var result dto.EscalationResult

	records, err := s.reminderDao.GetNeedingEscalation(now, maxEscalations)
	if err != nil {
		return result, err
	}
	result.Checked = len(records)

	for _, record := range records {
		if now.Sub(record.SentAt) > slotWindow {
			result.Stopped++
			continue
		}

		customer, err := s.customerDao.GetOneById(record.CustomerId)
		if err != nil || !customer.Active {
			result.Stopped++
			continue
		}

		level := record.EscalationLevel + 1
		text := s.classifier.EscalationMessage(level, customer.Name)
		if err := s.sender.SendMessage(customer.Phone, text); err != nil {
			zap.L().Warn("Escalation send failed", zap.String("phone", customer.Phone), zap.Error(err))
			result.Failed++
			continue
		}

		if err := s.reminderDao.UpdateEscalation(record.Id, level, now.Add(escalationInterval)); err != nil {
			zap.L().Error("Error updating escalation", zap.Error(err))
			result.Failed++
			continue
		}
		result.Sent++
	}

	return result, nil
}

func (s *service) AddCustomer(customer dto.NewCustomer) (dto.Id, error) {
	phone, err := util.NormalizePhone(customer.Phone)
	if err != nil {
		return dto.Id{}, NewInvalidPayloadError("Invalid phone " + customer.Phone)
	}

	reminderTime := customer.ReminderTime
	if util.IsBlank(reminderTime) {
		reminderTime = model.DefaultReminderTime
	}
	if !util.IsValidSlot(reminderTime) {
		return dto.Id{}, NewInvalidPayloadError("Invalid reminder time " + reminderTime + ". Must be HH:MM")
	}

	id, err := s.customerDao.Create(phone, customer.Name, reminderTime)
	if errors.Is(err, dao.ErrAlreadyExists) {
		return dto.Id{}, NewInvalidPayloadError("Phone already registered " + phone)
	}
	if err != nil {
		return dto.Id{}, err
	}

	return dto.Id{Id: id}, nil
}

func (s *service) UpdateCustomer(id uint32, update dto.UpdateCustomer) (dto.Customer, error) {
	customer, err := s.customerDao.GetOneById(id)
	if err != nil {
		return dto.Customer{}, err
	}

	if update.Name != nil {
		customer.Name = *update.Name
	}
	if update.ReminderTime != nil {
		if !util.IsValidSlot(*update.ReminderTime) {
			return dto.Customer{}, NewInvalidPayloadError("Invalid reminder time " + *update.ReminderTime + ". Must be HH:MM")
		}
		customer.ReminderTime = *update.ReminderTime
	}
	if update.Active != nil {
		customer.Active = *update.Active
	}

	if err := s.customerDao.Update(customer); err != nil {
		return dto.Customer{}, err
	}

	customer, err = s.customerDao.GetOneById(id)
	if err != nil {
		return dto.Customer{}, err
	}
	return toCustomerDto(customer), nil
}

func (s *service) DeactivateCustomer(id uint32) error {
	customer, err := s.customerDao.GetOneById(id)
	if err != nil {
		return err
	}
	if !customer.Active {
		return nil
	}
	customer.Active = false
	return s.customerDao.Update(customer)
}

func (s *service) GetCustomers(activeOnly bool) ([]dto.Customer, error) {
	var customers []model.Customer
	var err error
	if activeOnly {
		customers, err = s.customerDao.GetAllActive()
	} else {
		customers, err = s.customerDao.GetAll()
	}
	if err != nil {
		return nil, err
	}

	result := []dto.Customer{}
	for _, customer := range customers {
		result = append(result, toCustomerDto(customer))
	}
	return result, nil
}

func (s *service) GetRecentMessages(limit int) ([]dto.InboundMessage, error) {
	if limit <= 0 {
		limit = 10
	}
	messages, err := s.messageDao.GetRecent(limit)
	if err != nil {
		return nil, err
	}

	result := []dto.InboundMessage{}
	for _, msg := range messages {
		result = append(result, dto.InboundMessage{
			Id:         msg.Id,
			Sender:     msg.Sender,
			Text:       msg.Text,
			Intent:     msg.Intent,
			ReceivedAt: msg.ReceivedAt,
		})
	}
	return result, nil
}

func (s *service) Health() dto.Health {
	state, err := s.sender.GetStateInstance()
	if err != nil {
		zap.L().Warn("Error checking gateway state", zap.Error(err))
		return dto.Health{Status: "degraded"}
	}
	return dto.Health{Status: "ok", InstanceState: state}
}

func (s *service) RunSchedule(interval time.Duration, stop chan struct{}) {
	//backfill slots missed while the process was down before the first tick
	if _, err := s.RecoverMissed(time.Now()); err != nil {
		zap.L().Error("Error recovering missed slots", zap.Error(err))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			now := time.Now()
			if _, err := s.RunDueCheck(now); err != nil {
				zap.L().Error("Error running due check", zap.Error(err))
			}
			if _, err := s.RecoverMissed(now); err != nil {
				zap.L().Error("Error recovering missed slots", zap.Error(err))
			}
			if _, err := s.CheckEscalations(now); err != nil {
				zap.L().Error("Error checking escalations", zap.Error(err))
			}
		}
	}
}

func (s *service) ListenInbound(sub chan interface{}) {
	for val := range sub {
		inbound, ok := val.(whatsapp.InboundText)
		if !ok {
			continue
		}
		if _, err := s.HandleInbound(inbound.Sender, inbound.Text, inbound.ReceivedAt); err != nil {
			zap.L().Warn("Error handling inbound message", zap.Error(err))
		}
	}
}

func toCustomerDto(customer model.Customer) dto.Customer {
	return dto.Customer{
		Id:           customer.Id,
		Phone:        customer.Phone,
		Name:         customer.Name,
		ReminderTime: customer.ReminderTime,
		Active:       customer.Active,
		CreatedAt:    customer.CreatedAt,
		UpdatedAt:    customer.UpdatedAt,
	}
}
