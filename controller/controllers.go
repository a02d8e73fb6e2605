package controller

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/medbot/pill-reminder/dao"
	"github.com/medbot/pill-reminder/log"
	"github.com/medbot/pill-reminder/service"
	"github.com/medbot/pill-reminder/service/dto"
	"github.com/medbot/pill-reminder/whatsapp"
)

// GetTriggerReminderFunc exposes the due check to a remote trigger (e.g. an
// external cron). Repeated calls within the same minute are safe.
func GetTriggerReminderFunc(srv service.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		result, err := srv.RunDueCheck(time.Now())
		if err != nil {
			log.Error.Println(err)
			return c.String(http.StatusInternalServerError, "System malfunction. Please, try later")
		}
		return c.JSON(http.StatusOK, result)
	}
}

// GetRecoverMissedFunc replays slots that were due but never recorded.
func GetRecoverMissedFunc(srv service.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		result, err := srv.RecoverMissed(time.Now())
		if err != nil {
			log.Error.Println(err)
			return c.String(http.StatusInternalServerError, "System malfunction. Please, try later")
		}
		return c.JSON(http.StatusOK, result)
	}
}

// GetCheckEscalationsFunc sends due follow-ups for unconfirmed reminders.
func GetCheckEscalationsFunc(srv service.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		result, err := srv.CheckEscalations(time.Now())
		if err != nil {
			log.Error.Println(err)
			return c.String(http.StatusInternalServerError, "System malfunction. Please, try later")
		}
		return c.JSON(http.StatusOK, result)
	}
}

// GetWebhookFunc handles inbound gateway notifications pushed over HTTP.
// Non-text notifications are acknowledged and dropped.
func GetWebhookFunc(srv service.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		notification := new(whatsapp.NotificationBody)
		if err := c.Bind(notification); err != nil {
			return c.String(http.StatusBadRequest, "Invalid notification payload")
		}

		text := notification.MessageData.Text()
		if text == "" {
			return c.JSON(http.StatusOK, map[string]bool{"success": true})
		}

		receivedAt := time.Unix(notification.Timestamp, 0)
		if notification.Timestamp == 0 {
			receivedAt = time.Now()
		}

		result, err := srv.HandleInbound(notification.SenderData.Phone(), text, receivedAt)
		if err != nil {
			switch err.(type) {
			case *service.InvalidPayloadErr:
				//not a reply we can attribute, acknowledge so it is not redelivered
				return c.JSON(http.StatusOK, map[string]bool{"success": true})
			default:
				log.Error.Println(err)
				return c.String(http.StatusInternalServerError, "System malfunction. Please, try later")
			}
		}

		return c.JSON(http.StatusOK, result)
	}
}

// GetAddCustomerFunc registers a new reminder recipient.
func GetAddCustomerFunc(srv service.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		customer := new(dto.NewCustomer)
		if err := c.Bind(customer); err != nil {
			return err
		}

		id, err := srv.AddCustomer(*customer)
		if err != nil {
			switch err.(type) {
			case *service.InvalidPayloadErr:
				return c.String(http.StatusBadRequest, err.Error())
			default:
				log.Error.Println(err)
				return c.String(http.StatusInternalServerError, "System malfunction. Please, try later")
			}
		}

		return c.JSON(http.StatusOK, id)
	}
}

// GetListCustomersFunc lists recipients; ?active=true narrows to active ones.
func GetListCustomersFunc(srv service.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		activeOnly := c.QueryParam("active") == "true"

		customers, err := srv.GetCustomers(activeOnly)
		if err != nil {
			log.Error.Println(err)
			return c.String(http.StatusInternalServerError, "System malfunction. Please, try later")
		}

		return c.JSON(http.StatusOK, customers)
	}
}

// GetUpdateCustomerFunc mutates name, reminder time or the active flag.
func GetUpdateCustomerFunc(srv service.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := parseId(c.Param("id"))
		if err != nil {
			return c.String(http.StatusBadRequest, "Invalid customer id")
		}

		update := new(dto.UpdateCustomer)
		if err := c.Bind(update); err != nil {
			return err
		}

		customer, err := srv.UpdateCustomer(id, *update)
		if err != nil {
			switch {
			case errors.Is(err, dao.ErrNotFound):
				return c.String(http.StatusNotFound, "Customer not found "+c.Param("id"))
			default:
				if _, ok := err.(*service.InvalidPayloadErr); ok {
					return c.String(http.StatusBadRequest, err.Error())
				}
				log.Error.Println(err)
				return c.String(http.StatusInternalServerError, "System malfunction. Please, try later")
			}
		}

		return c.JSON(http.StatusOK, customer)
	}
}

// GetDeleteCustomerFunc soft-deletes a recipient (the record is kept, the
// active flag is cleared).
func GetDeleteCustomerFunc(srv service.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := parseId(c.Param("id"))
		if err != nil {
			return c.String(http.StatusBadRequest, "Invalid customer id")
		}

		if err := srv.DeactivateCustomer(id); err != nil {
			if errors.Is(err, dao.ErrNotFound) {
				return c.String(http.StatusNotFound, "Customer not found "+c.Param("id"))
			}
			log.Error.Println(err)
			return c.String(http.StatusInternalServerError, "System malfunction. Please, try later")
		}

		return c.NoContent(http.StatusNoContent)
	}
}

// GetListMessagesFunc returns the recent inbound reply history.
func GetListMessagesFunc(srv service.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit, _ := strconv.Atoi(c.QueryParam("limit"))

		messages, err := srv.GetRecentMessages(limit)
		if err != nil {
			log.Error.Println(err)
			return c.String(http.StatusInternalServerError, "System malfunction. Please, try later")
		}

		return c.JSON(http.StatusOK, messages)
	}
}

// GetHealthFunc reports liveness and the gateway instance state.
func GetHealthFunc(srv service.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, srv.Health())
	}
}

func parseId(s string) (uint32, error) {
	id64, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(id64), nil
}
