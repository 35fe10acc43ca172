package services

import (
	"github.com/onegreenvn/stockplus-backend/internal/models"

	"github.com/sirupsen/logrus"
)

// OTPMessage is a code to deliver to one contact
type OTPMessage struct {
	Contact     string            `json:"contact"`
	ContactType string            `json:"contact_type"`
	Code        string            `json:"code"`
	Purpose     models.OTPPurpose `json:"purpose"`
}

// Notifier delivers OTP codes. Delivery is best effort: callers log failures and carry on.
type Notifier interface {
	SendOTP(msg OTPMessage) error
}

// LogNotifier writes codes to the log. Used when neither SMTP nor a broker is configured.
type LogNotifier struct{}

func (LogNotifier) SendOTP(msg OTPMessage) error {
	logrus.WithFields(logrus.Fields{
		"contact": msg.Contact,
		"purpose": msg.Purpose,
	}).Info("OTP issued")
	logrus.Debugf("OTP for %s: %s", msg.Contact, msg.Code)
	return nil
}
