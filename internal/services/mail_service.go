package services

import (
	"fmt"

	"github.com/onegreenvn/stockplus-backend/internal/config"
	"github.com/onegreenvn/stockplus-backend/internal/models"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// MailService sends mail over SMTP
type MailService struct {
	dialer   *gomail.Dialer
	from     string
	shopName string
}

// NewMailService creates a MailService for the configured SMTP server
func NewMailService(cfg config.SMTPConfig, shopName string) *MailService {
	return &MailService{
		dialer:   gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:     cfg.From,
		shopName: shopName,
	}
}

// SendEmail sends one HTML message
func (s *MailService) SendEmail(to, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.from, s.shopName))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	return s.dialer.DialAndSend(m)
}

// SendOTP mails the code to an email contact. Phone contacts have no gateway and are skipped.
func (s *MailService) SendOTP(msg OTPMessage) error {
	if msg.ContactType != models.ContactTypeEmail {
		logrus.Warnf("No SMS gateway configured, OTP for %s not delivered", msg.Contact)
		return nil
	}
	return s.SendEmail(msg.Contact, otpSubject(msg.Purpose), s.otpEmailHTML(msg.Code))
}

func otpSubject(purpose models.OTPPurpose) string {
	switch purpose {
	case models.OTPPurposePasswordReset:
		return "Your password reset code"
	case models.OTPPurposeRecoveryVerify:
		return "Verify your recovery contact"
	default:
		return "Your verification code"
	}
}

// otpEmailHTML renders the code as XXX-XXX with inline styles
func (s *MailService) otpEmailHTML(code string) string {
	formatted := code
	if len(code) == 6 {
		formatted = fmt.Sprintf("%s-%s", code[:3], code[3:])
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="margin: 0; padding: 0; font-family: Arial, sans-serif; background-color: #f7f9fc;">
	<table align="center" border="0" cellpadding="0" cellspacing="0" width="600" style="border-collapse: collapse; background-color: #ffffff;">
		<tr>
			<td style="padding: 30px; color: #333333; font-size: 16px; line-height: 1.6;">
				<h2 style="margin-top: 0;">%s</h2>
				<p>Your verification code is:</p>
				<p style="font-size: 32px; font-weight: 700; letter-spacing: 4px;">%s</p>
				<p>The code expires in %d minutes. If you did not request it, ignore this email.</p>
			</td>
		</tr>
	</table>
</body>
</html>`, s.shopName, formatted, int(models.OTPTTL.Minutes()))
}
