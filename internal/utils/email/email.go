package email

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/deposit-service/internal/config"
	"github.com/Dan9191/deposit-service/internal/models"
	"github.com/Dan9191/deposit-service/internal/utils"
)

const summarySubject = "Your Fixed Deposit Calculation"

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
	send   func(e *email.Email, addr string, auth smtp.Auth) error
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// SendCalculationSummary mails the quote as plain text
func (s *Sender) SendCalculationSummary(to string, quote models.Quote) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = summarySubject
	e.Text = []byte(summaryBody(quote))

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	if err := s.send(e, addr, auth); err != nil {
		s.logger.Errorf("Failed to send deposit summary to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", to, e.Subject)
	return nil
}

func summaryBody(q models.Quote) string {
	var b strings.Builder
	b.WriteString("Hello,\n\n")
	b.WriteString("Here is the fixed deposit calculation you requested.\n\n")
	fmt.Fprintf(&b, "Principal: %s\n", utils.FormatAmount(q.Params.Principal))
	fmt.Fprintf(&b, "Tenure: %g years\n", q.Params.TenureYears)
	fmt.Fprintf(&b, "Annual interest rate: %g%%\n", q.Params.AnnualRatePercent)
	fmt.Fprintf(&b, "Compounding: %s\n\n", q.Params.CompoundingFrequency)
	fmt.Fprintf(&b, "Maturity amount: %s\n", q.Display.MaturityAmount)
	fmt.Fprintf(&b, "Total interest earned: %s\n", q.Display.TotalInterest)
	if q.Explanation != "" {
		b.WriteString("\n")
		b.WriteString(q.Explanation)
		b.WriteString("\n")
	}
	b.WriteString("\nBest regards,\nDeposit Service")
	return b.String()
}
