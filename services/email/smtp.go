package emailsvc

import (
	"context"
	"net/mail"

	"github.com/pkg/errors"
	"gopkg.in/gomail.v2"

	"github.com/trezcool/academia/core"
)

type smtpService struct {
	dialer          *gomail.Dialer
	from            mail.Address
	subjPrefix      string
	frontendBaseURL string
}

var _ core.EmailService = (*smtpService)(nil)

func NewSMTPService(conf *core.Config) core.EmailService {
	return &smtpService{
		dialer:          gomail.NewDialer(conf.SMTP.Host, conf.SMTP.Port, conf.SMTP.User, conf.SMTP.Password),
		from:            conf.DefaultFromEmail(),
		subjPrefix:      "[" + conf.AppName + "] ",
		frontendBaseURL: conf.FrontendBaseURL,
	}
}

func (svc smtpService) SendMessage(ctx context.Context, msg *core.EmailMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := msg.Render(svc.frontendBaseURL); err != nil {
		return errors.Wrap(err, "rendering email")
	}
	if !msg.HasRecipients() || !msg.HasContent() {
		return errors.New("email has no recipient or content")
	}
	return errors.Wrap(svc.dialer.DialAndSend(svc.prepare(*msg)), "sending email")
}

func (svc smtpService) prepare(msg core.EmailMessage) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", svc.from.Address, svc.from.Name)
	m.SetHeader("To", formatAddresses(m, msg.To)...)
	if len(msg.Cc) > 0 {
		m.SetHeader("Cc", formatAddresses(m, msg.Cc)...)
	}
	if len(msg.Bcc) > 0 {
		m.SetHeader("Bcc", formatAddresses(m, msg.Bcc)...)
	}
	m.SetHeader("Subject", svc.subjPrefix+msg.Subject)

	m.SetBody("text/plain", msg.TextContent)
	if msg.HTMLContent != "" {
		m.AddAlternative("text/html", msg.HTMLContent)
	}
	return m
}

func formatAddresses(m *gomail.Message, addrs []mail.Address) []string {
	formatted := make([]string, 0, len(addrs))
	for _, a := range addrs {
		formatted = append(formatted, m.FormatAddress(a.Address, a.Name))
	}
	return formatted
}
