package emailsvc

import (
	"fmt"
	"net/http"
	"net/mail"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/trezcool/educryption/core"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"

	// custom arg echoed back by sendgrid event webhooks
	templateArg = "template"
)

// sendgridMailer delivers platform notifications (welcome, password reset...)
// through the sendgrid v3 API. Every message is tagged with the platform
// category and, when templated, with its template name.
type sendgridMailer struct {
	apiKey     string
	sender     *sgmail.Email
	category   string
	subjPrefix string
	logger     core.Logger
}

var _ core.EmailService = (*sendgridMailer)(nil)

func NewSendgridService(conf *core.Config, logger core.Logger) core.EmailService {
	sender := conf.DefaultFromEmail()
	return &sendgridMailer{
		apiKey:     conf.SendgridApiKey,
		sender:     toSGEmail(sender),
		category:   strings.ToLower(strings.ReplaceAll(conf.AppName, " ", "-")),
		subjPrefix: "[" + conf.AppName + "] ",
		logger:     logger,
	}
}

// SendMessages renders then delivers each message in its own goroutine.
// Messages with no recipient or nothing to show are dropped.
func (m *sendgridMailer) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		go func(msg *core.EmailMessage) {
			if err := msg.Render(); err != nil {
				m.logger.Error(fmt.Sprintf("rendering %q email: %v", msg.TemplateName, err), err)
				return
			}
			if !msg.HasRecipients() || !(msg.HasContent() || msg.HasAttachments()) {
				return
			}
			m.deliver(m.build(*msg))
		}(msg)
	}
}

func (m *sendgridMailer) build(msg core.EmailMessage) *sgmail.SGMailV3 {
	recipients := sgmail.NewPersonalization()
	recipients.Subject = m.subjPrefix + msg.Subject
	recipients.AddTos(toSGEmails(msg.To)...)
	if len(msg.Cc) > 0 {
		recipients.AddCCs(toSGEmails(msg.Cc)...)
	}
	if len(msg.Bcc) > 0 {
		recipients.AddBCCs(toSGEmails(msg.Bcc)...)
	}

	sgMsg := sgmail.NewV3Mail().
		SetFrom(m.sender).
		AddPersonalizations(recipients)
	if m.category != "" {
		sgMsg.AddCategories(m.category)
	}
	if msg.TemplateName != "" {
		sgMsg.AddCategories(msg.TemplateName)
		sgMsg.SetCustomArg(templateArg, msg.TemplateName)
	}

	// sendgrid expects text/plain before text/html
	if msg.TextContent != "" {
		sgMsg.AddContent(sgmail.NewContent("text/plain", msg.TextContent))
	}
	if msg.HTMLContent != "" {
		sgMsg.AddContent(sgmail.NewContent("text/html", msg.HTMLContent))
	}
	for _, at := range msg.Attachments {
		sgMsg.AddAttachment(&sgmail.Attachment{
			Content:     at.Content.String(),
			Type:        at.ContentType,
			Filename:    at.Filename,
			Disposition: "attachment",
		})
	}
	return sgMsg
}

func (m *sendgridMailer) deliver(sgMsg *sgmail.SGMailV3) {
	req := sendgrid.GetRequest(m.apiKey, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(sgMsg)

	res, err := sendgrid.API(req)
	switch {
	case err != nil:
		m.logger.Error(fmt.Sprintf("sending email: %v", err), err)
	case res.StatusCode >= http.StatusBadRequest:
		m.logger.Error(fmt.Sprintf("sending email: sendgrid replied %d: %s", res.StatusCode, res.Body))
	}
}

func toSGEmail(addr mail.Address) *sgmail.Email {
	return sgmail.NewEmail(addr.Name, addr.Address)
}

func toSGEmails(addrs []mail.Address) []*sgmail.Email {
	emails := make([]*sgmail.Email, 0, len(addrs))
	for _, addr := range addrs {
		emails = append(emails, toSGEmail(addr))
	}
	return emails
}
