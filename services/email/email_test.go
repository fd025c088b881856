package emailsvc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/testutil"
)

func confirmation() *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{{Name: "Priya Sharma", Address: "priya@example.com"}},
		Subject:      "Enrollment Confirmed: Go Backend",
		TemplateName: "enrollment_confirmation",
		TemplateData: map[string]interface{}{
			"Name":        "Priya Sharma",
			"CourseTitle": "Go Backend",
			"LoginURL":    "https://lms.example.com/login",
			"LmsID":       "LMSABCDEFGH",
			"LmsPassword": "Xy7#kP2q!mZa",
		},
	}
}

func TestConsoleService_SendMessage(t *testing.T) {
	conf := testutil.NewConfig()
	svc := NewConsoleServiceMock(conf)

	require.NoError(t, svc.SendMessage(context.Background(), confirmation()))
	sent := svc.SentMessages()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].TextContent, "LMSABCDEFGH")
	assert.Contains(t, sent[0].TextContent, "https://lms.example.com/login")
	assert.Contains(t, sent[0].HTMLContent, "Go Backend")

	body, err := svc.mimeBody(sent[0])
	require.NoError(t, err)
	assert.Contains(t, body, "Subject: ["+conf.AppName+"] Enrollment Confirmed: Go Backend")
	assert.Contains(t, body, `To: "Priya Sharma" <priya@example.com>`)
	assert.Contains(t, body, "multipart/alternative")
}

func TestConsoleService_Failures(t *testing.T) {
	svc := NewConsoleServiceMock(testutil.NewConfig())

	boom := errors.New("smtp down")
	svc.FailWith(boom)
	assert.Equal(t, boom, svc.SendMessage(context.Background(), confirmation()))
	svc.FailWith(nil)

	err := svc.SendMessage(context.Background(), &core.EmailMessage{Subject: "nobody", BodyStr: "hi"})
	assert.EqualError(t, err, "email has no recipient or content")

	err = svc.SendMessage(context.Background(), &core.EmailMessage{
		To: confirmation().To, TemplateName: "does_not_exist",
	})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, context.Canceled, svc.SendMessage(ctx, confirmation()))

	assert.Empty(t, svc.SentMessages())
}

func TestSendgridService(t *testing.T) {
	conf := testutil.NewConfig()
	conf.SendgridAPIKey = "SG.test"
	svc := NewSendgridService(conf).(*sendgridService)

	msg := confirmation()
	msg.Cc = []mail.Address{{Address: "ops@example.com"}}
	require.NoError(t, msg.Render(conf.FrontendBaseURL))
	m := svc.prepare(*msg)
	require.Len(t, m.Personalizations, 1)
	assert.Equal(t, "["+conf.AppName+"] Enrollment Confirmed: Go Backend", m.Personalizations[0].Subject)
	assert.Equal(t, "priya@example.com", m.Personalizations[0].To[0].Address)
	assert.Len(t, m.Personalizations[0].CC, 1)
	require.Len(t, m.Content, 2)
	assert.Equal(t, "text/plain", m.Content[0].Type)

	status := http.StatusAccepted
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, endpoint, r.URL.Path)
		assert.Equal(t, "Bearer SG.test", r.Header.Get("Authorization"))
		w.WriteHeader(status)
	}))
	defer srv.Close()
	origHost := host
	host = srv.URL
	defer func() { host = origHost }()

	assert.NoError(t, svc.SendMessage(context.Background(), confirmation()))
	status = http.StatusUnauthorized
	assert.Error(t, svc.SendMessage(context.Background(), confirmation()))
}

func TestSMTPService_prepare(t *testing.T) {
	conf := testutil.NewConfig()
	svc := NewSMTPService(conf).(*smtpService)

	msg := confirmation()
	msg.Bcc = []mail.Address{{Name: "Audit", Address: "audit@example.com"}}
	require.NoError(t, msg.Render(conf.FrontendBaseURL))
	m := svc.prepare(*msg)

	assert.Equal(t, []string{`"Priya Sharma" <priya@example.com>`}, m.GetHeader("To"))
	assert.Equal(t, []string{`"Audit" <audit@example.com>`}, m.GetHeader("Bcc"))
	assert.Equal(t, []string{"[" + conf.AppName + "] Enrollment Confirmed: Go Backend"}, m.GetHeader("Subject"))
	assert.Empty(t, m.GetHeader("Cc"))
}
