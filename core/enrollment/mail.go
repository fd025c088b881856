package enrollment

import (
	"net/mail"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/student"
)

const (
	confirmationTemplate = "enrollment_confirmation"
	rejectionTemplate    = "payment_rejection"
	rejectionSubject     = "Payment Rejected"
	defaultRejectReason  = "The payment details could not be verified."
)

func recipient(s student.Student) []mail.Address {
	return []mail.Address{{Name: s.FullName(), Address: s.Email}}
}

func (svc *Service) confirmationMessage(t Transition) *core.EmailMessage {
	return &core.EmailMessage{
		To:           recipient(*t.Student),
		Subject:      "Enrollment Confirmed: " + t.Enrollment.Course.Title,
		TemplateName: confirmationTemplate,
		TemplateData: map[string]interface{}{
			"Name":        t.Student.FullName(),
			"CourseTitle": t.Enrollment.Course.Title,
			"LoginURL":    svc.conf.LMSLoginURL,
			"LmsID":       t.Credentials.LmsID,
			"LmsPassword": t.Credentials.Password,
		},
	}
}

func (svc *Service) rejectionMessage(t Transition) *core.EmailMessage {
	reason := t.RejectionReason
	if reason == "" {
		reason = defaultRejectReason
	}
	return &core.EmailMessage{
		To:           recipient(t.Enrollment.Student),
		Subject:      rejectionSubject,
		TemplateName: rejectionTemplate,
		TemplateData: map[string]interface{}{
			"Name":   t.Enrollment.Student.FullName(),
			"Reason": reason,
		},
	}
}
