package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/janjeevan/telehealth/pkg/logging"
)

// UrgentCaseAlert carries everything the on-call doctor needs to pick up a
// high-urgency case immediately.
type UrgentCaseAlert struct {
	AppointmentID   string   `json:"appointmentId"`
	PatientName     string   `json:"patientName"`
	PatientContact  string   `json:"patientContact"`
	Symptoms        string   `json:"symptoms"`
	Urgency         string   `json:"urgency"`
	Recommendations []string `json:"recommendations"`
	DoctorEmail     string   `json:"doctorEmail"`
	MeetingLink     string   `json:"meetingLink"`
}

// Service sends best-effort alerts for urgent cases. Failures are logged and
// never propagated to the caller: a dropped email must not fail the
// appointment that triggered it.
type Service struct {
	email             EmailSender
	onCallDoctorEmail string
	logger            *logging.Logger
}

// NewService creates a notification service.
func NewService(email EmailSender, onCallDoctorEmail string, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		email:             email,
		onCallDoctorEmail: onCallDoctorEmail,
		logger:            logger,
	}
}

// UrgentCase alerts the on-call doctor about a high-urgency appointment.
func (s *Service) UrgentCase(ctx context.Context, alert UrgentCaseAlert) {
	if s == nil || s.email == nil {
		return
	}

	to := alert.DoctorEmail
	if to == "" {
		to = s.onCallDoctorEmail
	}
	if to == "" {
		s.logger.Warn("urgent case alert skipped: no doctor email configured", "appointment_id", alert.AppointmentID)
		return
	}

	patientName := alert.PatientName
	if patientName == "" {
		patientName = "A patient"
	}

	msg := EmailMessage{
		To:      to,
		ToName:  "On-call doctor",
		Subject: fmt.Sprintf("URGENT: High priority medical case - %s", patientName),
		Body:    formatUrgentBody(alert, patientName),
	}

	if err := s.email.Send(ctx, msg); err != nil {
		s.logger.Error("urgent case alert failed", "error", err, "appointment_id", alert.AppointmentID, "to", to)
		return
	}
	s.logger.Info("urgent case alert sent", "appointment_id", alert.AppointmentID, "to", to)
}

func formatUrgentBody(alert UrgentCaseAlert, patientName string) string {
	var sb strings.Builder
	sb.WriteString("URGENT MEDICAL CONSULTATION REQUIRED\n\n")
	fmt.Fprintf(&sb, "Patient: %s\n", patientName)
	if alert.PatientContact != "" {
		fmt.Fprintf(&sb, "Contact: %s\n", alert.PatientContact)
	}
	fmt.Fprintf(&sb, "Urgency: %s\n\n", alert.Urgency)
	fmt.Fprintf(&sb, "Symptoms:\n%s\n", alert.Symptoms)
	if len(alert.Recommendations) > 0 {
		sb.WriteString("\nAI Recommendations:\n")
		for i, rec := range alert.Recommendations {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, rec)
		}
	}
	if alert.MeetingLink != "" {
		fmt.Fprintf(&sb, "\nJoin the video consultation immediately:\n%s\n", alert.MeetingLink)
	}
	fmt.Fprintf(&sb, "\nAppointment ID: %s\n", alert.AppointmentID)
	sb.WriteString("\nThis is an automated alert from JanJeevan Health.\n")
	return sb.String()
}
