package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/lakeshore-health/telehealth-gateway/internal/booking"
)

// ConfirmationNotifier renders booking confirmations and hands them to an
// EmailSender. It satisfies the booking workflow's Notifier interface.
type ConfirmationNotifier struct {
	sender     EmailSender
	clinicName string
}

func NewConfirmationNotifier(sender EmailSender, clinicName string) *ConfirmationNotifier {
	if clinicName == "" {
		clinicName = "Telehealth Clinic"
	}
	return &ConfirmationNotifier{sender: sender, clinicName: clinicName}
}

func (n *ConfirmationNotifier) SendBookingConfirmation(ctx context.Context, toEmail, toName string, conf booking.Confirmation) error {
	if n.sender == nil {
		return nil
	}
	return n.sender.Send(ctx, EmailMessage{
		To:      toEmail,
		ToName:  toName,
		Subject: fmt.Sprintf("Your %s appointment is confirmed", n.clinicName),
		Body:    renderConfirmationBody(toName, conf, n.clinicName),
	})
}

func renderConfirmationBody(name string, conf booking.Confirmation, clinicName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", name)
	fmt.Fprintf(&b, "Your appointment is confirmed.\n\n")
	fmt.Fprintf(&b, "Service: %s\n", conf.Service)
	fmt.Fprintf(&b, "Time: %s\n", conf.Time)
	if conf.Price != "" {
		fmt.Fprintf(&b, "Price: $%s\n", conf.Price)
	}
	if conf.VideoCallURL != "" {
		fmt.Fprintf(&b, "\nJoin your video visit here: %s\n", conf.VideoCallURL)
	}
	fmt.Fprintf(&b, "\nSee you soon,\n%s\n", clinicName)
	return b.String()
}
