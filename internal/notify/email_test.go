package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakeshore-health/telehealth-gateway/internal/booking"
)

func TestNewSendGridSenderWithoutKey(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{FromEmail: "clinic@example.com"}, nil)
	assert.Nil(t, sender)
}

func TestStubEmailSenderRecords(t *testing.T) {
	stub := NewStubEmailSender(nil)

	err := stub.Send(context.Background(), EmailMessage{
		To:      "pat@example.com",
		Subject: "hello",
	})

	require.NoError(t, err)
	require.Len(t, stub.Sent, 1)
	assert.Equal(t, "pat@example.com", stub.Sent[0].To)
}

func TestConfirmationNotifierBody(t *testing.T) {
	stub := NewStubEmailSender(nil)
	notifier := NewConfirmationNotifier(stub, "Lakeshore Telehealth")

	err := notifier.SendBookingConfirmation(context.Background(), "pat@example.com", "Pat Doe", booking.Confirmation{
		Service:      "Initial Consultation",
		Time:         "Monday, March 2 at 10:00 AM EST",
		Price:        "75.00",
		VideoCallURL: "https://meet.example.com/room",
	})

	require.NoError(t, err)
	require.Len(t, stub.Sent, 1)
	msg := stub.Sent[0]
	assert.Equal(t, "Pat Doe", msg.ToName)
	assert.Contains(t, msg.Subject, "Lakeshore Telehealth")
	assert.Contains(t, msg.Body, "Initial Consultation")
	assert.Contains(t, msg.Body, "Monday, March 2 at 10:00 AM EST")
	assert.Contains(t, msg.Body, "$75.00")
	assert.Contains(t, msg.Body, "https://meet.example.com/room")
}

func TestConfirmationNotifierNilSender(t *testing.T) {
	notifier := NewConfirmationNotifier(nil, "")

	err := notifier.SendBookingConfirmation(context.Background(), "pat@example.com", "Pat", booking.Confirmation{})
	assert.NoError(t, err)
}
