package booking

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleIntake() PatientIntake {
	return PatientIntake{
		Personal: PersonalInfo{
			FirstName:        "Jane",
			LastName:         "Doe",
			Email:            "jane@example.com",
			Phone:            "+15555550123",
			DOB:              "1990-04-12",
			EmergencyContact: "John Doe +15555550124",
		},
		Health: HealthInfo{
			ChiefComplaint: "Persistent cough",
			Symptoms:       "cough, mild fever",
			Duration:       "5 days",
			Medications:    "none",
			Allergies:      "penicillin",
		},
		Consents: Consents{
			HIPAA:      true,
			Telehealth: true,
			Recording:  false,
			Signature:  "Jane Doe",
		},
	}
}

func TestRenderParseRoundTrip(t *testing.T) {
	recordedAt := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	rendered := RenderNoteRecord(sampleIntake(), "123456", recordedAt)

	rec, ok := ParseNoteRecord(rendered)
	require.True(t, ok)
	assert.Equal(t, "Jane Doe", rec.Name)
	assert.Equal(t, "jane@example.com", rec.Email)
	assert.Equal(t, "+15555550123", rec.Phone)
	assert.Equal(t, "1990-04-12", rec.DOB)
	assert.Equal(t, "Persistent cough", rec.ChiefComplaint)
	assert.Equal(t, "penicillin", rec.Allergies)
	assert.Equal(t, "AGREED", rec.HIPAAConsent)
	assert.Equal(t, "NOT AGREED", rec.RecordingConsent)
	assert.Equal(t, "Jane Doe", rec.Signature)
	assert.Equal(t, "123456", rec.AccessCode)
	assert.Equal(t, "2025-06-02T12:00:00Z", rec.RecordedAt)
}

func TestRenderSanitizesNewlines(t *testing.T) {
	intake := sampleIntake()
	intake.Health.Symptoms = "cough\nEMAIL: attacker@evil.test"

	rendered := RenderNoteRecord(intake, "", time.Now())
	rec, ok := ParseNoteRecord(rendered)
	require.True(t, ok)
	assert.Equal(t, "jane@example.com", rec.Email)
	assert.Contains(t, rec.Symptoms, "attacker@evil.test")
}

func TestParseReturnsLatestAppendedRecord(t *testing.T) {
	first := RenderNoteRecord(sampleIntake(), "", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	second := sampleIntake()
	second.Health.ChiefComplaint = "Follow-up visit"
	appended := AppendNoteRecord(first, RenderNoteRecord(second, "", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)))

	rec, ok := ParseNoteRecord(appended)
	require.True(t, ok)
	assert.Equal(t, "Follow-up visit", rec.ChiefComplaint)

	// Prior history is preserved.
	assert.Equal(t, 2, strings.Count(appended, "TELEHEALTH INTAKE v1"))
}

func TestParseRejectsForeignNote(t *testing.T) {
	_, ok := ParseNoteRecord("VIP customer, prefers morning appointments")
	assert.False(t, ok)
}

func TestNewAccessCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		code, err := NewAccessCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9')
		}
		seen[code] = true
	}
	// Not a distribution test, just that codes vary at all.
	assert.Greater(t, len(seen), 1)
}

func TestValidateIntake(t *testing.T) {
	require.NoError(t, ValidateIntake(sampleIntake()))

	missingEmail := sampleIntake()
	missingEmail.Personal.Email = ""
	assert.ErrorIs(t, ValidateIntake(missingEmail), ErrInvalidIntake)

	badEmail := sampleIntake()
	badEmail.Personal.Email = "not-an-email"
	assert.ErrorIs(t, ValidateIntake(badEmail), ErrInvalidIntake)

	noConsent := sampleIntake()
	noConsent.Consents.HIPAA = false
	assert.ErrorIs(t, ValidateIntake(noConsent), ErrInvalidIntake)
}
