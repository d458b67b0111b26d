package booking

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// The intake record is the serialization boundary between this gateway and
// the platform's free-text note fields. RenderNoteRecord and ParseNoteRecord
// are exact inverses for sanitized values; nothing else writes note text.

const (
	noteHeader = "TELEHEALTH INTAKE v1"

	keyRecorded          = "RECORDED"
	keyName              = "NAME"
	keyEmail             = "EMAIL"
	keyPhone             = "PHONE"
	keyDOB               = "DOB"
	keyEmergencyContact  = "EMERGENCY CONTACT"
	keyChiefComplaint    = "CHIEF COMPLAINT"
	keySymptoms          = "SYMPTOMS"
	keyDuration          = "DURATION"
	keyMedications       = "MEDICATIONS"
	keyAllergies         = "ALLERGIES"
	keyHIPAAConsent      = "HIPAA CONSENT"
	keyTelehealthConsent = "TELEHEALTH CONSENT"
	keyRecordingConsent  = "RECORDING CONSENT"
	keySignature         = "SIGNATURE"
	keyAccessCode        = "ACCESS CODE"
)

// noteKeys fixes the field order of a rendered record.
var noteKeys = []string{
	keyRecorded, keyName, keyEmail, keyPhone, keyDOB, keyEmergencyContact,
	keyChiefComplaint, keySymptoms, keyDuration, keyMedications, keyAllergies,
	keyHIPAAConsent, keyTelehealthConsent, keyRecordingConsent, keySignature,
	keyAccessCode,
}

// NoteRecord is the parsed form of one rendered intake block.
type NoteRecord struct {
	RecordedAt        string
	Name              string
	Email             string
	Phone             string
	DOB               string
	EmergencyContact  string
	ChiefComplaint    string
	Symptoms          string
	Duration          string
	Medications       string
	Allergies         string
	HIPAAConsent      string
	TelehealthConsent string
	RecordingConsent  string
	Signature         string
	AccessCode        string
}

// RenderNoteRecord flattens an intake into the canonical KEY: value block.
// accessCode may be empty (customer records carry no code).
func RenderNoteRecord(intake PatientIntake, accessCode string, recordedAt time.Time) string {
	values := map[string]string{
		keyRecorded:          recordedAt.UTC().Format(time.RFC3339),
		keyName:              intake.Personal.FullName(),
		keyEmail:             intake.Personal.Email,
		keyPhone:             intake.Personal.Phone,
		keyDOB:               intake.Personal.DOB,
		keyEmergencyContact:  intake.Personal.EmergencyContact,
		keyChiefComplaint:    intake.Health.ChiefComplaint,
		keySymptoms:          intake.Health.Symptoms,
		keyDuration:          intake.Health.Duration,
		keyMedications:       intake.Health.Medications,
		keyAllergies:         intake.Health.Allergies,
		keyHIPAAConsent:      consentWord(intake.Consents.HIPAA),
		keyTelehealthConsent: consentWord(intake.Consents.Telehealth),
		keyRecordingConsent:  consentWord(intake.Consents.Recording),
		keySignature:         intake.Consents.Signature,
		keyAccessCode:        accessCode,
	}

	var b strings.Builder
	b.WriteString(noteHeader)
	for _, key := range noteKeys {
		b.WriteByte('\n')
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(sanitizeNoteValue(values[key]))
	}
	return b.String()
}

// ParseNoteRecord is the inverse of RenderNoteRecord. It reads the last
// rendered block in the note, so appended histories resolve to the most
// recent visit. ok is false when the note holds no intake record.
func ParseNoteRecord(note string) (rec NoteRecord, ok bool) {
	idx := strings.LastIndex(note, noteHeader)
	if idx < 0 {
		return NoteRecord{}, false
	}
	for _, line := range strings.Split(note[idx:], "\n") {
		key, value, found := strings.Cut(line, ": ")
		if !found {
			continue
		}
		switch key {
		case keyRecorded:
			rec.RecordedAt = value
		case keyName:
			rec.Name = value
		case keyEmail:
			rec.Email = value
		case keyPhone:
			rec.Phone = value
		case keyDOB:
			rec.DOB = value
		case keyEmergencyContact:
			rec.EmergencyContact = value
		case keyChiefComplaint:
			rec.ChiefComplaint = value
		case keySymptoms:
			rec.Symptoms = value
		case keyDuration:
			rec.Duration = value
		case keyMedications:
			rec.Medications = value
		case keyAllergies:
			rec.Allergies = value
		case keyHIPAAConsent:
			rec.HIPAAConsent = value
		case keyTelehealthConsent:
			rec.TelehealthConsent = value
		case keyRecordingConsent:
			rec.RecordingConsent = value
		case keySignature:
			rec.Signature = value
		case keyAccessCode:
			rec.AccessCode = value
		}
	}
	return rec, true
}

// AppendNoteRecord adds a fresh record after the existing note so prior visit
// history survives repeat bookings.
func AppendNoteRecord(existing, rendered string) string {
	existing = strings.TrimSpace(existing)
	if existing == "" {
		return rendered
	}
	return existing + "\n\n" + rendered
}

func consentWord(agreed bool) string {
	if agreed {
		return "AGREED"
	}
	return "NOT AGREED"
}

// sanitizeNoteValue keeps every value on one line so the record stays
// parseable by the inverse.
func sanitizeNoteValue(v string) string {
	v = strings.ReplaceAll(v, "\r", " ")
	v = strings.ReplaceAll(v, "\n", " ")
	return strings.TrimSpace(v)
}

// NewAccessCode returns a random 6-digit code for weak patient self-lookup.
func NewAccessCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("booking: access code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
