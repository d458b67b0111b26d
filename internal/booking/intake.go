// Package booking implements the telehealth booking workflow: resolve the
// customer record by email, optionally capture payment, then create the
// appointment on the scheduling platform. Steps run strictly in order and
// there is no compensating transaction for partial failure; the platform is
// the only durable store.
package booking

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidIntake marks a rejected intake so handlers can separate patient
// mistakes from remote failures.
var ErrInvalidIntake = errors.New("booking: invalid intake")

// PersonalInfo is the patient-entered contact block.
type PersonalInfo struct {
	FirstName        string `json:"firstName" validate:"required"`
	LastName         string `json:"lastName" validate:"required"`
	Email            string `json:"email" validate:"required,email"`
	Phone            string `json:"phone" validate:"required"`
	DOB              string `json:"dob" validate:"required"`
	EmergencyContact string `json:"emergencyContact"`
}

// HealthInfo is the patient-entered clinical block.
type HealthInfo struct {
	ChiefComplaint string `json:"chiefComplaint" validate:"required"`
	Symptoms       string `json:"symptoms"`
	Duration       string `json:"duration"`
	Medications    string `json:"medications"`
	Allergies      string `json:"allergies"`
}

// Consents records the patient's agreement checkboxes and typed signature.
type Consents struct {
	HIPAA      bool   `json:"hipaa" validate:"required"`
	Telehealth bool   `json:"telehealth" validate:"required"`
	Recording  bool   `json:"recording"`
	Signature  string `json:"signature" validate:"required"`
}

// PatientIntake exists only for the duration of one booking request; it is
// flattened into note records on the platform's customer and booking objects.
type PatientIntake struct {
	Personal PersonalInfo `json:"personal" validate:"required"`
	Health   HealthInfo   `json:"health" validate:"required"`
	Consents Consents     `json:"consents" validate:"required"`
}

// FullName joins the name parts for display and note rendering.
func (p PersonalInfo) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateIntake runs presence checks over the intake. The returned error
// names the first offending field.
func ValidateIntake(intake PatientIntake) error {
	if err := validate.Struct(intake); err != nil {
		var verrs validator.ValidationErrors
		if ok := asValidationErrors(err, &verrs); ok && len(verrs) > 0 {
			return fmt.Errorf("%w: missing or invalid field: %s", ErrInvalidIntake, verrs[0].Namespace())
		}
		return fmt.Errorf("%w: %v", ErrInvalidIntake, err)
	}
	return nil
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	verrs, ok := err.(validator.ValidationErrors)
	if ok {
		*target = verrs
	}
	return ok
}
