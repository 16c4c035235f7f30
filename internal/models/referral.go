package models

import "time"

// ReferralStatus values used by the referral state machine.
type ReferralStatus string

const (
	ReferralNew        ReferralStatus = "new"
	ReferralInProgress ReferralStatus = "in_progress"
	ReferralContacted  ReferralStatus = "contacted"
	ReferralScheduled  ReferralStatus = "scheduled"
	ReferralVisited    ReferralStatus = "visited"
	ReferralDuplicate  ReferralStatus = "duplicate"
	ReferralNoAnswer   ReferralStatus = "no_answer"
	ReferralCancelled  ReferralStatus = "cancelled"
)

// IsTerminal reports whether the status admits no further transitions.
func (s ReferralStatus) IsTerminal() bool {
	switch s {
	case ReferralVisited, ReferralDuplicate, ReferralNoAnswer, ReferralCancelled:
		return true
	}
	return false
}

// Referral is a submitted patient lead. Patient identity (name + birthdate)
// is immutable after creation; it is the matching key during reconciliation.
// An empty ClinicIDs set means "any clinic".
type Referral struct {
	ID               int            `json:"id"`
	AgentID          int            `json:"agent_id"`
	PatientName      string         `json:"patient_name"`
	PatientBirthDate time.Time      `json:"patient_birth_date"`
	Email            string         `json:"email,omitempty"`
	Phone            string         `json:"phone,omitempty"`
	ClinicIDs        []int          `json:"clinic_ids,omitempty"`
	Status           ReferralStatus `json:"status"`
	TreatmentAmount  *int64         `json:"treatment_amount,omitempty"`
	CommissionAmount *int64         `json:"commission_amount,omitempty"`
	BookedClinicID   *int           `json:"booked_clinic_id,omitempty"`
	VisitDate        *time.Time     `json:"visit_date,omitempty"`
	Version          int            `json:"version"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// TargetsClinic reports whether the referral may be booked at the clinic.
func (r *Referral) TargetsClinic(clinicID int) bool {
	if len(r.ClinicIDs) == 0 {
		return true
	}
	for _, id := range r.ClinicIDs {
		if id == clinicID {
			return true
		}
	}
	return false
}
