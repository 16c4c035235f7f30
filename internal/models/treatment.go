package models

import "time"

// CandidateRow is one normalized row from a clinic upload. Rows are ephemeral:
// they are consumed by a single reconciliation pass and never persisted.
type CandidateRow struct {
	RowIndex    int    `json:"row_index"`
	PatientName string `json:"patient_name"`
	BirthDate   string `json:"birth_date"`
	VisitDate   string `json:"visit_date"`
	Amount      int64  `json:"amount"`
}

// MatchOutcome классифицирует строку выгрузки клиники.
type MatchOutcome string

const (
	MatchMatched        MatchOutcome = "matched"
	MatchAlreadyTreated MatchOutcome = "already_treated"
	MatchNotFound       MatchOutcome = "not_found"
	MatchRowError       MatchOutcome = "row_error"
)

// MatchedRow is a preview item ready for commit. Version is the referral's
// optimistic stamp at preview time; commit re-checks it.
type MatchedRow struct {
	RowIndex     int       `json:"row_index"`
	ReferralID   int       `json:"referral_id"`
	AgentID      int       `json:"agent_id"`
	PatientName  string    `json:"patient_name"`
	VisitDate    time.Time `json:"visit_date"`
	Amount       int64     `json:"amount"`
	Version      int       `json:"version"`
	DuplicateIDs []int     `json:"duplicate_ids,omitempty"`
}

// RejectedRow is a preview item that cannot be committed.
type RejectedRow struct {
	RowIndex   int          `json:"row_index"`
	Outcome    MatchOutcome `json:"outcome"`
	ReferralID int          `json:"referral_id,omitempty"`
	Reason     string       `json:"reason"`
}

// ReconciliationPreview is the side-effect-free result of matching one batch.
type ReconciliationPreview struct {
	ClinicID       int           `json:"clinic_id"`
	Matched        []MatchedRow  `json:"matched"`
	AlreadyTreated []RejectedRow `json:"already_treated"`
	NotFound       []RejectedRow `json:"not_found"`
	Errors         []RejectedRow `json:"errors"`
}

// CommitItem is one confirmed preview row submitted for commit.
type CommitItem struct {
	ReferralID   int       `json:"referral_id"`
	ClinicID     int       `json:"clinic_id"`
	VisitDate    time.Time `json:"visit_date"`
	Amount       int64     `json:"amount"`
	Version      int       `json:"version"`
	DuplicateIDs []int     `json:"duplicate_ids,omitempty"`
}

// CommitRowResult reports the fate of one commit item. Commit never aborts the
// batch: conflicting rows are reported individually.
type CommitRowResult struct {
	ReferralID     int    `json:"referral_id"`
	Applied        bool   `json:"applied"`
	AlreadyApplied bool   `json:"already_applied,omitempty"`
	Commission     int64  `json:"commission,omitempty"`
	Error          string `json:"error,omitempty"`
}

// CommitResult summarizes a reconciliation commit.
type CommitResult struct {
	BatchID      string            `json:"batch_id"`
	UpdatedCount int               `json:"updated_count"`
	Rows         []CommitRowResult `json:"rows"`
}

// ApplyResult is the outcome of settling one treatment onto a referral.
type ApplyResult struct {
	AgentID        int
	Commission     int64
	MonthRevenue   int64
	AlreadyApplied bool
}
