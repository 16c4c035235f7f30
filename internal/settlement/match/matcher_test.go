package match

import (
	"testing"
	"time"

	"medrefBack/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func referral(id, agentID int, name string, birth time.Time, status models.ReferralStatus, created time.Time, clinics ...int) models.Referral {
	return models.Referral{
		ID:               id,
		AgentID:          agentID,
		PatientName:      name,
		PatientBirthDate: birth,
		ClinicIDs:        clinics,
		Status:           status,
		Version:          1,
		CreatedAt:        created,
	}
}

func TestPreviewClassification(t *testing.T) {
	created := date(2024, 3, 1)
	pool := []models.Referral{
		referral(1, 10, "Иванов Иван", date(1980, 5, 1), models.ReferralNew, created),
		referral(2, 10, "Петров Петр", date(1975, 2, 28), models.ReferralVisited, created),
		referral(3, 11, "Сидоров Антон", date(1990, 12, 3), models.ReferralScheduled, created, 7),
	}
	rows := []models.CandidateRow{
		{RowIndex: 0, PatientName: "  иванов   ИВАН ", BirthDate: "01.05.1980", VisitDate: "2024-03-15", Amount: 500000},
		{RowIndex: 1, PatientName: "Петров Петр", BirthDate: "1975-02-28", VisitDate: "2024-03-15", Amount: 300000},
		{RowIndex: 2, PatientName: "Неизвестный Пациент", BirthDate: "1991-01-01", VisitDate: "2024-03-15", Amount: 100000},
		{RowIndex: 3, PatientName: "", BirthDate: "1991-01-01", VisitDate: "2024-03-15", Amount: 100000},
		{RowIndex: 4, PatientName: "Сидоров Антон", BirthDate: "весна", VisitDate: "2024-03-15", Amount: 100000},
		{RowIndex: 5, PatientName: "Сидоров Антон", BirthDate: "03.12.1990", VisitDate: "2024-03-15", Amount: -5},
	}

	p := Preview(7, rows, pool)

	if len(p.Matched) != 1 {
		t.Fatalf("expected 1 matched row, got %d", len(p.Matched))
	}
	m := p.Matched[0]
	if m.ReferralID != 1 || m.Amount != 500000 {
		t.Fatalf("unexpected match: %+v", m)
	}
	if !m.VisitDate.Equal(date(2024, 3, 15)) {
		t.Fatalf("unexpected visit date %v", m.VisitDate)
	}
	if len(p.AlreadyTreated) != 1 || p.AlreadyTreated[0].ReferralID != 2 {
		t.Fatalf("expected referral 2 flagged already treated, got %+v", p.AlreadyTreated)
	}
	if len(p.NotFound) != 1 || p.NotFound[0].RowIndex != 2 {
		t.Fatalf("expected row 2 not found, got %+v", p.NotFound)
	}
	if len(p.Errors) != 3 {
		t.Fatalf("expected 3 row errors, got %d: %+v", len(p.Errors), p.Errors)
	}
}

func TestPreviewClinicFilter(t *testing.T) {
	pool := []models.Referral{
		// targeted at clinic 9 only, must not match for clinic 7
		referral(1, 10, "Иванов Иван", date(1980, 5, 1), models.ReferralNew, date(2024, 3, 1), 9),
	}
	rows := []models.CandidateRow{
		{RowIndex: 0, PatientName: "Иванов Иван", BirthDate: "1980-05-01", VisitDate: "2024-03-15", Amount: 1000},
	}
	p := Preview(7, rows, pool)
	if len(p.NotFound) != 1 || len(p.Matched) != 0 {
		t.Fatalf("expected not_found for foreign clinic, got %+v", p)
	}
}

// Two open referrals share a patient identity: the oldest wins, the newer one
// is scheduled for duplicate marking, and no second credit happens.
func TestPreviewTieBreakOldestWins(t *testing.T) {
	pool := []models.Referral{
		referral(5, 10, "Иванов Иван", date(1980, 5, 1), models.ReferralNew, date(2024, 3, 2)),
		referral(4, 12, "Иванов Иван", date(1980, 5, 1), models.ReferralNew, date(2024, 3, 1)),
	}
	rows := []models.CandidateRow{
		{RowIndex: 0, PatientName: "Иванов Иван", BirthDate: "1980-05-01", VisitDate: "2024-03-15", Amount: 700},
	}
	p := Preview(0, rows, pool)
	if len(p.Matched) != 1 {
		t.Fatalf("expected 1 match, got %d", len(p.Matched))
	}
	m := p.Matched[0]
	if m.ReferralID != 4 {
		t.Fatalf("expected oldest referral 4 to win, got %d", m.ReferralID)
	}
	if len(m.DuplicateIDs) != 1 || m.DuplicateIDs[0] != 5 {
		t.Fatalf("expected referral 5 marked duplicate, got %v", m.DuplicateIDs)
	}
}

// The same identity reported twice in one batch must consume the referral once.
func TestPreviewConsumesWithinBatch(t *testing.T) {
	pool := []models.Referral{
		referral(1, 10, "Иванов Иван", date(1980, 5, 1), models.ReferralNew, date(2024, 3, 1)),
	}
	rows := []models.CandidateRow{
		{RowIndex: 0, PatientName: "Иванов Иван", BirthDate: "1980-05-01", VisitDate: "2024-03-15", Amount: 700},
		{RowIndex: 1, PatientName: "Иванов Иван", BirthDate: "1980-05-01", VisitDate: "2024-03-16", Amount: 900},
	}
	p := Preview(0, rows, pool)
	if len(p.Matched) != 1 {
		t.Fatalf("expected a single match, got %d", len(p.Matched))
	}
	if len(p.NotFound) != 1 || p.NotFound[0].RowIndex != 1 {
		t.Fatalf("expected second row rejected, got %+v", p.NotFound)
	}
}

func TestParseDate(t *testing.T) {
	iso, err := ParseDate("1980-05-01")
	if err != nil {
		t.Fatalf("ParseDate iso: %v", err)
	}
	dotted, err := ParseDate(" 01.05.1980 ")
	if err != nil {
		t.Fatalf("ParseDate dotted: %v", err)
	}
	if !iso.Equal(dotted) {
		t.Fatalf("expected equal dates, got %v and %v", iso, dotted)
	}
	if _, err := ParseDate("05/01/1980"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
