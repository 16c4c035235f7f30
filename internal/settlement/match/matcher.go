package match

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"medrefBack/internal/models"
)

// Preview matches one clinic's candidate treatment rows against the clinic's
// referral pool. It is side-effect-free: nothing is persisted until the caller
// commits the returned items. The pool must contain the clinic's open
// referrals and its visited ones (the latter are needed to flag duplicate
// clinic submissions).
func Preview(clinicID int, rows []models.CandidateRow, pool []models.Referral) models.ReconciliationPreview {
	preview := models.ReconciliationPreview{ClinicID: clinicID}

	byIdentity := make(map[string][]models.Referral)
	for _, ref := range pool {
		if !ref.TargetsClinic(clinicID) {
			continue
		}
		key := identityKey(ref.PatientName, ref.PatientBirthDate)
		byIdentity[key] = append(byIdentity[key], ref)
	}
	for _, group := range byIdentity {
		sort.Slice(group, func(i, j int) bool {
			if group[i].CreatedAt.Equal(group[j].CreatedAt) {
				return group[i].ID < group[j].ID
			}
			return group[i].CreatedAt.Before(group[j].CreatedAt)
		})
	}

	// Referrals already matched by an earlier row of the same batch must not
	// be credited twice within one pass.
	consumed := make(map[int]bool)

	for _, row := range rows {
		name := NormalizeName(row.PatientName)
		if name == "" {
			preview.Errors = append(preview.Errors, rejected(row, models.MatchRowError, 0, "patient name is missing"))
			continue
		}
		birthDate, err := ParseDate(row.BirthDate)
		if err != nil {
			preview.Errors = append(preview.Errors, rejected(row, models.MatchRowError, 0, fmt.Sprintf("unparseable birth date %q", row.BirthDate)))
			continue
		}
		visitDate, err := ParseDate(row.VisitDate)
		if err != nil {
			preview.Errors = append(preview.Errors, rejected(row, models.MatchRowError, 0, fmt.Sprintf("unparseable visit date %q", row.VisitDate)))
			continue
		}
		if row.Amount <= 0 {
			preview.Errors = append(preview.Errors, rejected(row, models.MatchRowError, 0, "treatment amount must be positive"))
			continue
		}

		group := byIdentity[identityKey(row.PatientName, birthDate)]
		if len(group) == 0 {
			preview.NotFound = append(preview.NotFound, rejected(row, models.MatchNotFound, 0, "no referral with this patient identity for this clinic"))
			continue
		}

		var open []models.Referral
		var visited *models.Referral
		for i := range group {
			ref := group[i]
			switch {
			case ref.Status == models.ReferralVisited:
				if visited == nil {
					visited = &group[i]
				}
			case !ref.Status.IsTerminal() && !consumed[ref.ID]:
				open = append(open, ref)
			}
		}

		switch {
		case len(open) > 0:
			// Oldest created referral wins; same-identity leftovers become
			// duplicates as a commit side effect.
			winner := open[0]
			consumed[winner.ID] = true
			var dups []int
			for _, ref := range open[1:] {
				consumed[ref.ID] = true
				dups = append(dups, ref.ID)
			}
			preview.Matched = append(preview.Matched, models.MatchedRow{
				RowIndex:     row.RowIndex,
				ReferralID:   winner.ID,
				AgentID:      winner.AgentID,
				PatientName:  winner.PatientName,
				VisitDate:    visitDate,
				Amount:       row.Amount,
				Version:      winner.Version,
				DuplicateIDs: dups,
			})
		case visited != nil:
			preview.AlreadyTreated = append(preview.AlreadyTreated, rejected(row, models.MatchAlreadyTreated, visited.ID, "referral already settled as visited"))
		default:
			preview.NotFound = append(preview.NotFound, rejected(row, models.MatchNotFound, 0, "no open referral with this patient identity for this clinic"))
		}
	}

	return preview
}

func rejected(row models.CandidateRow, outcome models.MatchOutcome, referralID int, reason string) models.RejectedRow {
	return models.RejectedRow{
		RowIndex:   row.RowIndex,
		Outcome:    outcome,
		ReferralID: referralID,
		Reason:     reason,
	}
}

// NormalizeName folds case and collapses runs of whitespace, so that
// " Иванов  Иван " and "иванов иван" compare equal.
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

var dateLayouts = []string{"2006-01-02", "02.01.2006"}

// ParseDate accepts the upload date formats and returns a bare calendar date
// in UTC; comparison is by date, never by the source string.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date format %q", s)
}

func identityKey(name string, birthDate time.Time) string {
	return NormalizeName(name) + "|" + birthDate.Format("2006-01-02")
}
