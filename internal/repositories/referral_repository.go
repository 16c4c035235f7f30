package repositories

import (
	"context"
	"database/sql"
	"errors"

	"medrefBack/internal/models"
	"medrefBack/internal/settlement/fsm"
)

type ReferralRepository struct {
	DB *sql.DB
}

const referralColumns = `r.id, r.agent_id, r.patient_name, r.patient_birth_date, r.email, r.phone,
	r.status, r.treatment_amount, r.commission_amount, r.booked_clinic_id, r.visit_date,
	r.version, r.created_at, r.updated_at`

func (r *ReferralRepository) Create(ctx context.Context, ref models.Referral) (models.Referral, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return models.Referral{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const q = `INSERT INTO referrals (agent_id, patient_name, patient_birth_date, email, phone, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, version, created_at, updated_at`
	err = tx.QueryRowContext(ctx, q, ref.AgentID, ref.PatientName, ref.PatientBirthDate,
		ref.Email, ref.Phone, models.ReferralNew).
		Scan(&ref.ID, &ref.Version, &ref.CreatedAt, &ref.UpdatedAt)
	if err != nil {
		return models.Referral{}, err
	}

	for _, clinicID := range ref.ClinicIDs {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO referral_clinics (referral_id, clinic_id) VALUES ($1, $2)`,
			ref.ID, clinicID); err != nil {
			return models.Referral{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return models.Referral{}, err
	}
	ref.Status = models.ReferralNew
	return ref, nil
}

func (r *ReferralRepository) GetByID(ctx context.Context, id int) (models.Referral, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+referralColumns+` FROM referrals r WHERE r.id = $1`, id)
	ref, err := scanReferral(row)
	if err != nil {
		return models.Referral{}, err
	}
	ref.ClinicIDs, err = r.listClinics(ctx, ref.ID)
	return ref, err
}

func (r *ReferralRepository) ListByAgent(ctx context.Context, agentID int) ([]models.Referral, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+referralColumns+` FROM referrals r WHERE r.agent_id = $1 ORDER BY r.created_at DESC`, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(ctx, rows)
}

// PoolForClinic loads the referrals a reconciliation pass matches against:
// open ones plus visited ones (needed to flag repeated clinic submissions),
// restricted to referrals targeting the clinic or targeting any clinic.
func (r *ReferralRepository) PoolForClinic(ctx context.Context, clinicID int) ([]models.Referral, error) {
	const q = `SELECT ` + referralColumns + ` FROM referrals r
		WHERE r.status NOT IN ('duplicate', 'no_answer', 'cancelled')
		  AND (NOT EXISTS (SELECT 1 FROM referral_clinics rc WHERE rc.referral_id = r.id)
		       OR EXISTS (SELECT 1 FROM referral_clinics rc WHERE rc.referral_id = r.id AND rc.clinic_id = $1))
		ORDER BY r.created_at`
	rows, err := r.DB.QueryContext(ctx, q, clinicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(ctx, rows)
}

// UpdateStatus is the administrative override. It bumps the version stamp so
// concurrent reconciliation commits notice the change.
func (r *ReferralRepository) UpdateStatus(ctx context.Context, id int, to models.ReferralStatus) error {
	ref, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !fsm.CanTransitionReferral(ref.Status, to) {
		return &models.StateConflictError{Entity: "referral", ID: id, Current: string(ref.Status)}
	}
	res, err := r.DB.ExecContext(ctx,
		`UPDATE referrals SET status = $1, version = version + 1, updated_at = NOW() WHERE id = $2 AND status = $3`,
		to, id, ref.Status)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return &models.StateConflictError{Entity: "referral", ID: id, Current: string(ref.Status)}
	}
	return nil
}

func (r *ReferralRepository) listClinics(ctx context.Context, referralID int) ([]int, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT clinic_id FROM referral_clinics WHERE referral_id = $1 ORDER BY clinic_id`, referralID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *ReferralRepository) collect(ctx context.Context, rows *sql.Rows) ([]models.Referral, error) {
	var refs []models.Referral
	for rows.Next() {
		ref, err := scanReferralRows(rows)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range refs {
		clinics, err := r.listClinics(ctx, refs[i].ID)
		if err != nil {
			return nil, err
		}
		refs[i].ClinicIDs = clinics
	}
	return refs, nil
}

func scanReferral(row *sql.Row) (models.Referral, error) {
	var ref models.Referral
	var email, phone sql.NullString
	var treatment, commission sql.NullInt64
	var clinic sql.NullInt64
	var visit sql.NullTime
	err := row.Scan(&ref.ID, &ref.AgentID, &ref.PatientName, &ref.PatientBirthDate,
		&email, &phone, &ref.Status, &treatment, &commission, &clinic, &visit,
		&ref.Version, &ref.CreatedAt, &ref.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Referral{}, models.ErrReferralNotFound
	}
	if err != nil {
		return models.Referral{}, err
	}
	fillReferral(&ref, email, phone, treatment, commission, clinic, visit)
	return ref, nil
}

func scanReferralRows(rows *sql.Rows) (models.Referral, error) {
	var ref models.Referral
	var email, phone sql.NullString
	var treatment, commission sql.NullInt64
	var clinic sql.NullInt64
	var visit sql.NullTime
	err := rows.Scan(&ref.ID, &ref.AgentID, &ref.PatientName, &ref.PatientBirthDate,
		&email, &phone, &ref.Status, &treatment, &commission, &clinic, &visit,
		&ref.Version, &ref.CreatedAt, &ref.UpdatedAt)
	if err != nil {
		return models.Referral{}, err
	}
	fillReferral(&ref, email, phone, treatment, commission, clinic, visit)
	return ref, nil
}

func fillReferral(ref *models.Referral, email, phone sql.NullString, treatment, commission, clinic sql.NullInt64, visit sql.NullTime) {
	ref.Email = email.String
	ref.Phone = phone.String
	if treatment.Valid {
		v := treatment.Int64
		ref.TreatmentAmount = &v
	}
	if commission.Valid {
		v := commission.Int64
		ref.CommissionAmount = &v
	}
	if clinic.Valid {
		v := int(clinic.Int64)
		ref.BookedClinicID = &v
	}
	if visit.Valid {
		v := visit.Time
		ref.VisitDate = &v
	}
}
