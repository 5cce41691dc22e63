package backup

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/practica/practica/internal/domain/patient"
	"github.com/practica/practica/internal/domain/payment"
	"github.com/practica/practica/internal/domain/report"
	"github.com/practica/practica/internal/domain/session"
	"github.com/practica/practica/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

type storePG struct{ pool *pgxpool.Pool }

func NewStorePG(pool *pgxpool.Pool) Store { return &storePG{pool: pool} }

func (s *storePG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return s.pool
}

func (s *storePG) Dump(ctx context.Context) (*Snapshot, error) {
	// Pin one connection so all four table reads go through it.
	pc, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer pc.Release()
	ctx = db.WithConn(ctx, pc)
	q := s.conn(ctx)

	snap := &Snapshot{}

	rows, err := q.Query(ctx, `
		SELECT id, name, billing_type, session_price, balance, social_fee, notes, created_at, updated_at
		FROM patients ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var p patient.Patient
		if err := rows.Scan(&p.ID, &p.Name, &p.BillingType, &p.SessionPrice, &p.Balance,
			&p.SocialFee, &p.Notes, &p.CreatedAt, &p.UpdatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		snap.Patients = append(snap.Patients, &p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = q.Query(ctx, `
		SELECT id, patient_id, date, price, state, session_type, notes, created_at, updated_at
		FROM sessions ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var sess session.Session
		if err := rows.Scan(&sess.ID, &sess.PatientID, &sess.Date, &sess.Price, &sess.State,
			&sess.Type, &sess.Notes, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		snap.Sessions = append(snap.Sessions, &sess)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = q.Query(ctx, `
		SELECT id, patient_id, date, amount, concept, notes, created_at
		FROM payments ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var p payment.Payment
		if err := rows.Scan(&p.ID, &p.PatientID, &p.Date, &p.Amount, &p.Concept,
			&p.Notes, &p.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		snap.Payments = append(snap.Payments, &p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = q.Query(ctx, `
		SELECT id, patient_id, report_type, production_state, payment_state, price, amount_paid, notes, created_at, updated_at
		FROM reports ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var r report.Report
		if err := rows.Scan(&r.ID, &r.PatientID, &r.Type, &r.ProductionState, &r.PaymentState,
			&r.Price, &r.AmountPaid, &r.Notes, &r.CreatedAt, &r.UpdatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		snap.Reports = append(snap.Reports, &r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return snap, nil
}

func (s *storePG) Restore(ctx context.Context, snap *Snapshot) error {
	return db.WithTx(ctx, s.pool, func(ctx context.Context) error {
		tx := db.TxFromContext(ctx)

		// Children first, patients last.
		for _, table := range []string{"payments", "sessions", "reports", "patients"} {
			if _, err := tx.Exec(ctx, `DELETE FROM `+table); err != nil {
				return err
			}
		}

		for _, p := range snap.Patients {
			if _, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, billing_type, session_price, balance, social_fee, notes, created_at, updated_at)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
				p.ID, p.Name, p.BillingType, p.SessionPrice, p.Balance, p.SocialFee,
				p.Notes, p.CreatedAt, p.UpdatedAt); err != nil {
				return err
			}
		}
		for _, sess := range snap.Sessions {
			if _, err := tx.Exec(ctx, `
				INSERT INTO sessions (id, patient_id, date, price, state, session_type, notes, created_at, updated_at)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
				sess.ID, sess.PatientID, sess.Date, sess.Price, sess.State, sess.Type,
				sess.Notes, sess.CreatedAt, sess.UpdatedAt); err != nil {
				return err
			}
		}
		for _, p := range snap.Payments {
			if _, err := tx.Exec(ctx, `
				INSERT INTO payments (id, patient_id, date, amount, concept, notes, created_at)
				VALUES ($1,$2,$3,$4,$5,$6,$7)`,
				p.ID, p.PatientID, p.Date, p.Amount, p.Concept, p.Notes, p.CreatedAt); err != nil {
				return err
			}
		}
		for _, r := range snap.Reports {
			if _, err := tx.Exec(ctx, `
				INSERT INTO reports (id, patient_id, report_type, production_state, payment_state, price, amount_paid, notes, created_at, updated_at)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
				r.ID, r.PatientID, r.Type, r.ProductionState, r.PaymentState, r.Price,
				r.AmountPaid, r.Notes, r.CreatedAt, r.UpdatedAt); err != nil {
				return err
			}
		}
		return nil
	})
}
