package repository

import (
    "context"
    "database/sql"

    "github.com/admintermas/reservas-api/internal/model"
)

// PaymentRepo provides access to the append-only reservation_payments
// ledger.  Rows are inserted once per successful payment and never
// updated or deleted.
type PaymentRepo struct {
    db *sql.DB
}

// NewPaymentRepo returns a new PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// InsertTx appends a payment record within the scope of an existing
// transaction.  It populates the generated ID and the database-assigned
// CreatedAt on the provided record.  The caller must commit or rollback
// the transaction.
func (r *PaymentRepo) InsertTx(ctx context.Context, tx *sql.Tx, rec *model.PaymentRecord) error {
    const q = `INSERT INTO reservation_payments
               (reservation_id, amount, payment_type, payment_method,
                previous_paid_amount, new_total_paid, remaining_balance, total_reservation_amount,
                reference_number, notes, processed_by)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    result, err := tx.ExecContext(ctx, q,
        rec.ReservationID, rec.Amount, string(rec.PaymentType), rec.PaymentMethod,
        rec.PreviousPaid, rec.NewTotalPaid, rec.RemainingBalance, rec.TotalReservation,
        nullable(rec.ReferenceNumber), nullable(rec.Notes), rec.ProcessedBy,
    )
    if err != nil {
        return err
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    rec.ID = uint64(id)
    // Query back the DB-generated timestamp so the returned record is complete.
    return tx.QueryRowContext(ctx,
        `SELECT created_at FROM reservation_payments WHERE id = ?`, rec.ID,
    ).Scan(&rec.CreatedAt)
}

// ListByReservation returns payment records for a reservation ordered
// newest-first.  A missing reservation_payments table is treated as an
// empty history; environments provisioned before the ledger existed
// must keep working.
func (r *PaymentRepo) ListByReservation(ctx context.Context, reservationID uint64) ([]model.PaymentRecord, error) {
    const q = `SELECT id, reservation_id, amount, payment_type, payment_method,
                      previous_paid_amount, new_total_paid, remaining_balance, total_reservation_amount,
                      reference_number, notes, processed_by, created_at
               FROM reservation_payments
               WHERE reservation_id = ?
               ORDER BY created_at DESC, id DESC`
    rows, err := r.db.QueryContext(ctx, q, reservationID)
    if err != nil {
        if isTableMissing(err) {
            return []model.PaymentRecord{}, nil
        }
        return nil, err
    }
    defer rows.Close()
    out := make([]model.PaymentRecord, 0)
    for rows.Next() {
        var (
            rec         model.PaymentRecord
            paymentType string
            ref, notes  sql.NullString
        )
        if err := rows.Scan(
            &rec.ID, &rec.ReservationID, &rec.Amount, &paymentType, &rec.PaymentMethod,
            &rec.PreviousPaid, &rec.NewTotalPaid, &rec.RemainingBalance, &rec.TotalReservation,
            &ref, &notes, &rec.ProcessedBy, &rec.CreatedAt,
        ); err != nil {
            return nil, err
        }
        rec.PaymentType = model.PaymentType(paymentType)
        rec.ReferenceNumber = ref.String
        rec.Notes = notes.String
        out = append(out, rec)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// nullable converts empty strings to SQL NULL for optional columns.
func nullable(s string) sql.NullString {
    return sql.NullString{String: s, Valid: s != ""}
}
