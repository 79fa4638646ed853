package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/shopspring/decimal"

    "github.com/admintermas/reservas-api/internal/model"
)

// ReservationRepo provides access to the reservations and
// modular_reservations tables.  Balance-mutating methods take a *sql.Tx
// so the ledger can run the whole read-validate-write sequence under a
// single transaction; read-only display queries run on the pool.  All
// timestamps are stored in UTC.
type ReservationRepo struct {
    db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `id, guest_name, guest_email, check_in, check_out,
       total_amount, paid_amount, pending_amount, payment_status, status,
       created_at, updated_at`

func scanReservation(row *sql.Row) (*model.Reservation, error) {
    var (
        res           model.Reservation
        guestEmail    sql.NullString
        total, paid   decimal.NullDecimal
        pending       decimal.NullDecimal
        paymentStatus string
        status        string
    )
    err := row.Scan(
        &res.ID, &res.GuestName, &guestEmail, &res.CheckIn, &res.CheckOut,
        &total, &paid, &pending, &paymentStatus, &status,
        &res.CreatedAt, &res.UpdatedAt,
    )
    if err != nil {
        return nil, err
    }
    if guestEmail.Valid {
        res.GuestEmail = guestEmail.String
    }
    // Legacy rows may carry NULL amounts; the ledger treats them as zero.
    res.TotalAmount = total.Decimal
    res.PaidAmount = paid.Decimal
    res.PendingAmount = pending.Decimal
    res.PaymentStatus = model.PaymentStatus(paymentStatus)
    res.Status = model.ReservationStatus(status)
    return &res, nil
}

// GetForUpdateTx loads a reservation row and locks it until the
// transaction ends.  Concurrent payment submissions against the same
// reservation therefore serialize on this read.  Returns sql.ErrNoRows
// when the reservation does not exist.
func (r *ReservationRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Reservation, error) {
    const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ? FOR UPDATE`
    return scanReservation(tx.QueryRowContext(ctx, q, id))
}

// LineItemCountTx returns how many modular reservation rows are attached
// to the reservation.
func (r *ReservationRepo) LineItemCountTx(ctx context.Context, tx *sql.Tx, reservationID uint64) (int, error) {
    var n int
    err := tx.QueryRowContext(ctx,
        `SELECT COUNT(*) FROM modular_reservations WHERE reservation_id = ?`,
        reservationID).Scan(&n)
    return n, err
}

// ApplyBalancesTx writes the recomputed balance state back to the
// reservation row and refreshes updated_at.
func (r *ReservationRepo) ApplyBalancesTx(ctx context.Context, tx *sql.Tx, reservationID uint64, paid, pending decimal.Decimal, ps model.PaymentStatus, st model.ReservationStatus) error {
    const q = `UPDATE reservations
               SET paid_amount = ?, pending_amount = ?, payment_status = ?, status = ?, updated_at = UTC_TIMESTAMP()
               WHERE id = ?`
    _, err := tx.ExecContext(ctx, q, paid, pending, string(ps), string(st), reservationID)
    return err
}

// UpdateStatusTx sets the reservation's operational status.
func (r *ReservationRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, reservationID uint64, st model.ReservationStatus) error {
    _, err := tx.ExecContext(ctx,
        `UPDATE reservations SET status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`,
        string(st), reservationID)
    return err
}

// MirrorLineItemStatusTx copies the reservation status onto all of its
// modular reservation rows, keeping the legacy per-line status column
// in step with the parent.
func (r *ReservationRepo) MirrorLineItemStatusTx(ctx context.Context, tx *sql.Tx, reservationID uint64, st model.ReservationStatus) error {
    _, err := tx.ExecContext(ctx,
        `UPDATE modular_reservations SET status = ? WHERE reservation_id = ?`,
        string(st), reservationID)
    return err
}

// ResolveCanonicalID maps an identifier to the canonical reservation id.
// A direct primary-key match wins; otherwise the id is treated as a
// modular_reservations id and mapped to its parent reservation.  Returns
// sql.ErrNoRows when neither lookup matches.
func (r *ReservationRepo) ResolveCanonicalID(ctx context.Context, id uint64) (uint64, error) {
    var out uint64
    err := r.db.QueryRowContext(ctx,
        `SELECT id FROM reservations WHERE id = ?`, id).Scan(&out)
    if err == nil {
        return out, nil
    }
    if err != sql.ErrNoRows {
        return 0, err
    }
    err = r.db.QueryRowContext(ctx,
        `SELECT reservation_id FROM modular_reservations WHERE id = ?`, id).Scan(&out)
    if err != nil {
        return 0, err
    }
    return out, nil
}

// LineItemDetail is one modular reservation row as returned to the
// back-office UI.
type LineItemDetail struct {
    ID          uint64          `json:"id"`
    RoomCode    string          `json:"room_code"`
    PackageCode string          `json:"package_code"`
    GrandTotal  decimal.Decimal `json:"grand_total"`
    FinalPrice  decimal.Decimal `json:"final_price"`
    Status      string          `json:"status"`
}

// ReservationDetail bundles a reservation with its line items for the
// detail endpoint.  Amounts come from the parent row only; line item
// totals are historical display data.
type ReservationDetail struct {
    ID            uint64           `json:"id"`
    GuestName     string           `json:"guest_name"`
    GuestEmail    string           `json:"guest_email,omitempty"`
    CheckIn       string           `json:"check_in"`
    CheckOut      string           `json:"check_out"`
    TotalAmount   decimal.Decimal  `json:"total_amount"`
    PaidAmount    decimal.Decimal  `json:"paid_amount"`
    PendingAmount decimal.Decimal  `json:"pending_amount"`
    PaymentStatus string           `json:"payment_status"`
    Status        string           `json:"status"`
    LineItems     []LineItemDetail `json:"line_items"`
}

// GetDetail returns a reservation with its modular line items.  Returns
// sql.ErrNoRows when the reservation does not exist.
func (r *ReservationRepo) GetDetail(ctx context.Context, id uint64) (*ReservationDetail, error) {
    const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
    res, err := scanReservation(r.db.QueryRowContext(ctx, q, id))
    if err != nil {
        return nil, err
    }
    det := &ReservationDetail{
        ID:            res.ID,
        GuestName:     res.GuestName,
        GuestEmail:    res.GuestEmail,
        CheckIn:       res.CheckIn.UTC().Format(time.RFC3339),
        CheckOut:      res.CheckOut.UTC().Format(time.RFC3339),
        TotalAmount:   res.TotalAmount,
        PaidAmount:    res.PaidAmount,
        PendingAmount: res.PendingAmount,
        PaymentStatus: string(res.PaymentStatus),
        Status:        string(res.Status),
        LineItems:     []LineItemDetail{},
    }
    const itemQ = `SELECT id, room_code, package_code, grand_total, final_price, status
                   FROM modular_reservations
                   WHERE reservation_id = ?
                   ORDER BY id`
    rows, err := r.db.QueryContext(ctx, itemQ, id)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    for rows.Next() {
        var (
            it           LineItemDetail
            grand, final decimal.NullDecimal
        )
        if err := rows.Scan(&it.ID, &it.RoomCode, &it.PackageCode, &grand, &final, &it.Status); err != nil {
            return nil, err
        }
        it.GrandTotal = grand.Decimal
        it.FinalPrice = final.Decimal
        det.LineItems = append(det.LineItems, it)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return det, nil
}

// List returns reservations ordered by creation time descending (newest
// first) for the back-office listing.  limit is capped by the caller.
func (r *ReservationRepo) List(ctx context.Context, limit, offset int) ([]ReservationDetail, error) {
    const q = `SELECT ` + reservationColumns + `
               FROM reservations
               ORDER BY created_at DESC, id DESC
               LIMIT ? OFFSET ?`
    rows, err := r.db.QueryContext(ctx, q, limit, offset)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]ReservationDetail, 0)
    for rows.Next() {
        var (
            res           model.Reservation
            guestEmail    sql.NullString
            total, paid   decimal.NullDecimal
            pending       decimal.NullDecimal
            paymentStatus string
            status        string
        )
        if err := rows.Scan(
            &res.ID, &res.GuestName, &guestEmail, &res.CheckIn, &res.CheckOut,
            &total, &paid, &pending, &paymentStatus, &status,
            &res.CreatedAt, &res.UpdatedAt,
        ); err != nil {
            return nil, err
        }
        out = append(out, ReservationDetail{
            ID:            res.ID,
            GuestName:     res.GuestName,
            GuestEmail:    guestEmail.String,
            CheckIn:       res.CheckIn.UTC().Format(time.RFC3339),
            CheckOut:      res.CheckOut.UTC().Format(time.RFC3339),
            TotalAmount:   total.Decimal,
            PaidAmount:    paid.Decimal,
            PendingAmount: pending.Decimal,
            PaymentStatus: paymentStatus,
            Status:        status,
            LineItems:     []LineItemDetail{},
        })
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}
