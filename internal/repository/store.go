package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/shopspring/decimal"

    "github.com/admintermas/reservas-api/internal/ledger"
    "github.com/admintermas/reservas-api/internal/model"
)

// SQLStore implements ledger.Store on top of MySQL.  It owns the
// transaction lifecycle and translates driver-level errors into the
// ledger's sentinel errors.
type SQLStore struct {
    db           *sql.DB
    reservations *ReservationRepo
    payments     *PaymentRepo
    comments     *CommentRepo
}

// NewSQLStore builds a SQLStore over the shared connection pool.
func NewSQLStore(db *sql.DB, res *ReservationRepo, pay *PaymentRepo, cm *CommentRepo) *SQLStore {
    if db == nil || res == nil || pay == nil || cm == nil {
        panic("nil dependency passed to NewSQLStore")
    }
    return &SQLStore{db: db, reservations: res, payments: pay, comments: cm}
}

// InTx runs fn inside a single transaction.  The transaction commits iff
// fn returns nil; any error (or panic unwinding) rolls back every write.
func (s *SQLStore) InTx(ctx context.Context, fn func(ledger.Tx) error) error {
    tx, err := s.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    if err := fn(&sqlTx{tx: tx, s: s}); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// ResolveReservationID maps an id to the canonical reservation id.
func (s *SQLStore) ResolveReservationID(ctx context.Context, id uint64) (uint64, error) {
    canonical, err := s.reservations.ResolveCanonicalID(ctx, id)
    if errors.Is(err, sql.ErrNoRows) {
        return 0, ledger.ErrReservationNotFound
    }
    return canonical, err
}

// ListPayments returns the payment history, newest first.
func (s *SQLStore) ListPayments(ctx context.Context, reservationID uint64) ([]model.PaymentRecord, error) {
    return s.payments.ListByReservation(ctx, reservationID)
}

// sqlTx adapts one *sql.Tx to the ledger.Tx contract.
type sqlTx struct {
    tx *sql.Tx
    s  *SQLStore
}

func (t *sqlTx) ReservationForUpdate(ctx context.Context, id uint64) (*model.Reservation, error) {
    res, err := t.s.reservations.GetForUpdateTx(ctx, t.tx, id)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ledger.ErrReservationNotFound
    }
    return res, err
}

func (t *sqlTx) LineItemCount(ctx context.Context, reservationID uint64) (int, error) {
    return t.s.reservations.LineItemCountTx(ctx, t.tx, reservationID)
}

func (t *sqlTx) InsertPayment(ctx context.Context, rec *model.PaymentRecord) error {
    return t.s.payments.InsertTx(ctx, t.tx, rec)
}

func (t *sqlTx) ApplyBalances(ctx context.Context, reservationID uint64, paid, pending decimal.Decimal, ps model.PaymentStatus, st model.ReservationStatus) error {
    return t.s.reservations.ApplyBalancesTx(ctx, t.tx, reservationID, paid, pending, ps, st)
}

func (t *sqlTx) UpdateStatus(ctx context.Context, reservationID uint64, st model.ReservationStatus) error {
    return t.s.reservations.UpdateStatusTx(ctx, t.tx, reservationID, st)
}

func (t *sqlTx) MirrorLineItemStatus(ctx context.Context, reservationID uint64, st model.ReservationStatus) error {
    return t.s.reservations.MirrorLineItemStatusTx(ctx, t.tx, reservationID, st)
}

func (t *sqlTx) InsertComment(ctx context.Context, cm *model.Comment) error {
    return t.s.comments.InsertTx(ctx, t.tx, cm)
}
