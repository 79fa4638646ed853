package ledger

import (
    "context"
    "errors"

    "github.com/shopspring/decimal"

    "github.com/admintermas/reservas-api/internal/model"
)

// Sentinel errors returned by Store implementations.  Handlers translate
// them into HTTP status codes; the processor wraps nothing so callers
// can match with errors.Is.
var (
    // ErrReservationNotFound is returned when neither a reservation nor
    // a modular reservation matches the supplied identifier.
    ErrReservationNotFound = errors.New("reserva no encontrada")

    // ErrNoLineItems is returned when a reservation has no modular
    // reservation rows.  Such a reservation is considered incomplete
    // and cannot accept payments.
    ErrNoLineItems = errors.New("la reserva no tiene programas asociados")
)

// Store is the persistence boundary of the payment ledger.  The MySQL
// implementation lives in internal/repository; tests run the processor
// against an in-memory implementation with the same transactional
// semantics.
type Store interface {
    // InTx runs fn inside a single database transaction.  The
    // transaction commits iff fn returns nil; any error rolls back
    // every write fn performed.
    InTx(ctx context.Context, fn func(Tx) error) error

    // ResolveReservationID maps an identifier to the canonical
    // reservation id: a direct primary-key match wins, otherwise the id
    // is treated as a modular_reservations id and mapped to its parent.
    // Returns ErrReservationNotFound when neither exists.
    ResolveReservationID(ctx context.Context, id uint64) (uint64, error)

    // ListPayments returns the payment history for a reservation,
    // newest first.  An unprovisioned payments table yields an empty
    // history, not an error.
    ListPayments(ctx context.Context, reservationID uint64) ([]model.PaymentRecord, error)
}

// Tx is the set of ledger operations available inside a transaction.
type Tx interface {
    // ReservationForUpdate loads a reservation row and locks it for the
    // remainder of the transaction, serializing concurrent payments
    // against the same reservation.
    ReservationForUpdate(ctx context.Context, id uint64) (*model.Reservation, error)

    // LineItemCount returns the number of modular reservation rows
    // attached to the reservation.
    LineItemCount(ctx context.Context, reservationID uint64) (int, error)

    // InsertPayment appends a row to the payment ledger and fills in
    // the generated ID and CreatedAt on the record.
    InsertPayment(ctx context.Context, rec *model.PaymentRecord) error

    // ApplyBalances writes the recomputed balance state back to the
    // reservation row and refreshes its updated_at timestamp.
    ApplyBalances(ctx context.Context, reservationID uint64, paid, pending decimal.Decimal, ps model.PaymentStatus, st model.ReservationStatus) error

    // UpdateStatus sets the reservation's operational status.
    UpdateStatus(ctx context.Context, reservationID uint64, st model.ReservationStatus) error

    // MirrorLineItemStatus copies the reservation status onto its
    // modular reservation rows.
    MirrorLineItemStatus(ctx context.Context, reservationID uint64, st model.ReservationStatus) error

    // InsertComment appends an audit comment to the reservation.
    InsertComment(ctx context.Context, cm *model.Comment) error
}
