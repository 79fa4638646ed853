// Package ledger implements the reservation payment ledger: it applies
// payments to reservations, recomputes paid/pending balances, classifies
// payments, and keeps the reservation row, the append-only payment
// history and the audit comments consistent under one transaction.
package ledger

import (
    "context"
    "errors"
    "fmt"

    "github.com/shopspring/decimal"
    "github.com/sirupsen/logrus"

    "github.com/admintermas/reservas-api/internal/model"
    "github.com/admintermas/reservas-api/internal/queue"
)

// ErrAmountNotPositive is returned when the submitted payment amount is
// zero or negative.
var ErrAmountNotPositive = errors.New("el monto del pago debe ser mayor que cero")

// ErrInvalidStatus is returned when a status change names a value
// outside the closed reservation status set.
var ErrInvalidStatus = errors.New("estado de reserva no válido")

// ExceedsPendingError rejects a payment larger than the reservation's
// pending balance.  Both amounts are carried for caller display; no
// partial application is attempted.
type ExceedsPendingError struct {
    Amount  decimal.Decimal
    Pending decimal.Decimal
}

func (e *ExceedsPendingError) Error() string {
    return fmt.Sprintf("el monto $%s excede el saldo pendiente de $%s", e.Amount.String(), e.Pending.String())
}

// IllegalTransitionError rejects a status change not present in the
// reservation transition table.
type IllegalTransitionError struct {
    From model.ReservationStatus
    To   model.ReservationStatus
}

func (e *IllegalTransitionError) Error() string {
    return fmt.Sprintf("transición de estado no permitida: %s -> %s", e.From, e.To)
}

// Publisher emits domain events after a ledger write commits.  Failures
// are logged and otherwise ignored; the ledger never depends on the
// broker being reachable.
type Publisher interface {
    PublishPaymentRecorded(ctx context.Context, ev queue.PaymentRecordedEvent) error
}

// PaymentInput is the contract for recording one payment against one
// reservation.
type PaymentInput struct {
    ReservationID   uint64
    Amount          decimal.Decimal
    PaymentMethod   string
    ReferenceNumber string
    Notes           string
    ProcessedBy     string
}

// PaymentResult is returned to the caller after a successful payment.
type PaymentResult struct {
    PaymentType      model.PaymentType    `json:"payment_type"`
    NewTotalPaid     decimal.Decimal      `json:"new_total_paid"`
    RemainingBalance decimal.Decimal      `json:"remaining_balance"`
    PaymentRecord    *model.PaymentRecord `json:"payment_record"`
    Message          string               `json:"message"`
}

// Processor applies payments and status changes to reservations.  All
// mutations run inside a single transaction with the reservation row
// locked, so concurrent submissions against the same reservation
// serialize instead of losing updates.
type Processor struct {
    store Store
    pub   Publisher
    log   *logrus.Logger
}

// NewProcessor builds a Processor.  pub may be nil when no broker is
// configured; events are then skipped.
func NewProcessor(store Store, pub Publisher, log *logrus.Logger) *Processor {
    if store == nil {
        panic("nil store passed to NewProcessor")
    }
    if log == nil {
        log = logrus.New()
    }
    return &Processor{store: store, pub: pub, log: log}
}

// ProcessPayment applies one payment to one reservation.
//
// Inside a single transaction it locks the reservation row, verifies the
// reservation has at least one modular line item, validates the amount
// against the pending balance, appends the payment record, writes the
// recomputed balances back, and appends an audit comment.  Any failure
// rolls back every write.  After commit a payment.recorded event is
// published best-effort.
func (p *Processor) ProcessPayment(ctx context.Context, in PaymentInput) (*PaymentResult, error) {
    if !in.Amount.IsPositive() {
        return nil, ErrAmountNotPositive
    }
    canonical, err := p.store.ResolveReservationID(ctx, in.ReservationID)
    if err != nil {
        return nil, err
    }

    var (
        rec    model.PaymentRecord
        result PaymentResult
        res    *model.Reservation
    )
    err = p.store.InTx(ctx, func(tx Tx) error {
        var err error
        res, err = tx.ReservationForUpdate(ctx, canonical)
        if err != nil {
            return err
        }
        n, err := tx.LineItemCount(ctx, res.ID)
        if err != nil {
            return err
        }
        if n == 0 {
            return ErrNoLineItems
        }

        total := res.TotalAmount
        currentPaid := res.PaidAmount
        currentPending := floorZero(total.Sub(currentPaid))
        if in.Amount.GreaterThan(currentPending) {
            return &ExceedsPendingError{Amount: in.Amount, Pending: currentPending}
        }

        newTotalPaid := currentPaid.Add(in.Amount)
        newPending := floorZero(total.Sub(newTotalPaid))
        paymentType := classifyPayment(newPending)
        paymentStatus := classifyPaymentStatus(newTotalPaid, total)
        newStatus := statusAfterPayment(res.Status)

        rec = model.PaymentRecord{
            ReservationID:    res.ID,
            Amount:           in.Amount,
            PaymentType:      paymentType,
            PaymentMethod:    in.PaymentMethod,
            PreviousPaid:     currentPaid,
            NewTotalPaid:     newTotalPaid,
            RemainingBalance: newPending,
            TotalReservation: total,
            ReferenceNumber:  in.ReferenceNumber,
            Notes:            in.Notes,
            ProcessedBy:      in.ProcessedBy,
        }
        if err := tx.InsertPayment(ctx, &rec); err != nil {
            return err
        }
        if err := tx.ApplyBalances(ctx, res.ID, newTotalPaid, newPending, paymentStatus, newStatus); err != nil {
            return err
        }
        if err := tx.InsertComment(ctx, &model.Comment{
            ReservationID: res.ID,
            Text:          paymentComment(in.Amount, paymentType, in.PaymentMethod, newPending),
            CommentType:   model.CommentTypePayment,
            Author:        in.ProcessedBy,
        }); err != nil {
            return err
        }

        result = PaymentResult{
            PaymentType:      paymentType,
            NewTotalPaid:     newTotalPaid,
            RemainingBalance: newPending,
            PaymentRecord:    &rec,
            Message:          paymentMessage(in.Amount, paymentType, newPending),
        }
        return nil
    })
    if err != nil {
        return nil, err
    }

    p.publishRecorded(ctx, res, &rec)
    return &result, nil
}

// ChangeStatus updates a reservation's operational status independently
// of payments.  The supplied id is resolved to the canonical reservation
// id once (direct hit first, modular fallback second), the transition is
// checked against the transition table, and the new status is mirrored
// onto the modular reservation rows.  It returns the canonical id.
func (p *Processor) ChangeStatus(ctx context.Context, id uint64, next model.ReservationStatus) (uint64, error) {
    if !next.Valid() {
        return 0, ErrInvalidStatus
    }
    canonical, err := p.store.ResolveReservationID(ctx, id)
    if err != nil {
        return 0, err
    }
    err = p.store.InTx(ctx, func(tx Tx) error {
        res, err := tx.ReservationForUpdate(ctx, canonical)
        if err != nil {
            return err
        }
        if res.Status == next {
            return nil // no-op, not an error
        }
        if !res.Status.CanTransitionTo(next) {
            return &IllegalTransitionError{From: res.Status, To: next}
        }
        if err := tx.UpdateStatus(ctx, canonical, next); err != nil {
            return err
        }
        return tx.MirrorLineItemStatus(ctx, canonical, next)
    })
    if err != nil {
        return 0, err
    }
    return canonical, nil
}

// PaymentHistory returns the payment records for a reservation, newest
// first.  The id goes through the same canonical resolver used by
// ChangeStatus, so callers may pass either a reservation id or a
// modular reservation id.
func (p *Processor) PaymentHistory(ctx context.Context, id uint64) ([]model.PaymentRecord, error) {
    canonical, err := p.store.ResolveReservationID(ctx, id)
    if err != nil {
        return nil, err
    }
    return p.store.ListPayments(ctx, canonical)
}

func (p *Processor) publishRecorded(ctx context.Context, res *model.Reservation, rec *model.PaymentRecord) {
    if p.pub == nil {
        return
    }
    ev := queue.NewPaymentRecordedEvent(res, rec)
    if err := p.pub.PublishPaymentRecorded(ctx, ev); err != nil {
        p.log.WithError(err).WithFields(logrus.Fields{
            "reservation_id": res.ID,
            "payment_id":     rec.ID,
        }).Warn("payment.recorded publish failed")
    }
}

// floorZero clamps negative balances to zero.
func floorZero(d decimal.Decimal) decimal.Decimal {
    if d.IsNegative() {
        return decimal.Zero
    }
    return d
}

// classifyPayment labels a payment pago_total when it closes the balance
// to zero, abono otherwise.
func classifyPayment(newPending decimal.Decimal) model.PaymentType {
    if newPending.IsZero() {
        return model.PaymentTypePagoTotal
    }
    return model.PaymentTypeAbono
}

// classifyPaymentStatus derives the reservation's payment_status from
// the cumulative paid amount.
func classifyPaymentStatus(newTotalPaid, total decimal.Decimal) model.PaymentStatus {
    switch {
    case newTotalPaid.GreaterThanOrEqual(total):
        return model.PaymentStatusPaid
    case newTotalPaid.LessThanOrEqual(decimal.Zero):
        return model.PaymentStatusNone
    default:
        return model.PaymentStatusPartial
    }
}

// statusAfterPayment confirms a reservation on payment but never
// advances or regresses occupancy states: a payment against a checked-in
// or checked-out reservation leaves its status untouched.
func statusAfterPayment(current model.ReservationStatus) model.ReservationStatus {
    if current == model.StatusPending || current == model.StatusConfirmed {
        return model.StatusConfirmed
    }
    return current
}

func paymentComment(amount decimal.Decimal, pt model.PaymentType, method string, pending decimal.Decimal) string {
    if pt == model.PaymentTypePagoTotal {
        return fmt.Sprintf("Pago registrado: $%s vía %s. Reserva pagada por completo.", amount.String(), method)
    }
    return fmt.Sprintf("Abono registrado: $%s vía %s. Saldo pendiente: $%s.", amount.String(), method, pending.String())
}

func paymentMessage(amount decimal.Decimal, pt model.PaymentType, pending decimal.Decimal) string {
    if pt == model.PaymentTypePagoTotal {
        return fmt.Sprintf("Pago de $%s registrado. La reserva quedó pagada por completo.", amount.String())
    }
    return fmt.Sprintf("Abono de $%s registrado. Saldo pendiente: $%s.", amount.String(), pending.String())
}
