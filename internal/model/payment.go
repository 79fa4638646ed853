package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// PaymentType classifies a single payment against a reservation.
type PaymentType string

const (
    PaymentTypeAbono     PaymentType = "abono"      // partial payment, balance remains
    PaymentTypePagoTotal PaymentType = "pago_total" // payment that closes the balance to zero
)

// PaymentStatus summarizes how much of a reservation's total has been
// collected.  The ledger never produces "overdue"; it is set by an
// external dunning process and accepted on read.
type PaymentStatus string

const (
    PaymentStatusNone    PaymentStatus = "no_payment"
    PaymentStatusPartial PaymentStatus = "partial"
    PaymentStatusPaid    PaymentStatus = "paid"
    PaymentStatusOverdue PaymentStatus = "overdue"
)

// PaymentRecord is one row of the append-only reservation_payments
// ledger.  Each row captures the full before/after balance snapshot at
// the moment the payment was applied, so history stays meaningful even
// if the reservation row is later corrected.  Rows are never updated
// or deleted.
type PaymentRecord struct {
    ID                uint64          `json:"id"`                       // reservation_payments.id
    ReservationID     uint64          `json:"reservation_id"`           // reservation_payments.reservation_id
    Amount            decimal.Decimal `json:"amount"`                   // amount applied by this payment
    PaymentType       PaymentType     `json:"payment_type"`             // abono | pago_total
    PaymentMethod     string          `json:"payment_method"`           // e.g. efectivo, tarjeta, transferencia
    PreviousPaid      decimal.Decimal `json:"previous_paid_amount"`     // paid_amount before this payment
    NewTotalPaid      decimal.Decimal `json:"new_total_paid"`           // paid_amount after this payment
    RemainingBalance  decimal.Decimal `json:"remaining_balance"`        // pending_amount after this payment
    TotalReservation  decimal.Decimal `json:"total_reservation_amount"` // reservation total at payment time
    ReferenceNumber   string          `json:"reference_number,omitempty"`
    Notes             string          `json:"notes,omitempty"`
    ProcessedBy       string          `json:"processed_by"` // identity of the actor recording the payment
    CreatedAt         time.Time       `json:"created_at"`
}
