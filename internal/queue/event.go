// Package queue defines message payloads exchanged over the message broker.
package queue

import (
    "time"

    "github.com/google/uuid"
    "github.com/shopspring/decimal"

    "github.com/admintermas/reservas-api/internal/model"
)

// PaymentRecordedEvent is published after a payment commits.  It carries
// the full balance snapshot so downstream consumers (night audit log,
// notifications, analytics) never have to query the primary database.
type PaymentRecordedEvent struct {
    EventID          string          `json:"event_id"`
    ReservationID    uint64          `json:"reservation_id"`
    PaymentID        uint64          `json:"payment_id"`
    GuestName        string          `json:"guest_name"`
    Amount           decimal.Decimal `json:"amount"`
    PaymentType      string          `json:"payment_type"`
    PaymentMethod    string          `json:"payment_method"`
    NewTotalPaid     decimal.Decimal `json:"new_total_paid"`
    RemainingBalance decimal.Decimal `json:"remaining_balance"`
    TotalAmount      decimal.Decimal `json:"total_amount"`
    ProcessedBy      string          `json:"processed_by"`
    RecordedAt       string          `json:"recorded_at"`
}

// NewPaymentRecordedEvent builds the event for a committed payment.
func NewPaymentRecordedEvent(res *model.Reservation, rec *model.PaymentRecord) PaymentRecordedEvent {
    return PaymentRecordedEvent{
        EventID:          uuid.NewString(),
        ReservationID:    rec.ReservationID,
        PaymentID:        rec.ID,
        GuestName:        res.GuestName,
        Amount:           rec.Amount,
        PaymentType:      string(rec.PaymentType),
        PaymentMethod:    rec.PaymentMethod,
        NewTotalPaid:     rec.NewTotalPaid,
        RemainingBalance: rec.RemainingBalance,
        TotalAmount:      rec.TotalReservation,
        ProcessedBy:      rec.ProcessedBy,
        RecordedAt:       time.Now().UTC().Format(time.RFC3339),
    }
}
