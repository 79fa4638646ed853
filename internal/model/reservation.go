package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// ReservationStatus is the operational state of a reservation.  It is a
// closed enumeration: the status helper rejects values outside this set
// and transitions not present in the transition table below.
type ReservationStatus string

const (
    StatusPending    ReservationStatus = "pending"    // created, not yet confirmed
    StatusConfirmed  ReservationStatus = "confirmed"  // confirmed by front desk or by payment
    StatusEnCurso    ReservationStatus = "en_curso"   // guest checked in
    StatusFinalizada ReservationStatus = "finalizada" // guest checked out
    StatusCancelled  ReservationStatus = "cancelled"  // cancelled before check-in
)

// transitions lists the legal successor states for each status.  Terminal
// states (finalizada, cancelled) have no successors.  Re-asserting the
// current status is always allowed and treated as a no-op by callers.
var transitions = map[ReservationStatus][]ReservationStatus{
    StatusPending:    {StatusConfirmed, StatusCancelled},
    StatusConfirmed:  {StatusEnCurso, StatusCancelled},
    StatusEnCurso:    {StatusFinalizada},
    StatusFinalizada: {},
    StatusCancelled:  {},
}

// Valid reports whether s is a member of the closed status set.
func (s ReservationStatus) Valid() bool {
    _, ok := transitions[s]
    return ok
}

// CanTransitionTo reports whether moving from s to next is a legal
// transition.  A self-transition is legal for every valid status.
func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
    if !s.Valid() || !next.Valid() {
        return false
    }
    if s == next {
        return true
    }
    for _, t := range transitions[s] {
        if t == next {
            return true
        }
    }
    return false
}

// Reservation is a booking record with a running payment balance.  The
// parent row's TotalAmount is the single authoritative grand total; the
// modular line items carry itemized pricing for display only and are
// never summed by the ledger.
//
// Invariant maintained by the ledger: PaidAmount + PendingAmount ==
// TotalAmount whenever PaidAmount <= TotalAmount, and PendingAmount is
// never negative.
type Reservation struct {
    ID            uint64            // reservations.id
    GuestName     string            // reservations.guest_name
    GuestEmail    string            // reservations.guest_email
    CheckIn       time.Time         // reservations.check_in
    CheckOut      time.Time         // reservations.check_out
    TotalAmount   decimal.Decimal   // reservations.total_amount (authoritative)
    PaidAmount    decimal.Decimal   // reservations.paid_amount
    PendingAmount decimal.Decimal   // reservations.pending_amount (total - paid, floored at 0)
    PaymentStatus PaymentStatus     // reservations.payment_status
    Status        ReservationStatus // reservations.status
    CreatedAt     time.Time         // reservations.created_at
    UpdatedAt     time.Time         // reservations.updated_at
}

// ModularReservation is a line-item grouping (room plus add-on packages)
// attached to one Reservation.  At least one row must exist for a
// reservation to accept payments; beyond that existence check the
// ledger treats these rows as read-only historical detail.
type ModularReservation struct {
    ID            uint64            // modular_reservations.id
    ReservationID uint64            // modular_reservations.reservation_id
    RoomCode      string            // modular_reservations.room_code
    PackageCode   string            // modular_reservations.package_code
    GrandTotal    decimal.Decimal   // modular_reservations.grand_total
    FinalPrice    decimal.Decimal   // modular_reservations.final_price
    Status        ReservationStatus // modular_reservations.status (mirrored from parent)
    CreatedAt     time.Time         // modular_reservations.created_at
}
