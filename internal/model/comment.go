package model

import "time"

// CommentTypePayment tags comments generated automatically by the
// payment ledger.  Manually entered comments use other types.
const CommentTypePayment = "payment"

// Comment is an append-only audit note attached to a reservation.  The
// ledger writes one per successful payment summarizing the event; rows
// are never mutated afterwards.
type Comment struct {
    ID            uint64    `json:"id"`             // reservation_comments.id
    ReservationID uint64    `json:"reservation_id"` // reservation_comments.reservation_id
    Text          string    `json:"text"`           // human-readable summary
    CommentType   string    `json:"comment_type"`   // "payment" for ledger-generated rows
    Author        string    `json:"author"`         // actor that caused the comment
    CreatedAt     time.Time `json:"created_at"`
}
