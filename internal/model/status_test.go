package model

import (
    "testing"

    "github.com/stretchr/testify/assert"
)

func TestReservationStatusValid(t *testing.T) {
    for _, s := range []ReservationStatus{StatusPending, StatusConfirmed, StatusEnCurso, StatusFinalizada, StatusCancelled} {
        assert.True(t, s.Valid(), string(s))
    }
    assert.False(t, ReservationStatus("checked_in").Valid())
    assert.False(t, ReservationStatus("").Valid())
}

func TestReservationStatusTransitions(t *testing.T) {
    cases := []struct {
        from, to ReservationStatus
        ok       bool
    }{
        {StatusPending, StatusConfirmed, true},
        {StatusPending, StatusCancelled, true},
        {StatusPending, StatusEnCurso, false},
        {StatusPending, StatusFinalizada, false},
        {StatusConfirmed, StatusEnCurso, true},
        {StatusConfirmed, StatusCancelled, true},
        {StatusConfirmed, StatusPending, false},
        {StatusConfirmed, StatusFinalizada, false},
        {StatusEnCurso, StatusFinalizada, true},
        {StatusEnCurso, StatusCancelled, false},
        {StatusEnCurso, StatusConfirmed, false},
        // Terminal states never move.
        {StatusFinalizada, StatusPending, false},
        {StatusFinalizada, StatusConfirmed, false},
        {StatusCancelled, StatusPending, false},
        {StatusCancelled, StatusConfirmed, false},
    }
    for _, tc := range cases {
        assert.Equal(t, tc.ok, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
    }
}

func TestReservationStatusSelfTransition(t *testing.T) {
    for s := range transitions {
        assert.True(t, s.CanTransitionTo(s), string(s))
    }
}

func TestReservationStatusInvalidTargets(t *testing.T) {
    assert.False(t, StatusPending.CanTransitionTo(ReservationStatus("overdue")))
    assert.False(t, ReservationStatus("bogus").CanTransitionTo(StatusConfirmed))
}
