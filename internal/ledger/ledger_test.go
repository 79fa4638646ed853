package ledger

import (
    "context"
    "errors"
    "testing"
    "time"

    "github.com/shopspring/decimal"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/admintermas/reservas-api/internal/model"
    "github.com/admintermas/reservas-api/internal/queue"
)

// ----- in-memory store -----

// memoryState is the mutable world a memoryStore guards.  Transactions
// operate on a deep copy; commit swaps the copy in, so a failed fn
// leaves the original state untouched, matching the SQL rollback
// semantics the processor relies on.
type memoryState struct {
    reservations  map[uint64]*model.Reservation
    lineItems     map[uint64]int
    modular       map[uint64]uint64 // modular id -> parent reservation id
    payments      []model.PaymentRecord
    comments      []model.Comment
    mirrored      map[uint64]model.ReservationStatus
    nextPaymentID uint64
    nextCommentID uint64
}

func (st *memoryState) clone() *memoryState {
    cp := &memoryState{
        reservations:  make(map[uint64]*model.Reservation, len(st.reservations)),
        lineItems:     make(map[uint64]int, len(st.lineItems)),
        modular:       make(map[uint64]uint64, len(st.modular)),
        payments:      append([]model.PaymentRecord(nil), st.payments...),
        comments:      append([]model.Comment(nil), st.comments...),
        mirrored:      make(map[uint64]model.ReservationStatus, len(st.mirrored)),
        nextPaymentID: st.nextPaymentID,
        nextCommentID: st.nextCommentID,
    }
    for id, r := range st.reservations {
        c := *r
        cp.reservations[id] = &c
    }
    for id, n := range st.lineItems {
        cp.lineItems[id] = n
    }
    for id, rid := range st.modular {
        cp.modular[id] = rid
    }
    for id, s := range st.mirrored {
        cp.mirrored[id] = s
    }
    return cp
}

type memoryStore struct {
    state *memoryState
}

func newMemoryStore() *memoryStore {
    return &memoryStore{state: &memoryState{
        reservations: map[uint64]*model.Reservation{},
        lineItems:    map[uint64]int{},
        modular:      map[uint64]uint64{},
        mirrored:     map[uint64]model.ReservationStatus{},
    }}
}

func (s *memoryStore) InTx(ctx context.Context, fn func(Tx) error) error {
    staged := s.state.clone()
    if err := fn(&memoryTx{st: staged}); err != nil {
        return err
    }
    s.state = staged
    return nil
}

func (s *memoryStore) ResolveReservationID(ctx context.Context, id uint64) (uint64, error) {
    if _, ok := s.state.reservations[id]; ok {
        return id, nil
    }
    if rid, ok := s.state.modular[id]; ok {
        return rid, nil
    }
    return 0, ErrReservationNotFound
}

func (s *memoryStore) ListPayments(ctx context.Context, reservationID uint64) ([]model.PaymentRecord, error) {
    out := []model.PaymentRecord{}
    for i := len(s.state.payments) - 1; i >= 0; i-- {
        if s.state.payments[i].ReservationID == reservationID {
            out = append(out, s.state.payments[i])
        }
    }
    return out, nil
}

type memoryTx struct {
    st *memoryState
}

func (t *memoryTx) ReservationForUpdate(ctx context.Context, id uint64) (*model.Reservation, error) {
    r, ok := t.st.reservations[id]
    if !ok {
        return nil, ErrReservationNotFound
    }
    cp := *r
    return &cp, nil
}

func (t *memoryTx) LineItemCount(ctx context.Context, reservationID uint64) (int, error) {
    return t.st.lineItems[reservationID], nil
}

func (t *memoryTx) InsertPayment(ctx context.Context, rec *model.PaymentRecord) error {
    t.st.nextPaymentID++
    rec.ID = t.st.nextPaymentID
    rec.CreatedAt = time.Now().UTC()
    t.st.payments = append(t.st.payments, *rec)
    return nil
}

func (t *memoryTx) ApplyBalances(ctx context.Context, reservationID uint64, paid, pending decimal.Decimal, ps model.PaymentStatus, st model.ReservationStatus) error {
    r, ok := t.st.reservations[reservationID]
    if !ok {
        return ErrReservationNotFound
    }
    r.PaidAmount = paid
    r.PendingAmount = pending
    r.PaymentStatus = ps
    r.Status = st
    r.UpdatedAt = time.Now().UTC()
    return nil
}

func (t *memoryTx) UpdateStatus(ctx context.Context, reservationID uint64, st model.ReservationStatus) error {
    r, ok := t.st.reservations[reservationID]
    if !ok {
        return ErrReservationNotFound
    }
    r.Status = st
    return nil
}

func (t *memoryTx) MirrorLineItemStatus(ctx context.Context, reservationID uint64, st model.ReservationStatus) error {
    t.st.mirrored[reservationID] = st
    return nil
}

func (t *memoryTx) InsertComment(ctx context.Context, cm *model.Comment) error {
    t.st.nextCommentID++
    cm.ID = t.st.nextCommentID
    cm.CreatedAt = time.Now().UTC()
    t.st.comments = append(t.st.comments, *cm)
    return nil
}

// capturePublisher records published events; optionally fails.
type capturePublisher struct {
    events []queue.PaymentRecordedEvent
    fail   bool
}

func (p *capturePublisher) PublishPaymentRecorded(ctx context.Context, ev queue.PaymentRecordedEvent) error {
    if p.fail {
        return errors.New("broker down")
    }
    p.events = append(p.events, ev)
    return nil
}

// ----- helpers -----

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seedReservation(s *memoryStore, id uint64, total, paid string, status model.ReservationStatus, lineItems int) {
    totalD := d(total)
    paidD := d(paid)
    s.state.reservations[id] = &model.Reservation{
        ID:            id,
        GuestName:     "María Pérez",
        TotalAmount:   totalD,
        PaidAmount:    paidD,
        PendingAmount: totalD.Sub(paidD),
        PaymentStatus: model.PaymentStatusNone,
        Status:        status,
    }
    s.state.lineItems[id] = lineItems
}

func newTestProcessor(s *memoryStore) (*Processor, *capturePublisher) {
    pub := &capturePublisher{}
    return NewProcessor(s, pub, nil), pub
}

// ----- ProcessPayment -----

func TestProcessPaymentPartial(t *testing.T) {
    s := newMemoryStore()
    seedReservation(s, 1, "100.00", "0", model.StatusPending, 1)
    p, pub := newTestProcessor(s)

    res, err := p.ProcessPayment(context.Background(), PaymentInput{
        ReservationID: 1,
        Amount:        d("40.00"),
        PaymentMethod: "efectivo",
        ProcessedBy:   "user:7",
    })
    require.NoError(t, err)

    assert.Equal(t, model.PaymentTypeAbono, res.PaymentType)
    assert.True(t, res.NewTotalPaid.Equal(d("40.00")))
    assert.True(t, res.RemainingBalance.Equal(d("60.00")))

    r := s.state.reservations[1]
    assert.True(t, r.PaidAmount.Equal(d("40.00")))
    assert.True(t, r.PendingAmount.Equal(d("60.00")))
    assert.Equal(t, model.PaymentStatusPartial, r.PaymentStatus)
    assert.Equal(t, model.StatusConfirmed, r.Status)

    require.Len(t, s.state.payments, 1)
    rec := s.state.payments[0]
    assert.True(t, rec.PreviousPaid.Equal(d("0")))
    assert.True(t, rec.NewTotalPaid.Equal(d("40.00")))
    assert.True(t, rec.TotalReservation.Equal(d("100.00")))
    assert.Equal(t, "user:7", rec.ProcessedBy)

    require.Len(t, s.state.comments, 1)
    assert.Equal(t, model.CommentTypePayment, s.state.comments[0].CommentType)
    assert.Contains(t, s.state.comments[0].Text, "Abono registrado")

    require.Len(t, pub.events, 1)
    assert.Equal(t, uint64(1), pub.events[0].ReservationID)
}

func TestProcessPaymentClosesBalance(t *testing.T) {
    s := newMemoryStore()
    seedReservation(s, 1, "100.00", "60.00", model.StatusConfirmed, 2)
    p, _ := newTestProcessor(s)

    res, err := p.ProcessPayment(context.Background(), PaymentInput{
        ReservationID: 1,
        Amount:        d("40.00"),
        PaymentMethod: "tarjeta",
        ProcessedBy:   "user:7",
    })
    require.NoError(t, err)

    assert.Equal(t, model.PaymentTypePagoTotal, res.PaymentType)
    assert.True(t, res.RemainingBalance.IsZero())

    r := s.state.reservations[1]
    assert.Equal(t, model.PaymentStatusPaid, r.PaymentStatus)
    assert.Equal(t, model.StatusConfirmed, r.Status)
    assert.True(t, r.PaidAmount.Equal(d("100.00")))
    assert.True(t, r.PendingAmount.IsZero())

    assert.Contains(t, s.state.comments[0].Text, "pagada por completo")
}

func TestProcessPaymentExceedsPending(t *testing.T) {
    s := newMemoryStore()
    seedReservation(s, 1, "100.00", "60.00", model.StatusConfirmed, 1)
    p, pub := newTestProcessor(s)

    _, err := p.ProcessPayment(context.Background(), PaymentInput{
        ReservationID: 1,
        Amount:        d("50.00"),
        PaymentMethod: "efectivo",
    })
    var exceeds *ExceedsPendingError
    require.ErrorAs(t, err, &exceeds)
    assert.True(t, exceeds.Amount.Equal(d("50.00")))
    assert.True(t, exceeds.Pending.Equal(d("40.00")))
    assert.Contains(t, err.Error(), "excede el saldo pendiente")

    // Rejection writes nothing.
    r := s.state.reservations[1]
    assert.True(t, r.PaidAmount.Equal(d("60.00")))
    assert.Empty(t, s.state.payments)
    assert.Empty(t, s.state.comments)
    assert.Empty(t, pub.events)
}

func TestProcessPaymentNoLineItems(t *testing.T) {
    s := newMemoryStore()
    seedReservation(s, 1, "100.00", "0", model.StatusPending, 0)
    p, pub := newTestProcessor(s)

    _, err := p.ProcessPayment(context.Background(), PaymentInput{
        ReservationID: 1,
        Amount:        d("10.00"),
        PaymentMethod: "efectivo",
    })
    require.ErrorIs(t, err, ErrNoLineItems)
    assert.Empty(t, s.state.payments)
    assert.Empty(t, pub.events)
}

func TestProcessPaymentAmountMustBePositive(t *testing.T) {
    s := newMemoryStore()
    seedReservation(s, 1, "100.00", "0", model.StatusPending, 1)
    p, _ := newTestProcessor(s)

    for _, amount := range []string{"0", "-5.00"} {
        _, err := p.ProcessPayment(context.Background(), PaymentInput{
            ReservationID: 1,
            Amount:        d(amount),
            PaymentMethod: "efectivo",
        })
        require.ErrorIs(t, err, ErrAmountNotPositive, "amount %s", amount)
    }
    assert.Empty(t, s.state.payments)
}

func TestProcessPaymentUnknownReservation(t *testing.T) {
    s := newMemoryStore()
    p, _ := newTestProcessor(s)

    _, err := p.ProcessPayment(context.Background(), PaymentInput{
        ReservationID: 999,
        Amount:        d("10.00"),
        PaymentMethod: "efectivo",
    })
    require.ErrorIs(t, err, ErrReservationNotFound)
}

func TestProcessPaymentResolvesModularID(t *testing.T) {
    s := newMemoryStore()
    seedReservation(s, 10, "200.00", "0", model.StatusPending, 1)
    s.state.modular[77] = 10 // legacy callers pass the line-item id

    p, _ := newTestProcessor(s)
    res, err := p.ProcessPayment(context.Background(), PaymentInput{
        ReservationID: 77,
        Amount:        d("200.00"),
        PaymentMethod: "transferencia",
    })
    require.NoError(t, err)
    assert.Equal(t, model.PaymentTypePagoTotal, res.PaymentType)
    assert.Equal(t, uint64(10), res.PaymentRecord.ReservationID)
}

func TestProcessPaymentIsNotIdempotent(t *testing.T) {
    s := newMemoryStore()
    seedReservation(s, 1, "100.00", "0", model.StatusPending, 1)
    p, _ := newTestProcessor(s)

    // The same submission twice applies twice: retries must be handled
    // by the caller, not silently deduplicated.
    for i := 0; i < 2; i++ {
        _, err := p.ProcessPayment(context.Background(), PaymentInput{
            ReservationID: 1,
            Amount:        d("30.00"),
            PaymentMethod: "efectivo",
        })
        require.NoError(t, err)
    }
    r := s.state.reservations[1]
    assert.True(t, r.PaidAmount.Equal(d("60.00")))
    assert.Len(t, s.state.payments, 2)
}

func TestProcessPaymentKeepsOccupancyStatus(t *testing.T) {
    s := newMemoryStore()
    seedReservation(s, 1, "100.00", "50.00", model.StatusEnCurso, 1)
    p, _ := newTestProcessor(s)

    _, err := p.ProcessPayment(context.Background(), PaymentInput{
        ReservationID: 1,
        Amount:        d("50.00"),
        PaymentMethod: "efectivo",
    })
    require.NoError(t, err)
    // A payment during the stay settles the balance without touching
    // the occupancy state.
    assert.Equal(t, model.StatusEnCurso, s.state.reservations[1].Status)
    assert.Equal(t, model.PaymentStatusPaid, s.state.reservations[1].PaymentStatus)
}

func TestProcessPaymentSurvivesBrokerFailure(t *testing.T) {
    s := newMemoryStore()
    seedReservation(s, 1, "100.00", "0", model.StatusPending, 1)
    pub := &capturePublisher{fail: true}
    p := NewProcessor(s, pub, nil)

    res, err := p.ProcessPayment(context.Background(), PaymentInput{
        ReservationID: 1,
        Amount:        d("40.00"),
        PaymentMethod: "efectivo",
    })
    require.NoError(t, err)
    assert.NotNil(t, res)
    // Payment committed even though the event could not be published.
    assert.Len(t, s.state.payments, 1)
}

// ----- ChangeStatus -----

func TestChangeStatusLegalTransition(t *testing.T) {
    s := newMemoryStore()
    seedReservation(s, 1, "100.00", "100.00", model.StatusConfirmed, 2)
    p, _ := newTestProcessor(s)

    id, err := p.ChangeStatus(context.Background(), 1, model.StatusEnCurso)
    require.NoError(t, err)
    assert.Equal(t, uint64(1), id)
    assert.Equal(t, model.StatusEnCurso, s.state.reservations[1].Status)
    assert.Equal(t, model.StatusEnCurso, s.state.mirrored[1])
}

func TestChangeStatusIllegalTransition(t *testing.T) {
    s := newMemoryStore()
    seedReservation(s, 1, "100.00", "0", model.StatusPending, 1)
    p, _ := newTestProcessor(s)

    _, err := p.ChangeStatus(context.Background(), 1, model.StatusFinalizada)
    var illegal *IllegalTransitionError
    require.ErrorAs(t, err, &illegal)
    assert.Equal(t, model.StatusPending, illegal.From)
    assert.Equal(t, model.StatusFinalizada, illegal.To)
    assert.Equal(t, model.StatusPending, s.state.reservations[1].Status)
}

func TestChangeStatusSameStatusIsNoOp(t *testing.T) {
    s := newMemoryStore()
    seedReservation(s, 1, "100.00", "0", model.StatusConfirmed, 1)
    p, _ := newTestProcessor(s)

    id, err := p.ChangeStatus(context.Background(), 1, model.StatusConfirmed)
    require.NoError(t, err)
    assert.Equal(t, uint64(1), id)
    // No mirror write happened.
    _, mirrored := s.state.mirrored[1]
    assert.False(t, mirrored)
}

func TestChangeStatusRejectsUnknownValue(t *testing.T) {
    s := newMemoryStore()
    seedReservation(s, 1, "100.00", "0", model.StatusPending, 1)
    p, _ := newTestProcessor(s)

    _, err := p.ChangeStatus(context.Background(), 1, model.ReservationStatus("checked_in"))
    require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestChangeStatusResolvesModularID(t *testing.T) {
    s := newMemoryStore()
    seedReservation(s, 10, "100.00", "0", model.StatusPending, 1)
    s.state.modular[55] = 10

    p, _ := newTestProcessor(s)
    id, err := p.ChangeStatus(context.Background(), 55, model.StatusCancelled)
    require.NoError(t, err)
    assert.Equal(t, uint64(10), id)
    assert.Equal(t, model.StatusCancelled, s.state.reservations[10].Status)
}

func TestChangeStatusUnknownReservation(t *testing.T) {
    s := newMemoryStore()
    p, _ := newTestProcessor(s)

    _, err := p.ChangeStatus(context.Background(), 404, model.StatusConfirmed)
    require.ErrorIs(t, err, ErrReservationNotFound)
}

// ----- PaymentHistory -----

func TestPaymentHistoryNewestFirst(t *testing.T) {
    s := newMemoryStore()
    seedReservation(s, 1, "100.00", "0", model.StatusPending, 1)
    p, _ := newTestProcessor(s)

    for _, amount := range []string{"20.00", "30.00", "50.00"} {
        _, err := p.ProcessPayment(context.Background(), PaymentInput{
            ReservationID: 1,
            Amount:        d(amount),
            PaymentMethod: "efectivo",
        })
        require.NoError(t, err)
    }

    hist, err := p.PaymentHistory(context.Background(), 1)
    require.NoError(t, err)
    require.Len(t, hist, 3)
    assert.True(t, hist[0].Amount.Equal(d("50.00")))
    assert.True(t, hist[2].Amount.Equal(d("20.00")))
}

func TestPaymentHistoryEmpty(t *testing.T) {
    s := newMemoryStore()
    seedReservation(s, 1, "100.00", "0", model.StatusPending, 1)
    p, _ := newTestProcessor(s)

    hist, err := p.PaymentHistory(context.Background(), 1)
    require.NoError(t, err)
    assert.Empty(t, hist)
}

func TestPaymentHistoryUnknownReservation(t *testing.T) {
    s := newMemoryStore()
    p, _ := newTestProcessor(s)

    _, err := p.PaymentHistory(context.Background(), 404)
    require.ErrorIs(t, err, ErrReservationNotFound)
}

// ----- classification helpers -----

func TestClassifyPaymentStatusBoundaries(t *testing.T) {
    total := d("100.00")
    assert.Equal(t, model.PaymentStatusNone, classifyPaymentStatus(d("0"), total))
    assert.Equal(t, model.PaymentStatusPartial, classifyPaymentStatus(d("0.01"), total))
    assert.Equal(t, model.PaymentStatusPartial, classifyPaymentStatus(d("99.99"), total))
    assert.Equal(t, model.PaymentStatusPaid, classifyPaymentStatus(d("100.00"), total))
}

func TestFloorZero(t *testing.T) {
    assert.True(t, floorZero(d("-0.01")).IsZero())
    assert.True(t, floorZero(d("0")).IsZero())
    assert.True(t, floorZero(d("1.50")).Equal(d("1.50")))
}
