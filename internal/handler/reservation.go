package handler

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/shopspring/decimal"
    "github.com/sirupsen/logrus"

    "github.com/admintermas/reservas-api/internal/ledger"
    "github.com/admintermas/reservas-api/internal/model"
    "github.com/admintermas/reservas-api/internal/repository"
)

// ReservationHandler exposes the payment ledger and reservation reads
// over HTTP.
type ReservationHandler struct {
    Processor    *ledger.Processor
    Reservations *repository.ReservationRepo
    Comments     *repository.CommentRepo
    Log          *logrus.Logger
}

func NewReservationHandler(p *ledger.Processor, res *repository.ReservationRepo, cm *repository.CommentRepo, log *logrus.Logger) *ReservationHandler {
    if log == nil {
        log = logrus.New()
    }
    return &ReservationHandler{Processor: p, Reservations: res, Comments: cm, Log: log}
}

// ----- DTOs -----

type recordPaymentReq struct {
    Amount          decimal.Decimal `json:"amount"`
    PaymentMethod   string          `json:"payment_method" validate:"required"`
    ReferenceNumber string          `json:"reference_number" validate:"omitempty,max=100"`
    Notes           string          `json:"notes" validate:"omitempty,max=500"`
}

type updateStatusReq struct {
    Status string `json:"status" validate:"required"`
}

// RecordPayment applies one payment to a reservation: POST /v1/reservations/:id/payments.
func (h *ReservationHandler) RecordPayment(c echo.Context) error {
    id, err := parseID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid reservation id"})
    }

    var req recordPaymentReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid body"})
    }
    if err := c.Validate(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": err.Error()})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    result, err := h.Processor.ProcessPayment(ctx, ledger.PaymentInput{
        ReservationID:   id,
        Amount:          req.Amount,
        PaymentMethod:   req.PaymentMethod,
        ReferenceNumber: req.ReferenceNumber,
        Notes:           req.Notes,
        ProcessedBy:     actor(c),
    })
    if err != nil {
        return h.ledgerError(c, id, err)
    }

    h.Log.WithFields(logrus.Fields{
        "reservation_id": id,
        "amount":         req.Amount.String(),
        "payment_type":   result.PaymentType,
        "processed_by":   actor(c),
    }).Info("payment recorded")

    return c.JSON(http.StatusCreated, echo.Map{
        "success":           true,
        "payment_type":      result.PaymentType,
        "new_total_paid":    result.NewTotalPaid,
        "remaining_balance": result.RemainingBalance,
        "payment_record":    result.PaymentRecord,
        "message":           result.Message,
    })
}

// ListPayments returns the payment history for a reservation, newest
// first: GET /v1/reservations/:id/payments.
func (h *ReservationHandler) ListPayments(c echo.Context) error {
    id, err := parseID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid reservation id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    payments, err := h.Processor.PaymentHistory(ctx, id)
    if err != nil {
        return h.ledgerError(c, id, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"success": true, "payments": payments})
}

// UpdateStatus changes a reservation's operational status:
// PATCH /v1/reservations/:id/status.
func (h *ReservationHandler) UpdateStatus(c echo.Context) error {
    id, err := parseID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid reservation id"})
    }

    var req updateStatusReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid body"})
    }
    if err := c.Validate(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": err.Error()})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    canonical, err := h.Processor.ChangeStatus(ctx, id, model.ReservationStatus(req.Status))
    if err != nil {
        return h.ledgerError(c, id, err)
    }

    h.Log.WithFields(logrus.Fields{
        "reservation_id": canonical,
        "status":         req.Status,
        "processed_by":   actor(c),
    }).Info("reservation status updated")

    return c.JSON(http.StatusOK, echo.Map{
        "success":        true,
        "reservation_id": canonical,
        "status":         req.Status,
    })
}

// GetReservation returns a reservation with line items and audit
// comments: GET /v1/reservations/:id.
func (h *ReservationHandler) GetReservation(c echo.Context) error {
    id, err := parseID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid reservation id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    det, err := h.Reservations.GetDetail(ctx, id)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusNotFound, echo.Map{"success": false, "error": "reserva no encontrada"})
        }
        h.Log.WithError(err).WithField("reservation_id", id).Error("load reservation failed")
        return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "query failed"})
    }
    comments, err := h.Comments.ListByReservation(ctx, det.ID)
    if err != nil {
        h.Log.WithError(err).WithField("reservation_id", id).Error("load comments failed")
        return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "query failed"})
    }

    return c.JSON(http.StatusOK, echo.Map{
        "success":     true,
        "reservation": det,
        "comments":    comments,
    })
}

// ListReservations returns the back-office listing, newest first:
// GET /v1/reservations?limit=&offset=.
func (h *ReservationHandler) ListReservations(c echo.Context) error {
    limit := 50
    if v := c.QueryParam("limit"); v != "" {
        if n, err := strconv.Atoi(v); err == nil && n > 0 {
            limit = n
        }
    }
    if limit > 200 {
        limit = 200
    }
    offset := 0
    if v := c.QueryParam("offset"); v != "" {
        if n, err := strconv.Atoi(v); err == nil && n >= 0 {
            offset = n
        }
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    list, err := h.Reservations.List(ctx, limit, offset)
    if err != nil {
        h.Log.WithError(err).Error("list reservations failed")
        return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "query failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"success": true, "reservations": list})
}

// ledgerError maps ledger errors onto HTTP status codes.  Validation
// problems are 400, unknown reservations 404, illegal transitions 409,
// anything else 500.
func (h *ReservationHandler) ledgerError(c echo.Context, id uint64, err error) error {
    var exceeds *ledger.ExceedsPendingError
    var illegal *ledger.IllegalTransitionError
    switch {
    case errors.Is(err, ledger.ErrReservationNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"success": false, "error": "reserva no encontrada"})
    case errors.Is(err, ledger.ErrNoLineItems):
        return c.JSON(http.StatusNotFound, echo.Map{"success": false, "error": err.Error()})
    case errors.Is(err, ledger.ErrAmountNotPositive), errors.Is(err, ledger.ErrInvalidStatus):
        return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": err.Error()})
    case errors.As(err, &exceeds):
        return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": exceeds.Error()})
    case errors.As(err, &illegal):
        return c.JSON(http.StatusConflict, echo.Map{"success": false, "error": illegal.Error()})
    }
    h.Log.WithError(err).WithField("reservation_id", id).Error("ledger operation failed")
    return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "internal error"})
}

// parseID reads the :id route parameter.
func parseID(c echo.Context) (uint64, error) {
    return strconv.ParseUint(c.Param("id"), 10, 64)
}

// actor returns a display name for the authenticated user recorded on
// payments and comments.  The JWT subject is numeric, so a "user:<id>"
// label is used.
func actor(c echo.Context) string {
    if v := c.Get("user_id"); v != nil {
        return fmt.Sprintf("user:%v", v)
    }
    return "system"
}
