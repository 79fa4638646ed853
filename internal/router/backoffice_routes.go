package router

import (
    "github.com/labstack/echo/v4"

    "github.com/admintermas/reservas-api/internal/handler"
    "github.com/admintermas/reservas-api/internal/middleware"
)

// RegisterBackoffice registers the reservation ledger endpoints under
// /v1.  All routes require a valid JWT with the ADMIN or STAFF role.
// The optional extra middleware (rate limiting on mutations, response
// caching on reads) is applied per route group so cached listings never
// serve stale data to the payment endpoints.
func RegisterBackoffice(e *echo.Echo, h *handler.ReservationHandler, jwtSecret string, rateLimit, cache echo.MiddlewareFunc) {
    g := e.Group(
        "/v1",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole("ADMIN", "STAFF"),
    )

    // Mutations: rate limited.
    writes := []echo.MiddlewareFunc{}
    if rateLimit != nil {
        writes = append(writes, rateLimit)
    }
    g.POST("/reservations/:id/payments", h.RecordPayment, writes...)
    g.PATCH("/reservations/:id/status", h.UpdateStatus, writes...)

    // Reads: cached.
    reads := []echo.MiddlewareFunc{}
    if cache != nil {
        reads = append(reads, cache)
    }
    g.GET("/reservations", h.ListReservations, reads...)
    g.GET("/reservations/:id", h.GetReservation, reads...)
    g.GET("/reservations/:id/payments", h.ListPayments, reads...)
}
