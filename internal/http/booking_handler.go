package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/fitclub-scheduler/internal/application"
)

type bookingService interface {
	CreateBooking(ctx context.Context, req application.BookingRequest) (application.Booking, error)
}

type BookingHandler struct {
	service   bookingService
	responder responder
}

func NewBookingHandler(service bookingService, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{service: service, responder: newResponder(logger)}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	booking, err := h.service.CreateBooking(r.Context(), req.toRequest(principal))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	handlerLogger(r.Context(), h.responder.logger, "bookings", "create").InfoContext(r.Context(), "booking accepted", "event_id", booking.EventID)
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, bookingResponse{Booking: toBookingDTO(booking)})
}

type bookingRequest struct {
	Trainer         string  `json:"trainer"`
	Date            string  `json:"date"`
	Time            string  `json:"time"`
	DurationMinutes int     `json:"duration_minutes"`
	Type            string  `json:"type"`
	Price           string  `json:"price"`
	Notes           string  `json:"notes"`
	ClientID        *string `json:"client_id"`
}

func (r bookingRequest) toRequest(principal application.Principal) application.BookingRequest {
	return application.BookingRequest{
		Principal:  principal,
		TrainerRef: strings.TrimSpace(r.Trainer),
		Date:       strings.TrimSpace(r.Date),
		Time:       strings.TrimSpace(r.Time),
		Duration:   time.Duration(r.DurationMinutes) * time.Minute,
		Type:       application.EventType(strings.TrimSpace(r.Type)),
		Price:      r.Price,
		Notes:      r.Notes,
		ClientID:   r.ClientID,
	}
}

type bookingResponse struct {
	Booking bookingDTO `json:"booking"`
}

type bookingDTO struct {
	EventID     string `json:"event_id"`
	TrainerID   string `json:"trainer_id"`
	TrainerName string `json:"trainer_name"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Status      string `json:"status"`
	Price       int64  `json:"price"`
}

func toBookingDTO(booking application.Booking) bookingDTO {
	return bookingDTO{
		EventID:     booking.EventID,
		TrainerID:   booking.TrainerID,
		TrainerName: booking.TrainerName,
		Start:       booking.Start.UTC().Format(time.RFC3339),
		End:         booking.End.UTC().Format(time.RFC3339),
		Status:      string(booking.Status),
		Price:       booking.Price,
	}
}
