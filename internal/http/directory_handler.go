package http

import (
	"log/slog"
	"net/http"

	"github.com/example/fitclub-scheduler/internal/application"
)

// DirectoryHandler serves the read-only reference collections consumed by
// synchronizing clients.
type DirectoryHandler struct {
	trainers  application.TrainerDirectory
	clients   application.ClientDirectory
	products  application.ProductCatalog
	responder responder
}

func NewDirectoryHandler(trainers application.TrainerDirectory, clients application.ClientDirectory, products application.ProductCatalog, logger *slog.Logger) *DirectoryHandler {
	return &DirectoryHandler{trainers: trainers, clients: clients, products: products, responder: newResponder(logger)}
}

func (h *DirectoryHandler) ListTrainers(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.trainers == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	trainers, err := h.trainers.ListTrainers(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]trainerDTO, 0, len(trainers))
	for _, trainer := range trainers {
		out = append(out, trainerDTO{
			ID:        trainer.ID,
			Name:      trainer.Name,
			Slug:      trainer.Slug,
			Email:     trainer.Email,
			Specialty: trainer.Specialty,
			Active:    trainer.Active,
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listTrainersResponse{Trainers: out})
}

func (h *DirectoryHandler) ListClients(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.clients == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	clients, err := h.clients.ListClients(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]clientDTO, 0, len(clients))
	for _, client := range clients {
		out = append(out, clientDTO{
			ID:         client.ID,
			Name:       client.Name,
			Email:      client.Email,
			Phone:      client.Phone,
			Membership: client.Membership,
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listClientsResponse{Clients: out})
}

func (h *DirectoryHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.products == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	products, err := h.products.ListProducts(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]productDTO, 0, len(products))
	for _, product := range products {
		out = append(out, productDTO{
			ID:     product.ID,
			Name:   product.Name,
			Price:  product.Price,
			Stock:  product.Stock,
			Active: product.Active,
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listProductsResponse{Products: out})
}

type listTrainersResponse struct {
	Trainers []trainerDTO `json:"trainers"`
}

type trainerDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Email     string `json:"email,omitempty"`
	Specialty string `json:"specialty,omitempty"`
	Active    bool   `json:"active"`
}

type listClientsResponse struct {
	Clients []clientDTO `json:"clients"`
}

type clientDTO struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Membership string `json:"membership,omitempty"`
}

type listProductsResponse struct {
	Products []productDTO `json:"products"`
}

type productDTO struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Price  int64  `json:"price"`
	Stock  int    `json:"stock"`
	Active bool   `json:"active"`
}
