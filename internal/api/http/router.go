package http

import (
	"net/http"

	"medrent-backend/internal/security"
	"medrent-backend/internal/service"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
)

// Services groups what the HTTP API calls into.
type Services struct {
	Auth      service.AuthService
	Equipment service.EquipmentService
	Orders    service.OrderService
	Favorites service.FavoriteService
}

// RouterConfig carries the HTTP-only settings.
type RouterConfig struct {
	AllowedOrigins []string
	MaxUploadBytes int64
	// Ready reports whether the backing database answers.
	Ready func(r *http.Request) error
}

// NewRouter builds the REST API. Literal segments are registered before
// their {id} siblings so that mux matches them first.
func NewRouter(svcs Services, tm security.TokenManager, cfg RouterConfig) http.Handler {
	router := mux.NewRouter()

	auth := NewAuthHandler(svcs.Auth)
	equipment := NewEquipmentHandler(svcs.Equipment)
	orders := NewOrderHandler(svcs.Orders, cfg.MaxUploadBytes)
	receipts := NewReceiptHandler(svcs.Orders)
	favorites := NewFavoriteHandler(svcs.Favorites)

	router.HandleFunc("/healthz", healthHandler(cfg.Ready)).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/auth/login", auth.Login).Methods(http.MethodPost)

	api.HandleFunc("/equipment", equipment.List).Methods(http.MethodGet)
	api.HandleFunc("/equipment/stats", equipment.Dashboard).Methods(http.MethodGet)
	api.HandleFunc("/equipment/{id}", equipment.Get).Methods(http.MethodGet)

	api.HandleFunc("/orders/quote", orders.Quote).Methods(http.MethodPost)
	api.HandleFunc("/orders", orders.Create).Methods(http.MethodPost)
	api.HandleFunc("/orders", orders.ListMine).Methods(http.MethodGet)
	api.HandleFunc("/orders/owner", orders.ListOwner).Methods(http.MethodGet)
	api.HandleFunc("/orders/owner/stats", orders.Stats).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}", orders.Get).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}/status", orders.UpdateStatus).Methods(http.MethodPut)
	api.HandleFunc("/orders/{id}/receipt", receipts.Download).Methods(http.MethodGet)

	api.HandleFunc("/favorites", favorites.List).Methods(http.MethodGet)
	api.HandleFunc("/favorites/{equipmentId}", favorites.Add).Methods(http.MethodPost)
	api.HandleFunc("/favorites/{equipmentId}", favorites.Remove).Methods(http.MethodDelete)

	api.HandleFunc("/users/{id}/contact", auth.Contact).Methods(http.MethodGet)

	router.Use(RecoveryMiddleware, LoggingMiddleware, NewAuthMiddleware(tm).Handler)

	c := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	return c(router)
}

func muxVar(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}

func healthHandler(ready func(r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			if err := ready(r); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
