package http

import (
	"net/http"

	"medrent-backend/internal/domain"
	"medrent-backend/internal/service"
)

type FavoriteHandler struct {
	favoriteSvc service.FavoriteService
}

func NewFavoriteHandler(favoriteSvc service.FavoriteService) *FavoriteHandler {
	return &FavoriteHandler{favoriteSvc: favoriteSvc}
}

func (h *FavoriteHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	favorites, err := h.favoriteSvc.ListFavorites(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if favorites == nil {
		favorites = []domain.Favorite{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": favorites})
}

func (h *FavoriteHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	equipmentID, err := pathID(r, "equipmentId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.favoriteSvc.AddFavorite(r.Context(), userID, equipmentID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FavoriteHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	equipmentID, err := pathID(r, "equipmentId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.favoriteSvc.RemoveFavorite(r.Context(), userID, equipmentID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
