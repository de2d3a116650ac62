package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

// ListAlbumsHandler GET /api/albums
func (h *APIHandler) ListAlbumsHandler(w http.ResponseWriter, r *http.Request) {
	albums, err := h.query.ListAlbums(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, albums, "Albums retrieved successfully")
}

// GetAlbumHandler GET /api/albums/{albumId}
func (h *APIHandler) GetAlbumHandler(w http.ResponseWriter, r *http.Request) {
	album, err := h.query.GetAlbum(r.Context(), mux.Vars(r)["albumId"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, album, "Album retrieved successfully")
}
