package server

import (
	"net/http"
	"strconv"

	"auralis/core/music"

	"github.com/gorilla/mux"
)

// queryInt 参数缺失或非法时返回 0，由服务层套用默认值
func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}

// ListSongsHandler GET /api/songs (admin)
func (h *APIHandler) ListSongsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	songs, page, err := h.query.ListSongs(r.Context(), music.ListSongsParams{
		Page:   music.ParsePage(q.Get("page"), q.Get("limit")),
		Search: q.Get("search"),
		Genre:  q.Get("genre"),
		Artist: q.Get("artist"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writePaginated(w, songs, page, "Songs retrieved successfully")
}

// SearchHandler GET /api/songs/search
func (h *APIHandler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.query.SearchMusic(r.Context(), music.SearchParams{
		Query:  q.Get("q"),
		Type:   q.Get("type"),
		Genre:  q.Get("genre"),
		Artist: q.Get("artist"),
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, result, "Search completed successfully")
}

// QuickSearchHandler GET /api/songs/search/quick
func (h *APIHandler) QuickSearchHandler(w http.ResponseWriter, r *http.Request) {
	suggestions, err := h.query.QuickSearch(r.Context(), r.URL.Query().Get("q"), queryInt(r, "limit"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	message := "Quick search completed"
	if len(suggestions) == 0 {
		message = "Quick search results"
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{"suggestions": suggestions}, message)
}

// FeaturedHandler GET /api/songs/featured
func (h *APIHandler) FeaturedHandler(w http.ResponseWriter, r *http.Request) {
	songs, err := h.query.Featured(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, songs, "Featured songs retrieved successfully")
}

// MadeForYouHandler GET /api/songs/made-for-you
func (h *APIHandler) MadeForYouHandler(w http.ResponseWriter, r *http.Request) {
	songs, err := h.query.MadeForYou(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, songs, "Made for you songs retrieved successfully")
}

// TrendingHandler GET /api/songs/trending
func (h *APIHandler) TrendingHandler(w http.ResponseWriter, r *http.Request) {
	songs, err := h.query.Trending(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, songs, "Trending songs retrieved successfully")
}

// GetSongHandler GET /api/songs/{id}
func (h *APIHandler) GetSongHandler(w http.ResponseWriter, r *http.Request) {
	song, err := h.query.GetSongByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, song, "Song retrieved successfully")
}

// PlayHandler POST /api/songs/{id}/play
func (h *APIHandler) PlayHandler(w http.ResponseWriter, r *http.Request) {
	count, err := h.query.IncrementPlayCount(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]int64{"playCount": count}, "Play count updated successfully")
}
