package server

import (
	"net/http"

	"auralis/core/music"

	"github.com/gorilla/mux"
)

// CheckAdminHandler GET /api/admin/check
func (h *APIHandler) CheckAdminHandler(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]bool{"admin": true}, "Admin access granted")
}

// CreateSongHandler POST /api/admin/songs
// 表单字段：title, artist, genre, albumId；文件：audioFile, imageFile
func (h *APIHandler) CreateSongHandler(w http.ResponseWriter, r *http.Request) {
	up, err := h.parseUpload(w, r, 2)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer up.Cleanup()

	audio, err := up.File("audioFile")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	image, err := up.File("imageFile")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	song, err := h.admin.CreateSong(r.Context(), music.CreateSongInput{
		Title:   up.Value("title"),
		Artist:  up.Value("artist"),
		Genre:   up.Value("genre"),
		AlbumID: up.Value("albumId"),
	}, audio, image)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, song, "Song created successfully")
}

// DeleteSongHandler DELETE /api/admin/songs/{id}
func (h *APIHandler) DeleteSongHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.DeleteSong(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, nil, "Song deleted successfully")
}

// CreateAlbumHandler POST /api/admin/albums
// 表单字段：title, artist, description, releaseYear, genre；文件：imageFile
func (h *APIHandler) CreateAlbumHandler(w http.ResponseWriter, r *http.Request) {
	up, err := h.parseUpload(w, r, 1)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer up.Cleanup()

	image, err := up.File("imageFile")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	album, err := h.admin.CreateAlbum(r.Context(), music.CreateAlbumInput{
		Title:       up.Value("title"),
		Artist:      up.Value("artist"),
		Description: up.Value("description"),
		ReleaseYear: up.Value("releaseYear"),
		Genre:       up.Value("genre"),
	}, image)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, album, "Album created successfully")
}

// DeleteAlbumHandler DELETE /api/admin/albums/{id}，同时删除专辑内的所有歌曲
func (h *APIHandler) DeleteAlbumHandler(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.admin.DeleteAlbum(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]int64{"deletedSongs": deleted}, "Album deleted successfully")
}

// StatsHandler GET /api/stats
func (h *APIHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.query.Stats(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, stats, "Stats retrieved successfully")
}
