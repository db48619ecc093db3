package handlers

import (
	"fmt"
	"hash/fnv"
	"net/http"
)

// IndexHandler serves the pre-rendered page shell.
type IndexHandler struct {
	Page []byte
	etag string
}

func NewIndexHandler(page []byte) *IndexHandler {
	h := fnv.New64a()
	_, _ = h.Write(page)
	return &IndexHandler{Page: page, etag: fmt.Sprintf(`"%x"`, h.Sum64())}
}

func (h *IndexHandler) Serve(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if match := r.Header.Get("If-None-Match"); match == h.etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("ETag", h.etag)
	w.Header().Set("Cache-Control", "public, no-cache")
	_, _ = w.Write(h.Page)
}
