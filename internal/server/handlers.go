// Package server handles HTTP requests and middleware.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/woozymasta/geojson"

	"github.com/rs/zerolog/log"
)

type documentInfo struct {
	Name       string    `json:"name"`
	Features   int       `json:"features"`
	BBox       []float64 `json:"bbox,omitempty"`
	Attributes []string  `json:"attributes"`
}

// HandleList serves a JSON summary of the available documents.
func (s *ServerContext) HandleList(w http.ResponseWriter, r *http.Request) {
	infos := make([]documentInfo, 0, len(s.Names))
	for _, name := range s.Names {
		fc, err := geojson.Load(s.Files[name], s.Opts)
		if err != nil {
			log.Error().Err(err).Str("name", name).Msg("Failed to reload document")
			continue
		}
		info := documentInfo{
			Name:       name,
			Features:   fc.Len(),
			Attributes: fc.AllAttributes(),
		}
		if bbox, err := fc.BBox(); err == nil {
			info.BBox = bbox
		}
		infos = append(infos, info)
	}

	w.Header().Set("Content-Type", "application/json")
	// Ignoring error as we cannot handle client disconnects
	_ = json.NewEncoder(w).Encode(infos)
}

// HandleDocument serves one validated document as GeoJSON.
// Path: /files/{name}
func (s *ServerContext) HandleDocument(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 2 {
		http.NotFound(w, r)
		return
	}

	path, ok := s.Files[parts[1]]
	if !ok {
		http.NotFound(w, r)
		return
	}

	fc, err := geojson.Load(path, s.Opts)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to load document")
		http.Error(w, "failed to load document", http.StatusInternalServerError)
		return
	}

	raw, err := json.Marshal(fc)
	if err != nil {
		http.Error(w, "failed to encode document", http.StatusInternalServerError)
		return
	}

	etag := fmt.Sprintf(`"%x"`, len(raw))
	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, no-cache")
	_, _ = w.Write(raw)
}
