package server

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/woozymasta/geojson"

	"github.com/rs/zerolog/log"
)

// ServerContext holds dependencies for request handlers.
type ServerContext struct {
	// Files resolves a document name to its path on disk.
	Files map[string]string
	Names []string
	Opts  *geojson.Options
}

// NewServerContext scans dir for GeoJSON documents and builds the name
// resolver. Files that fail to load with the given validation options are
// skipped, so the server only ever lists documents it can serve.
func NewServerContext(dir string, opts *geojson.Options) (*ServerContext, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	ctx := &ServerContext{
		Files: make(map[string]string),
		Opts:  opts,
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".geojson" && ext != ".json" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		fc, err := geojson.Load(path, opts)
		if err != nil {
			log.Warn().
				Err(err).
				Str("path", path).
				Msg("Skipping document: failed to load")
			continue
		}

		name := strings.TrimSuffix(entry.Name(), ext)
		ctx.Files[name] = path
		ctx.Names = append(ctx.Names, name)

		log.Debug().
			Str("name", name).
			Int("features", fc.Len()).
			Msg("Document validated and added to context")
	}

	sort.Strings(ctx.Names)

	log.Info().
		Int("documents", len(ctx.Names)).
		Str("dir", dir).
		Msg("Server context initialized")

	return ctx, nil
}
