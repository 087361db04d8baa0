// Package geojson exposes GeoJSON FeatureCollection documents as high level
// objects with convenience methods, so callers do not have to work against
// the raw format directly. It covers reading and writing files, validating
// and repairing structure, and deriving bounding boxes and attribute sets.
package geojson

import "errors"

// GeometryType identifies one of the GeoJSON geometry types.
type GeometryType string

// The geometry types recognized by validation and bbox computation.
// TypeNull marks an empty geometry without coordinates.
const (
	TypePoint           GeometryType = "Point"
	TypeMultiPoint      GeometryType = "MultiPoint"
	TypeLineString      GeometryType = "LineString"
	TypeMultiLineString GeometryType = "MultiLineString"
	TypePolygon         GeometryType = "Polygon"
	TypeMultiPolygon    GeometryType = "MultiPolygon"
	TypeNull            GeometryType = "Null"
)

// GeoJSON is implemented by any value that can project itself to the plain
// GeoJSON representation, a nested tree of map[string]any, []any and float64
// as produced by encoding/json. Geometry, Feature and FeatureCollection all
// implement it, and external types may implement it to interoperate.
type GeoJSON interface {
	GeoInterface() map[string]any
}

// Options controls the validation pass run while loading a document.
// The zero value (and nil) keeps auto-repair on and aborts on the first
// feature that cannot be repaired.
type Options struct {
	// SkipInvalid drops features that fail validation from the collection
	// instead of aborting the load.
	SkipInvalid bool
	// Strict disables the auto-repair pass entirely, so every structural
	// defect is an error.
	Strict bool
}

func (o *Options) fixErrors() bool {
	return o == nil || !o.Strict
}

func (o *Options) skipInvalid() bool {
	return o != nil && o.SkipInvalid
}

var (
	// ErrNullGeometry is returned when a bbox is requested from a geometry
	// without coordinates.
	ErrNullGeometry = errors.New("null geometry has no bbox")

	// ErrNoGeometries is returned by UpdateBBox when no feature carries a
	// non-null geometry, leaving nothing to compute a bbox from.
	ErrNoGeometries = errors.New("no geometries to compute bbox from")

	// ErrIndexOutOfRange is returned by the index addressed feature
	// operations when the position does not exist.
	ErrIndexOutOfRange = errors.New("feature index out of range")

	// ErrInvalidCRS is returned for a crs descriptor whose type is neither
	// "name" nor "link".
	ErrInvalidCRS = errors.New("invalid crs type")

	// ErrIDExists is returned by AddUniqueID when a feature already carries
	// an id property.
	ErrIDExists = errors.New("feature already has an id property")
)
