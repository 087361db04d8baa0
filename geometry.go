package geojson

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Geometry wraps a single GeoJSON geometry entry. The wrapper holds a
// reference into the backing value tree, so writes through it are visible to
// any parent Feature or FeatureCollection sharing that tree. An empty backing
// structure represents the Null geometry.
type Geometry struct {
	data map[string]any
}

// NewGeometry returns an empty Null geometry.
func NewGeometry() *Geometry {
	return &Geometry{data: map[string]any{}}
}

// GeometryFromValue adopts a raw geometry mapping without copying it. The
// returned wrapper aliases obj, so later writes through either are visible
// to both.
func GeometryFromValue(obj map[string]any) *Geometry {
	if obj == nil {
		obj = map[string]any{}
	}
	return &Geometry{data: obj}
}

// GeometryOf adopts the raw representation projected by src, which may be a
// Geometry, a Feature's geometry view, or any external GeoJSON implementor.
func GeometryOf(src GeoJSON) *Geometry {
	if src == nil {
		return NewGeometry()
	}
	return GeometryFromValue(src.GeoInterface())
}

// MakeGeometry assembles a geometry from an explicit type, coordinate
// structure and optional bbox. Coordinates may be given as typed slices
// ([]float64 for a Point up to [][][][]float64 for a MultiPolygon) or as an
// already decoded []any tree.
func MakeGeometry(typ GeometryType, coordinates any, bbox []float64) *Geometry {
	data := map[string]any{
		"type":        string(typ),
		"coordinates": normalizeCoords(coordinates),
	}
	if len(bbox) > 0 {
		data["bbox"] = append([]float64(nil), bbox...)
	}
	return &Geometry{data: data}
}

// Copy returns a geometry backed by a deep copy of the backing structure,
// detached from any parent document.
func (g *Geometry) Copy() *Geometry {
	return &Geometry{data: deepCopyMap(g.data)}
}

// Type returns the geometry type, or TypeNull for an empty geometry.
func (g *Geometry) Type() GeometryType {
	if len(g.data) == 0 {
		return TypeNull
	}
	t, _ := g.data["type"].(string)
	return GeometryType(t)
}

// SetType overwrites the geometry type discriminator.
func (g *Geometry) SetType(typ GeometryType) {
	g.data["type"] = string(typ)
}

// Coordinates returns the raw coordinate structure.
func (g *Geometry) Coordinates() any {
	return g.data["coordinates"]
}

// SetCoordinates replaces the coordinate structure and drops any stored
// bbox, so the next BBox read recomputes from the new coordinates instead of
// serving a stale cached box.
func (g *Geometry) SetCoordinates(coordinates any) {
	g.data["coordinates"] = normalizeCoords(coordinates)
	g.ClearBBox()
}

// ClearBBox removes any stored bbox entry. Until a bbox is stored again,
// BBox computes from the coordinates on every read.
func (g *Geometry) ClearBBox() {
	delete(g.data, "bbox")
}

// BBox returns the geometry bounding box as [xmin, ymin, xmax, ymax]. A
// stored bbox entry is returned verbatim; otherwise the box is computed by
// scanning the coordinates. For polygons only the exterior ring counts, and
// for multipolygons only the exterior ring of each member.
func (g *Geometry) BBox() ([]float64, error) {
	if raw, ok := g.data["bbox"]; ok {
		if b, ok := toBBox(raw); ok && len(b) > 0 {
			return b, nil
		}
	}

	kind := g.Type()
	if kind == TypeNull {
		return nil, ErrNullGeometry
	}

	coords, ok := normalizeCoords(g.data["coordinates"]).([]any)
	if !ok {
		return nil, errors.New("geometry coordinates must be a sequence")
	}

	var points []any
	switch kind {
	case TypePoint:
		points = []any{coords}
	case TypeMultiPoint, TypeLineString:
		points = coords
	case TypeMultiLineString:
		for _, line := range coords {
			l, ok := line.([]any)
			if !ok {
				return nil, errors.New("multilinestring member is not a sequence")
			}
			points = append(points, l...)
		}
	case TypePolygon:
		exterior, err := exteriorRing(coords)
		if err != nil {
			return nil, err
		}
		points = exterior
	case TypeMultiPolygon:
		for _, poly := range coords {
			rings, ok := poly.([]any)
			if !ok {
				return nil, errors.New("multipolygon member is not a sequence")
			}
			exterior, err := exteriorRing(rings)
			if err != nil {
				return nil, err
			}
			points = append(points, exterior...)
		}
	default:
		return nil, fmt.Errorf("cannot compute bbox for geometry type %q", kind)
	}

	return foldBBox(points)
}

func exteriorRing(rings []any) ([]any, error) {
	if len(rings) == 0 {
		return nil, errors.New("polygon has no rings")
	}
	exterior, ok := rings[0].([]any)
	if !ok {
		return nil, errors.New("polygon ring is not a sequence")
	}
	return exterior, nil
}

// foldBBox reduces a flat point list to a bounding box in a single pass,
// initialized from the first point.
func foldBBox(points []any) ([]float64, error) {
	if len(points) == 0 {
		return nil, errors.New("geometry has no coordinates to compute bbox from")
	}
	xmin, ymin, ok := position(points[0])
	if !ok {
		return nil, errors.New("malformed coordinate pair")
	}
	xmax, ymax := xmin, ymin
	for _, p := range points[1:] {
		x, y, ok := position(p)
		if !ok {
			return nil, errors.New("malformed coordinate pair")
		}
		if x < xmin {
			xmin = x
		} else if x > xmax {
			xmax = x
		}
		if y < ymin {
			ymin = y
		} else if y > ymax {
			ymax = y
		}
	}
	return []float64{xmin, ymin, xmax, ymax}, nil
}

// Validate checks that the geometry is correctly shaped for its type. With
// fix enabled the only repair attempted is canonicalizing a misspelled type
// name (for example "point" or "multiPolygon"); coordinate shape defects are
// always errors.
func (g *Geometry) Validate(fix bool) error {
	// Null geometry needs no further checking.
	if len(g.data) == 0 {
		return nil
	}

	if _, ok := g.data["type"]; !ok {
		return errors.New("geometry must have type and coordinates entries")
	}
	if _, ok := g.data["coordinates"]; !ok {
		return errors.New("geometry must have type and coordinates entries")
	}

	kind := g.Type()
	if !knownGeometryType(kind) {
		if !fix {
			return fmt.Errorf("invalid geometry type %q", kind)
		}
		canonical, ok := canonicalGeometryType(string(kind))
		if !ok {
			return fmt.Errorf("invalid geometry type %q", kind)
		}
		g.data["type"] = string(canonical)
		kind = canonical
	}

	coords, ok := normalizeCoords(g.data["coordinates"]).([]any)
	if !ok {
		return errors.New("geometry coordinates must be a sequence")
	}

	switch kind {
	case TypePoint:
		if len(coords) != 2 {
			return errors.New("a point must be one coordinate pair")
		}
	case TypeMultiPoint, TypeLineString:
		if len(coords) <= 1 {
			return fmt.Errorf("a %s must have more than one coordinate", kind)
		}
	case TypeMultiLineString:
		for _, line := range coords {
			l, ok := line.([]any)
			if !ok {
				return errors.New("every linestring in a multilinestring must be a sequence")
			}
			if len(l) <= 1 {
				return errors.New("every linestring in a multilinestring must have more than one coordinate")
			}
		}
	case TypePolygon:
		if err := validateRings(coords); err != nil {
			return err
		}
	case TypeMultiPolygon:
		for _, poly := range coords {
			rings, ok := poly.([]any)
			if !ok {
				return errors.New("every polygon in a multipolygon must be a sequence")
			}
			if err := validateRings(rings); err != nil {
				return err
			}
		}
	}
	return nil
}

// validateRings checks the exterior ring and every hole of one polygon.
func validateRings(rings []any) error {
	for _, ring := range rings {
		r, ok := ring.([]any)
		if !ok {
			return errors.New("every polygon ring must be a sequence")
		}
		if len(r) < 3 {
			return errors.New("the exterior and all holes of a polygon must have at least 3 coordinates")
		}
	}
	return nil
}

func knownGeometryType(t GeometryType) bool {
	switch t {
	case TypePoint, TypeMultiPoint, TypeLineString, TypeMultiLineString, TypePolygon, TypeMultiPolygon:
		return true
	}
	return false
}

// canonicalGeometryType repairs a misspelled type name: strip any "multi"
// prefix, match the remainder case-insensitively, and restore the prefix.
func canonicalGeometryType(s string) (GeometryType, bool) {
	lower := strings.ToLower(s)
	var fixed GeometryType
	switch strings.ReplaceAll(lower, "multi", "") {
	case "point":
		fixed = TypePoint
	case "linestring":
		fixed = TypeLineString
	case "polygon":
		fixed = TypePolygon
	default:
		return "", false
	}
	if strings.HasPrefix(lower, "multi") {
		fixed = "Multi" + fixed
	}
	return fixed, true
}

// GeoInterface projects the geometry to its raw GeoJSON representation.
// Null geometries project to nil, which encodes as a JSON null.
func (g *Geometry) GeoInterface() map[string]any {
	if len(g.data) == 0 {
		return nil
	}
	out := make(map[string]any, len(g.data))
	for k, v := range g.data {
		out[k] = v
	}
	return out
}

// MarshalJSON encodes the raw backing structure.
func (g *Geometry) MarshalJSON() ([]byte, error) {
	if len(g.data) == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(g.data)
}

func (g *Geometry) String() string {
	if g.Type() == TypeNull {
		return "Geometry(type=Null)"
	}
	return fmt.Sprintf("Geometry(type=%s, coordinates=%v)", g.Type(), g.Coordinates())
}
