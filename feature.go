package geojson

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
)

// Feature wraps one GeoJSON feature entry: a geometry plus a property
// mapping. Wrappers obtained from a FeatureCollection alias the collection's
// backing structure, so edits through them propagate to the document.
type Feature struct {
	data map[string]any
}

// NewFeature builds a feature from a geometry and a property mapping, both
// optional. The geometry is stored through its GeoJSON projection (a nil or
// Null geometry is stored as JSON null) and the properties are shallow
// copied.
func NewFeature(geometry GeoJSON, properties map[string]any) *Feature {
	props := make(map[string]any, len(properties))
	maps.Copy(props, properties)

	var geom any
	if geometry != nil {
		if m := geometry.GeoInterface(); len(m) > 0 {
			geom = m
		}
	}

	return &Feature{data: map[string]any{
		"type":       "Feature",
		"geometry":   geom,
		"properties": props,
	}}
}

// FeatureFromValue adopts a raw feature mapping without copying it. This is
// the aliasing path used when iterating a parent collection, so mutation
// through the returned wrapper is visible in the collection.
func FeatureFromValue(obj map[string]any) *Feature {
	if obj == nil {
		obj = map[string]any{}
	}
	return &Feature{data: obj}
}

// Copy returns a feature with a deep copied geometry and a copied property
// mapping, detached from any parent document.
func (f *Feature) Copy() *Feature {
	var geom any
	if m := f.Geometry().Copy().GeoInterface(); len(m) > 0 {
		geom = m
	}
	props := maps.Clone(f.Properties())
	if props == nil {
		props = map[string]any{}
	}
	return &Feature{data: map[string]any{
		"type":       "Feature",
		"geometry":   geom,
		"properties": props,
	}}
}

// Geometry returns a wrapper over the feature's geometry entry. When the
// entry is a mapping the wrapper aliases it; a null or missing entry yields
// a fresh Null geometry.
func (f *Feature) Geometry() *Geometry {
	if m, ok := f.data["geometry"].(map[string]any); ok && m != nil {
		return GeometryFromValue(m)
	}
	return NewGeometry()
}

// SetGeometry stores the GeoJSON projection of src as the feature geometry.
func (f *Feature) SetGeometry(src GeoJSON) {
	var geom any
	if src != nil {
		if m := src.GeoInterface(); len(m) > 0 {
			geom = m
		}
	}
	f.data["geometry"] = geom
}

// Properties returns the feature's property mapping. The mapping is the
// live backing structure, not a copy.
func (f *Feature) Properties() map[string]any {
	m, _ := f.data["properties"].(map[string]any)
	return m
}

// SetProperties replaces the property mapping's contents in place, clearing
// then repopulating it so alias holders keep seeing the same mapping.
func (f *Feature) SetProperties(properties map[string]any) {
	m, ok := f.data["properties"].(map[string]any)
	if !ok || m == nil {
		m = make(map[string]any, len(properties))
		f.data["properties"] = m
	}
	clear(m)
	maps.Copy(m, properties)
}

// Validate checks that the feature is correctly formatted and delegates to
// the geometry's validation. With fix enabled a wrong discriminator, a
// missing geometry and a missing or non-mapping properties entry are all
// repaired in place.
func (f *Feature) Validate(fix bool) error {
	if t, _ := f.data["type"].(string); t != "Feature" {
		if !fix {
			return errors.New(`a feature must contain a type entry named "Feature"`)
		}
		f.data["type"] = "Feature"
	}
	if _, ok := f.data["geometry"]; !ok {
		if !fix {
			return errors.New("a feature must contain a geometry entry")
		}
		f.data["geometry"] = nil
	}
	if m, ok := f.data["properties"].(map[string]any); !ok || m == nil {
		if !fix {
			return errors.New("a feature must contain a properties entry holding a mapping")
		}
		f.data["properties"] = map[string]any{}
	}
	return f.Geometry().Validate(fix)
}

// GeoInterface projects the feature to its raw GeoJSON representation with
// copied geometry and properties entries.
func (f *Feature) GeoInterface() map[string]any {
	var geom any
	if m := f.Geometry().GeoInterface(); len(m) > 0 {
		geom = m
	}
	props := maps.Clone(f.Properties())
	if props == nil {
		props = map[string]any{}
	}
	return map[string]any{
		"type":       "Feature",
		"geometry":   geom,
		"properties": props,
	}
}

// MarshalJSON encodes the raw backing structure.
func (f *Feature) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.data)
}

func (f *Feature) String() string {
	return fmt.Sprintf("Feature(geometry=%s, properties=%v)", f.Geometry(), f.Properties())
}
