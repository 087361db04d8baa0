package geojson

import (
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"maps"
	"os"
	"slices"
	"sort"

	"github.com/tdewolff/minify/v2"
	mjson "github.com/tdewolff/minify/v2/json"
)

// DefaultCRSName is the coordinate reference system assumed for documents
// that do not declare one: longitude/latitude on WGS84.
const DefaultCRSName = "urn:ogc:def:crs:OGC:2:84"

// FeatureCollection is a GeoJSON document: an ordered sequence of features
// plus a crs descriptor and a document level bbox. It owns the backing value
// tree; Feature and Geometry wrappers handed out by its accessors alias
// portions of that tree. The type is not safe for concurrent use.
type FeatureCollection struct {
	data map[string]any
}

func defaultCRS() map[string]any {
	return map[string]any{
		"type":       "name",
		"properties": map[string]any{"name": DefaultCRSName},
	}
}

// New returns an empty document with the default WGS84 crs and no features.
func New() *FeatureCollection {
	return &FeatureCollection{data: map[string]any{
		"type":     "FeatureCollection",
		"features": []any{},
		"crs":      defaultCRS(),
	}}
}

// Load reads and parses a GeoJSON file, validates it according to opts (nil
// means auto-repair on, abort on the first unrepairable feature) and fills
// in a missing bbox and crs. File and JSON syntax errors are returned as-is.
func Load(path string, opts *Options) (*FeatureCollection, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return FromValue(data, opts)
}

// FromValue validates a raw value tree and adopts it as a document. The
// tree is adopted without copying, so the caller must not keep mutating it
// independently.
func FromValue(data map[string]any, opts *Options) (*FeatureCollection, error) {
	if err := Validate(data, opts); err != nil {
		return nil, err
	}
	fc := &FeatureCollection{data: data}
	if err := fc.prepare(); err != nil {
		return nil, err
	}
	return fc, nil
}

// prepare fills gaps left by the source document: an absent bbox is computed
// eagerly (unless there are no geometries at all) and an absent crs gets the
// WGS84 default.
func (fc *FeatureCollection) prepare() error {
	if b, ok := toBBox(fc.data["bbox"]); !ok || len(b) == 0 {
		if err := fc.UpdateBBox(); err != nil && !errors.Is(err, ErrNoGeometries) {
			return err
		}
	}
	if _, ok := fc.data["crs"]; !ok {
		fc.data["crs"] = defaultCRS()
	}
	return nil
}

// Validate checks that a raw value tree is a structurally sound
// FeatureCollection and validates every feature in it. A missing or wrong
// type discriminator is repaired when opts allow fixing; a missing or
// non-sequence features entry is always an error. With SkipInvalid set,
// features that fail validation are dropped from the tree instead of
// aborting.
func Validate(data map[string]any, opts *Options) error {
	fix := opts.fixErrors()

	if _, ok := data["type"]; !ok {
		if !fix {
			return errors.New("geojson data must have a type entry")
		}
		data["type"] = "FeatureCollection"
	}
	if t, _ := data["type"].(string); t != "FeatureCollection" {
		if !fix {
			return errors.New("geojson data must be a FeatureCollection")
		}
		data["type"] = "FeatureCollection"
	}

	raw, ok := data["features"]
	if !ok {
		return errors.New(`a feature collection must contain a "features" entry`)
	}
	feats, ok := raw.([]any)
	if !ok {
		return errors.New(`the "features" entry must be a sequence`)
	}

	if opts.skipInvalid() {
		kept := make([]any, 0, len(feats))
		for _, fd := range feats {
			m, ok := fd.(map[string]any)
			if !ok {
				continue
			}
			if err := FeatureFromValue(m).Validate(fix); err == nil {
				kept = append(kept, fd)
			}
		}
		data["features"] = kept
		return nil
	}

	for i, fd := range feats {
		m, ok := fd.(map[string]any)
		if !ok {
			return fmt.Errorf("feature %d is not a mapping", i)
		}
		if err := FeatureFromValue(m).Validate(fix); err != nil {
			return fmt.Errorf("feature %d: %w", i, err)
		}
	}
	return nil
}

func (fc *FeatureCollection) features() []any {
	s, _ := fc.data["features"].([]any)
	return s
}

// Len returns the number of features in the document.
func (fc *FeatureCollection) Len() int {
	return len(fc.features())
}

// GetFeature returns a wrapper over the feature at the given position. The
// wrapper aliases the document's backing structure, so edits through it are
// in-place edits of the document.
func (fc *FeatureCollection) GetFeature(index int) (*Feature, error) {
	feats := fc.features()
	if index < 0 || index >= len(feats) {
		return nil, fmt.Errorf("%w: %d with length %d", ErrIndexOutOfRange, index, len(feats))
	}
	m, _ := feats[index].(map[string]any)
	return FeatureFromValue(m), nil
}

// ReplaceFeature swaps the backing structure at the given position for the
// given feature's backing structure. The feature is aliased, not copied.
func (fc *FeatureCollection) ReplaceFeature(index int, feature *Feature) error {
	feats := fc.features()
	if index < 0 || index >= len(feats) {
		return fmt.Errorf("%w: %d with length %d", ErrIndexOutOfRange, index, len(feats))
	}
	feats[index] = feature.data
	return nil
}

// RemoveFeature deletes the feature at the given position, shifting every
// later feature one position down.
func (fc *FeatureCollection) RemoveFeature(index int) error {
	feats := fc.features()
	if index < 0 || index >= len(feats) {
		return fmt.Errorf("%w: %d with length %d", ErrIndexOutOfRange, index, len(feats))
	}
	fc.data["features"] = slices.Delete(feats, index, index+1)
	return nil
}

// Features iterates over the document's features in positional order. Each
// yielded wrapper aliases the backing structure. The sequence is lazy and
// restartable; resizing the feature sequence during a single traversal has
// undefined results.
func (fc *FeatureCollection) Features() iter.Seq[*Feature] {
	return func(yield func(*Feature) bool) {
		for _, fd := range fc.features() {
			m, _ := fd.(map[string]any)
			if !yield(FeatureFromValue(m)) {
				return
			}
		}
	}
}

// AddFeature appends the feature's backing structure to the document. The
// structure is aliased, so later edits through feature remain visible in the
// collection.
func (fc *FeatureCollection) AddFeature(feature *Feature) {
	fc.data["features"] = append(fc.features(), any(feature.data))
}

// AddFeatureValue appends a shallow copy of a raw feature mapping.
func (fc *FeatureCollection) AddFeatureValue(obj map[string]any) {
	fc.data["features"] = append(fc.features(), any(maps.Clone(obj)))
}

// CRS returns the stored crs descriptor after checking that its type is one
// of "name" or "link".
func (fc *FeatureCollection) CRS() (map[string]any, error) {
	crs, ok := fc.data["crs"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: missing crs entry", ErrInvalidCRS)
	}
	if t, _ := crs["type"].(string); t != "name" && t != "link" {
		return nil, fmt.Errorf("%w: %q, must be either name or link", ErrInvalidCRS, t)
	}
	return crs, nil
}

// DefineCRS overwrites the document's coordinate reference system. For typ
// "name" a non-empty OGC crs name is required; for typ "link" a non-empty
// url is required and linkType optionally tags the link format. name applies
// only to "name" and link/linkType only to "link".
func (fc *FeatureCollection) DefineCRS(typ, name, link, linkType string) error {
	props := map[string]any{}
	switch typ {
	case "name":
		if name == "" {
			return errors.New("a name crs requires the name argument")
		}
		props["name"] = name
	case "link":
		if link == "" {
			return errors.New("a link crs requires the link argument")
		}
		props["href"] = link
		if linkType != "" {
			props["type"] = linkType
		}
	default:
		return fmt.Errorf("%w: %q, must be either name or link", ErrInvalidCRS, typ)
	}
	fc.data["crs"] = map[string]any{"type": typ, "properties": props}
	return nil
}

// BBox returns the document bbox, recomputing and storing it first if no
// usable value is cached.
func (fc *FeatureCollection) BBox() ([]float64, error) {
	if b, ok := toBBox(fc.data["bbox"]); ok && len(b) > 0 {
		return b, nil
	}
	if err := fc.UpdateBBox(); err != nil {
		return nil, err
	}
	b, _ := toBBox(fc.data["bbox"])
	return b, nil
}

// UpdateBBox recomputes the document bbox from every non-Null feature
// geometry and stores it. Useful after adding, editing or removing features;
// Save calls it automatically. Fails with ErrNoGeometries when no feature
// has coordinates to reduce.
func (fc *FeatureCollection) UpdateBBox() error {
	var box []float64
	for i, fd := range fc.features() {
		m, _ := fd.(map[string]any)
		geom := FeatureFromValue(m).Geometry()
		if geom.Type() == TypeNull {
			continue
		}
		b, err := geom.BBox()
		if err != nil {
			return fmt.Errorf("feature %d: %w", i, err)
		}
		if len(b) < 4 {
			return fmt.Errorf("feature %d: malformed bbox %v", i, b)
		}
		if box == nil {
			box = []float64{b[0], b[1], b[2], b[3]}
			continue
		}
		box[0] = min(box[0], b[0])
		box[1] = min(box[1], b[1])
		box[2] = max(box[2], b[2])
		box[3] = max(box[3], b[3])
	}
	if box == nil {
		return ErrNoGeometries
	}
	fc.data["bbox"] = box
	return nil
}

// AllAttributes returns the sorted union of property keys across all
// features.
func (fc *FeatureCollection) AllAttributes() []string {
	seen := map[string]struct{}{}
	for f := range fc.Features() {
		for k := range f.Properties() {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CommonAttributes returns the sorted intersection of property keys across
// all features. With a single feature that is simply its key set.
func (fc *FeatureCollection) CommonAttributes() []string {
	feats := fc.features()
	if len(feats) == 0 {
		return nil
	}
	m, _ := feats[0].(map[string]any)
	common := map[string]struct{}{}
	for k := range FeatureFromValue(m).Properties() {
		common[k] = struct{}{}
	}
	for _, fd := range feats[1:] {
		m, _ := fd.(map[string]any)
		props := FeatureFromValue(m).Properties()
		for k := range common {
			if _, ok := props[k]; !ok {
				delete(common, k)
			}
		}
	}
	keys := make([]string, 0, len(common))
	for k := range common {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AddUniqueID assigns sequential integer ids starting at 0 to every
// feature's id property. The precondition that no feature already carries a
// truthy id is checked per feature as the pass proceeds, so on failure the
// features before the offending one keep the ids already written.
func (fc *FeatureCollection) AddUniqueID() error {
	uid := 0
	for i, fd := range fc.features() {
		m, _ := fd.(map[string]any)
		props := FeatureFromValue(m).Properties()
		if props == nil {
			return fmt.Errorf("feature %d has no properties mapping", i)
		}
		if truthy(props["id"]) {
			return fmt.Errorf("%w: feature %d", ErrIDExists, i)
		}
		props["id"] = uid
		uid++
	}
	return nil
}

// AddAllBBoxes recomputes and stores the bbox of every non-Null feature
// geometry, overwriting any stored value.
func (fc *FeatureCollection) AddAllBBoxes() error {
	for i, fd := range fc.features() {
		m, _ := fd.(map[string]any)
		geom := FeatureFromValue(m).Geometry()
		if geom.Type() == TypeNull {
			continue
		}
		geom.ClearBBox()
		b, err := geom.BBox()
		if err != nil {
			return fmt.Errorf("feature %d: %w", i, err)
		}
		geom.data["bbox"] = b
	}
	return nil
}

// SaveOptions are pass-through serialization options for Save.
type SaveOptions struct {
	// Indent pretty-prints the output using the given indentation string.
	Indent string
	// Minify runs the encoded document through a JSON minifier for the
	// smallest possible output. Takes precedence over Indent.
	Minify bool
}

// Save recomputes the document bbox and writes the document as JSON text to
// path. An empty document with nothing to compute a bbox from is still
// saved. I/O errors are returned as-is.
func (fc *FeatureCollection) Save(path string, opts *SaveOptions) error {
	if err := fc.UpdateBBox(); err != nil && !errors.Is(err, ErrNoGeometries) {
		return err
	}

	var raw []byte
	var err error
	if opts != nil && opts.Indent != "" && !opts.Minify {
		raw, err = json.MarshalIndent(fc.data, "", opts.Indent)
	} else {
		raw, err = json.Marshal(fc.data)
	}
	if err != nil {
		return err
	}

	if opts != nil && opts.Minify {
		m := minify.New()
		m.AddFunc("application/json", mjson.Minify)
		raw, err = m.Bytes("application/json", raw)
		if err != nil {
			return err
		}
	}

	return os.WriteFile(path, raw, 0644)
}

// GeoInterface exposes the document's raw value tree. The tree is the live
// backing structure shared with the wrappers, not a copy.
func (fc *FeatureCollection) GeoInterface() map[string]any {
	return fc.data
}

// MarshalJSON encodes the raw backing structure.
func (fc *FeatureCollection) MarshalJSON() ([]byte, error) {
	return json.Marshal(fc.data)
}
