package geojson

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoPointDoc(t *testing.T) *FeatureCollection {
	t.Helper()
	fc := New()
	fc.AddFeature(NewFeature(
		MakeGeometry(TypePoint, []float64{21, 3}, nil),
		map[string]any{"country": "Norway"},
	))
	fc.AddFeature(NewFeature(
		MakeGeometry(TypePoint, []float64{44, 22}, nil),
		map[string]any{"country": "USA"},
	))
	return fc
}

func TestNewDocumentDefaults(t *testing.T) {
	fc := New()

	assert.Equal(t, 0, fc.Len())

	crs, err := fc.CRS()
	require.NoError(t, err)
	assert.Equal(t, "name", crs["type"])
	assert.Equal(t, DefaultCRSName, crs["properties"].(map[string]any)["name"])
}

func TestUpdateBBoxFromScratch(t *testing.T) {
	fc := twoPointDoc(t)

	require.NoError(t, fc.UpdateBBox())

	b, err := fc.BBox()
	require.NoError(t, err)
	assert.Equal(t, []float64{21, 3, 44, 22}, b)
}

func TestUpdateBBoxWithoutGeometries(t *testing.T) {
	assert.ErrorIs(t, New().UpdateBBox(), ErrNoGeometries)

	fc := New()
	fc.AddFeature(NewFeature(nil, map[string]any{"empty": true}))
	assert.ErrorIs(t, fc.UpdateBBox(), ErrNoGeometries)
}

func TestBBoxIsDerivedNotAuthoritative(t *testing.T) {
	fc := twoPointDoc(t)
	require.NoError(t, fc.UpdateBBox())

	fc.AddFeature(NewFeature(MakeGeometry(TypePoint, []float64{100, 100}, nil), nil))

	// The cached box stays stale until explicitly recomputed.
	b, err := fc.BBox()
	require.NoError(t, err)
	assert.Equal(t, []float64{21, 3, 44, 22}, b)

	require.NoError(t, fc.UpdateBBox())
	b, err = fc.BBox()
	require.NoError(t, err)
	assert.Equal(t, []float64{21, 3, 100, 100}, b)
}

func TestAttributes(t *testing.T) {
	fc := New()
	fc.AddFeature(NewFeature(nil, map[string]any{"a": 1, "b": 2}))

	assert.Equal(t, []string{"a", "b"}, fc.AllAttributes())
	// Intersection of a single set is that set.
	assert.Equal(t, []string{"a", "b"}, fc.CommonAttributes())

	fc.AddFeature(NewFeature(nil, map[string]any{"a": 3, "c": 4}))

	assert.Equal(t, []string{"a", "b", "c"}, fc.AllAttributes())
	assert.Equal(t, []string{"a"}, fc.CommonAttributes())
}

func TestAttributesEmptyCollection(t *testing.T) {
	fc := New()
	assert.Empty(t, fc.AllAttributes())
	assert.Empty(t, fc.CommonAttributes())
}

func TestAddUniqueID(t *testing.T) {
	fc := twoPointDoc(t)

	require.NoError(t, fc.AddUniqueID())

	f0, err := fc.GetFeature(0)
	require.NoError(t, err)
	f1, err := fc.GetFeature(1)
	require.NoError(t, err)
	assert.Equal(t, 0, f0.Properties()["id"])
	assert.Equal(t, 1, f1.Properties()["id"])
}

func TestAddUniqueIDPartialWrite(t *testing.T) {
	fc := twoPointDoc(t)
	fc.AddFeature(NewFeature(nil, map[string]any{"id": 99}))

	err := fc.AddUniqueID()
	require.ErrorIs(t, err, ErrIDExists)

	// The features before the offending one keep the ids already written.
	f0, _ := fc.GetFeature(0)
	f1, _ := fc.GetFeature(1)
	f2, _ := fc.GetFeature(2)
	assert.Equal(t, 0, f0.Properties()["id"])
	assert.Equal(t, 1, f1.Properties()["id"])
	assert.Equal(t, 99, f2.Properties()["id"])
}

func TestAddAllBBoxesIdempotent(t *testing.T) {
	fc := New()
	fc.AddFeature(NewFeature(
		MakeGeometry(TypePolygon, [][][]float64{{{0, 0}, {10, 0}, {10, 10}, {0, 0}}}, nil),
		nil,
	))
	fc.AddFeature(NewFeature(nil, nil)) // Null geometry is skipped

	require.NoError(t, fc.AddAllBBoxes())
	f, err := fc.GetFeature(0)
	require.NoError(t, err)
	first := f.Geometry().GeoInterface()["bbox"]
	require.Equal(t, []float64{0, 0, 10, 10}, first)

	require.NoError(t, fc.AddAllBBoxes())
	f, err = fc.GetFeature(0)
	require.NoError(t, err)
	assert.Equal(t, first, f.Geometry().GeoInterface()["bbox"])
}

func TestAddAllBBoxesOverwritesStale(t *testing.T) {
	fc := New()
	fc.AddFeature(NewFeature(MakeGeometry(TypePoint, []float64{1, 2}, []float64{0, 0, 9, 9}), nil))

	require.NoError(t, fc.AddAllBBoxes())

	f, err := fc.GetFeature(0)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 1, 2}, f.Geometry().GeoInterface()["bbox"])
}

func TestRemoveFeatureShiftsIndices(t *testing.T) {
	fc := New()
	for _, name := range []string{"a", "b", "c"} {
		fc.AddFeature(NewFeature(nil, map[string]any{"name": name}))
	}

	require.NoError(t, fc.RemoveFeature(1))

	assert.Equal(t, 2, fc.Len())
	f, err := fc.GetFeature(1)
	require.NoError(t, err)
	assert.Equal(t, "c", f.Properties()["name"])

	_, err = fc.GetFeature(2)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	assert.ErrorIs(t, fc.RemoveFeature(2), ErrIndexOutOfRange)
}

func TestReplaceFeatureAliases(t *testing.T) {
	fc := twoPointDoc(t)
	repl := NewFeature(nil, map[string]any{"name": "replacement"})

	require.NoError(t, fc.ReplaceFeature(0, repl))

	// Later edits through the original reference stay visible.
	repl.Properties()["name"] = "edited"
	f, err := fc.GetFeature(0)
	require.NoError(t, err)
	assert.Equal(t, "edited", f.Properties()["name"])

	assert.ErrorIs(t, fc.ReplaceFeature(5, repl), ErrIndexOutOfRange)
}

func TestAddFeatureAliasesBackingStructure(t *testing.T) {
	fc := New()
	f := NewFeature(nil, map[string]any{"n": 1})

	fc.AddFeature(f)
	f.Properties()["n"] = 2

	got, err := fc.GetFeature(0)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Properties()["n"])
}

func TestAddFeatureValueCopies(t *testing.T) {
	fc := New()
	raw := map[string]any{
		"type":       "Feature",
		"geometry":   nil,
		"properties": map[string]any{},
	}

	fc.AddFeatureValue(raw)
	raw["type"] = "mutated"

	got, err := fc.GetFeature(0)
	require.NoError(t, err)
	assert.Equal(t, "Feature", got.data["type"])
}

func TestIterationReflectsMutation(t *testing.T) {
	fc := twoPointDoc(t)

	for f := range fc.Features() {
		f.Properties()["seen"] = true
	}

	count := 0
	for f := range fc.Features() {
		assert.Equal(t, true, f.Properties()["seen"])
		count++
	}
	assert.Equal(t, 2, count)
}

func TestIterationStopsEarly(t *testing.T) {
	fc := twoPointDoc(t)

	count := 0
	for range fc.Features() {
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestDefineCRS(t *testing.T) {
	fc := New()

	require.NoError(t, fc.DefineCRS("link", "", "http://spatialreference.org/ref/epsg/26912/esriwkt/", "esriwkt"))

	crs, err := fc.CRS()
	require.NoError(t, err)
	assert.Equal(t, "link", crs["type"])
	props := crs["properties"].(map[string]any)
	assert.Equal(t, "http://spatialreference.org/ref/epsg/26912/esriwkt/", props["href"])
	assert.Equal(t, "esriwkt", props["type"])

	require.NoError(t, fc.DefineCRS("name", "urn:ogc:def:crs:EPSG::4326", "", ""))
	crs, err = fc.CRS()
	require.NoError(t, err)
	assert.Equal(t, "name", crs["type"])
}

func TestDefineCRSErrors(t *testing.T) {
	fc := New()

	assert.ErrorIs(t, fc.DefineCRS("projection", "", "", ""), ErrInvalidCRS)
	assert.Error(t, fc.DefineCRS("name", "", "", ""))
	assert.Error(t, fc.DefineCRS("link", "", "", ""))
}

func TestCRSDefensiveCheck(t *testing.T) {
	fc := New()
	fc.data["crs"] = map[string]any{"type": "bogus", "properties": map[string]any{}}

	_, err := fc.CRS()
	assert.ErrorIs(t, err, ErrInvalidCRS)
}

func TestValidateFeaturesMustBeSequence(t *testing.T) {
	for _, opts := range []*Options{
		nil,
		{Strict: true},
		{SkipInvalid: true},
	} {
		data := map[string]any{
			"type":     "FeatureCollection",
			"features": map[string]any{},
		}
		_, err := FromValue(data, opts)
		assert.Error(t, err)
	}
}

func TestValidateFeaturesEntryRequired(t *testing.T) {
	_, err := FromValue(map[string]any{"type": "FeatureCollection"}, nil)
	assert.Error(t, err)
}

func TestValidateFixesDiscriminator(t *testing.T) {
	data := map[string]any{"features": []any{}}

	require.NoError(t, Validate(data, nil))
	assert.Equal(t, "FeatureCollection", data["type"])

	strict := map[string]any{"features": []any{}}
	assert.Error(t, Validate(strict, &Options{Strict: true}))
}

func TestSkipInvalidDropsFeatures(t *testing.T) {
	data := map[string]any{
		"type": "FeatureCollection",
		"features": []any{
			map[string]any{
				"type":       "Feature",
				"geometry":   map[string]any{"type": "Point", "coordinates": []any{1.0, 2.0}},
				"properties": map[string]any{},
			},
			map[string]any{
				"type":       "Feature",
				"geometry":   map[string]any{"type": "LineString", "coordinates": []any{[]any{1.0, 2.0}}},
				"properties": map[string]any{},
			},
		},
	}

	fc, err := FromValue(data, &Options{SkipInvalid: true})
	require.NoError(t, err)
	assert.Equal(t, 1, fc.Len())

	// Without skipping, the invalid feature aborts the load.
	bad := map[string]any{
		"type": "FeatureCollection",
		"features": []any{
			map[string]any{
				"type":       "Feature",
				"geometry":   map[string]any{"type": "LineString", "coordinates": []any{[]any{1.0, 2.0}}},
				"properties": map[string]any{},
			},
		},
	}
	_, err = FromValue(bad, nil)
	assert.Error(t, err)
}

func TestFromValueFillsGaps(t *testing.T) {
	data := map[string]any{
		"type": "FeatureCollection",
		"features": []any{
			map[string]any{
				"type":       "Feature",
				"geometry":   map[string]any{"type": "Point", "coordinates": []any{4.0, 5.0}},
				"properties": map[string]any{},
			},
		},
	}

	fc, err := FromValue(data, nil)
	require.NoError(t, err)

	// bbox is computed eagerly and the crs defaulted to WGS84.
	assert.Equal(t, []float64{4, 5, 4, 5}, data["bbox"])
	crs, err := fc.CRS()
	require.NoError(t, err)
	assert.Equal(t, "name", crs["type"])
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.geojson")
	again := filepath.Join(dir, "again.geojson")

	fc := twoPointDoc(t)
	require.NoError(t, fc.DefineCRS("name", "urn:ogc:def:crs:EPSG::4326", "", ""))
	require.NoError(t, fc.Save(path, nil))

	loaded, err := Load(path, nil)
	require.NoError(t, err)
	require.NoError(t, loaded.Save(again, nil))

	final, err := Load(again, nil)
	require.NoError(t, err)

	require.Equal(t, fc.Len(), final.Len())
	for i := 0; i < fc.Len(); i++ {
		want, err := fc.GetFeature(i)
		require.NoError(t, err)
		got, err := final.GetFeature(i)
		require.NoError(t, err)

		assert.Equal(t, want.Geometry().Type(), got.Geometry().Type())
		wb, err := want.Geometry().BBox()
		require.NoError(t, err)
		gb, err := got.Geometry().BBox()
		require.NoError(t, err)
		assert.Equal(t, wb, gb)
		assert.Equal(t, want.Properties(), got.Properties())
	}

	wantCRS, err := fc.CRS()
	require.NoError(t, err)
	gotCRS, err := final.CRS()
	require.NoError(t, err)
	assert.Equal(t, wantCRS, gotCRS)
}

func TestSaveComputesBBox(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.geojson")
	fc := twoPointDoc(t)

	require.NoError(t, fc.Save(path, nil))

	loaded, err := Load(path, nil)
	require.NoError(t, err)
	b, err := loaded.BBox()
	require.NoError(t, err)
	assert.Equal(t, []float64{21, 3, 44, 22}, b)
}

func TestSaveEmptyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.geojson")

	require.NoError(t, New().Save(path, nil))

	loaded, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.Len())
}

func TestSaveIndent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pretty.geojson")
	fc := twoPointDoc(t)

	require.NoError(t, fc.Save(path, &SaveOptions{Indent: "  "}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\n  \"type\"")
}

func TestSaveMinify(t *testing.T) {
	path := filepath.Join(t.TempDir(), "min.geojson")
	fc := twoPointDoc(t)

	require.NoError(t, fc.Save(path, &SaveOptions{Minify: true}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(raw), "\n"))

	_, err = Load(path, nil)
	assert.NoError(t, err)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.geojson"), nil)
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.geojson")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0644))
	_, err = Load(bad, nil)
	assert.Error(t, err)
}
