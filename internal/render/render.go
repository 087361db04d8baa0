// Package render rasterizes GeoJSON feature collections to images.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/woozymasta/geojson"
	"github.com/woozymasta/geojson/internal/config"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

// Rendering happens on a supersampled canvas which is then downscaled to
// the target size, the same trick the tile pipeline uses for slicing large
// source images.
const superSample = 2

// Collection renders every feature of fc into an image sized and styled by
// style (nil uses the defaults). Features are projected linearly into the
// collection bbox with a small margin; Null geometries are skipped.
func Collection(fc *geojson.FeatureCollection, style *config.Style) (image.Image, error) {
	if style == nil {
		style = config.Default()
	}

	base, err := resolveStyle(style)
	if err != nil {
		return nil, err
	}

	box, err := fc.BBox()
	if err != nil {
		return nil, err
	}
	if len(box) < 4 {
		return nil, fmt.Errorf("malformed collection bbox %v", box)
	}

	w := style.Width * superSample
	h := style.Height * superSample

	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(base.background), image.Point{}, draw.Src)

	proj := newProjection(box, w, h)

	for f := range fc.Features() {
		geom := f.Geometry()
		if geom.Type() == geojson.TypeNull {
			continue
		}
		st, err := base.forFeature(f, style)
		if err != nil {
			return nil, err
		}
		if err := drawGeometry(canvas, proj, geom, st); err != nil {
			return nil, err
		}
	}

	out := image.NewRGBA(image.Rect(0, 0, style.Width, style.Height))
	xdraw.CatmullRom.Scale(out, out.Bounds(), canvas, canvas.Bounds(), xdraw.Src, nil)

	return out, nil
}

type resolved struct {
	background  color.NRGBA
	stroke      color.NRGBA
	fill        color.NRGBA
	pointRadius float64
	strokeWidth float64
}

func resolveStyle(style *config.Style) (resolved, error) {
	var r resolved
	var err error
	if r.background, err = ParseColor(style.Background); err != nil {
		return r, err
	}
	if r.stroke, err = ParseColor(style.Stroke); err != nil {
		return r, err
	}
	if r.fill, err = ParseColor(style.Fill); err != nil {
		return r, err
	}
	r.pointRadius = style.PointRadius
	r.strokeWidth = style.StrokeWidth
	return r, nil
}

// forFeature applies the by-type override matching the feature's "type"
// property, if any.
func (r resolved) forFeature(f *geojson.Feature, style *config.Style) (resolved, error) {
	typ, _ := f.Properties()["type"].(string)
	over, ok := style.ByType[typ]
	if !ok {
		return r, nil
	}

	out := r
	var err error
	if over.Stroke != "" {
		if out.stroke, err = ParseColor(over.Stroke); err != nil {
			return out, err
		}
	}
	if over.Fill != "" {
		if out.fill, err = ParseColor(over.Fill); err != nil {
			return out, err
		}
	}
	if over.PointRadius > 0 {
		out.pointRadius = over.PointRadius
	}
	if over.StrokeWidth > 0 {
		out.strokeWidth = over.StrokeWidth
	}
	return out, nil
}

// ParseColor parses a "#rrggbb" or "#rrggbbaa" hex color string.
func ParseColor(s string) (color.NRGBA, error) {
	hex := s
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	if len(hex) != 6 && len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}

	var v uint64
	for _, c := range []byte(hex) {
		var d uint64
		switch {
		case c >= '0' && c <= '9':
			d = uint64(c - '0')
		case c >= 'a' && c <= 'f':
			d = uint64(c-'a') + 10
		case c >= 'A' && c <= 'F':
			d = uint64(c-'A') + 10
		default:
			return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
		}
		v = v<<4 | d
	}

	if len(hex) == 6 {
		v = v<<8 | 0xff
	}
	return color.NRGBA{
		R: uint8(v >> 24),
		G: uint8(v >> 16),
		B: uint8(v >> 8),
		A: uint8(v),
	}, nil
}

// projection maps lon/lat into pixel space with a 5% margin and a flipped
// y axis.
type projection struct {
	minX, minY   float64
	scaleX       float64
	scaleY       float64
	padX, padY   float64
	pixelHeight  float64
}

func newProjection(box []float64, w, h int) projection {
	spanX := box[2] - box[0]
	spanY := box[3] - box[1]
	// Degenerate extents (single point collections) still need a usable
	// scale.
	if spanX == 0 {
		spanX = 1
	}
	if spanY == 0 {
		spanY = 1
	}
	padX := float64(w) * 0.05
	padY := float64(h) * 0.05
	return projection{
		minX:        box[0],
		minY:        box[1],
		scaleX:      (float64(w) - 2*padX) / spanX,
		scaleY:      (float64(h) - 2*padY) / spanY,
		padX:        padX,
		padY:        padY,
		pixelHeight: float64(h),
	}
}

func (p projection) point(x, y float64) (float32, float32) {
	px := p.padX + (x-p.minX)*p.scaleX
	py := p.pixelHeight - (p.padY + (y-p.minY)*p.scaleY)
	return float32(px), float32(py)
}

func drawGeometry(canvas *image.RGBA, proj projection, geom *geojson.Geometry, st resolved) error {
	coords := geom.Coordinates()

	switch geom.Type() {
	case geojson.TypePoint:
		x, y, ok := pos(coords)
		if !ok {
			return fmt.Errorf("malformed point coordinates %v", coords)
		}
		fillCircle(canvas, proj, x, y, st.pointRadius*superSample, st.stroke)
	case geojson.TypeMultiPoint:
		for _, pt := range seq(coords) {
			x, y, ok := pos(pt)
			if !ok {
				return fmt.Errorf("malformed point coordinates %v", pt)
			}
			fillCircle(canvas, proj, x, y, st.pointRadius*superSample, st.stroke)
		}
	case geojson.TypeLineString:
		strokeLine(canvas, proj, line(coords), st.strokeWidth*superSample, st.stroke)
	case geojson.TypeMultiLineString:
		for _, l := range seq(coords) {
			strokeLine(canvas, proj, line(l), st.strokeWidth*superSample, st.stroke)
		}
	case geojson.TypePolygon:
		drawPolygon(canvas, proj, seq(coords), st)
	case geojson.TypeMultiPolygon:
		for _, poly := range seq(coords) {
			drawPolygon(canvas, proj, seq(poly), st)
		}
	default:
		return fmt.Errorf("cannot render geometry type %q", geom.Type())
	}
	return nil
}

func drawPolygon(canvas *image.RGBA, proj projection, rings []any, st resolved) {
	var paths [][][2]float64
	for _, r := range rings {
		paths = append(paths, line(r))
	}
	fillRings(canvas, proj, paths, st.fill)
	for _, p := range paths {
		if len(p) > 1 {
			closed := append(p, p[0])
			strokeLine(canvas, proj, closed, st.strokeWidth*superSample, st.stroke)
		}
	}
}

func fillRings(canvas *image.RGBA, proj projection, rings [][][2]float64, col color.NRGBA) {
	if col.A == 0 {
		return
	}
	b := canvas.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	drawn := false
	for _, ring := range rings {
		if len(ring) < 3 {
			continue
		}
		x, y := proj.point(ring[0][0], ring[0][1])
		z.MoveTo(x, y)
		for _, pt := range ring[1:] {
			x, y = proj.point(pt[0], pt[1])
			z.LineTo(x, y)
		}
		z.ClosePath()
		drawn = true
	}
	if drawn {
		z.Draw(canvas, b, image.NewUniform(col), image.Point{})
	}
}

// strokeLine draws a polyline as one rasterizer path of per-segment quads.
func strokeLine(canvas *image.RGBA, proj projection, pts [][2]float64, width float64, col color.NRGBA) {
	if len(pts) < 2 || col.A == 0 {
		return
	}
	if width <= 0 {
		width = 1
	}
	half := float32(width / 2)

	b := canvas.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	for i := 0; i < len(pts)-1; i++ {
		x0, y0 := proj.point(pts[i][0], pts[i][1])
		x1, y1 := proj.point(pts[i+1][0], pts[i+1][1])
		dx, dy := x1-x0, y1-y0
		length := float32(math.Hypot(float64(dx), float64(dy)))
		if length == 0 {
			continue
		}
		// Perpendicular half-width offset.
		nx := -dy / length * half
		ny := dx / length * half
		z.MoveTo(x0+nx, y0+ny)
		z.LineTo(x1+nx, y1+ny)
		z.LineTo(x1-nx, y1-ny)
		z.LineTo(x0-nx, y0-ny)
		z.ClosePath()
	}
	z.Draw(canvas, b, image.NewUniform(col), image.Point{})
}

func fillCircle(canvas *image.RGBA, proj projection, x, y, radius float64, col color.NRGBA) {
	if radius <= 0 || col.A == 0 {
		return
	}
	cx, cy := proj.point(x, y)

	b := canvas.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	const segments = 24
	r := float32(radius)
	z.MoveTo(cx+r, cy)
	for i := 1; i <= segments; i++ {
		angle := 2 * math.Pi * float64(i) / segments
		z.LineTo(cx+r*float32(math.Cos(angle)), cy+r*float32(math.Sin(angle)))
	}
	z.ClosePath()
	z.Draw(canvas, b, image.NewUniform(col), image.Point{})
}

// pos and seq walk the raw coordinate tree as decoded from JSON.

func pos(v any) (x, y float64, ok bool) {
	s, ok := v.([]any)
	if !ok || len(s) < 2 {
		return 0, 0, false
	}
	x, xok := num(s[0])
	y, yok := num(s[1])
	return x, y, xok && yok
}

func num(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

func seq(v any) []any {
	s, _ := v.([]any)
	return s
}

func line(v any) [][2]float64 {
	var out [][2]float64
	for _, pt := range seq(v) {
		if x, y, ok := pos(pt); ok {
			out = append(out, [2]float64{x, y})
		}
	}
	return out
}
