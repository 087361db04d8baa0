package geojson

// Helpers for working with the raw value tree backing every wrapper type.
// The canonical representation is the one encoding/json produces: nested
// map[string]any and []any with float64 numbers. Programmatic input may use
// typed coordinate slices instead, which normalizeCoords folds into the
// canonical form at the construction boundary.

func normalizeCoords(v any) any {
	switch c := v.(type) {
	case []any:
		out := make([]any, len(c))
		for i, e := range c {
			out[i] = normalizeCoords(e)
		}
		return out
	case []float64:
		out := make([]any, len(c))
		for i, e := range c {
			out[i] = e
		}
		return out
	case [][]float64:
		out := make([]any, len(c))
		for i, e := range c {
			out[i] = normalizeCoords(e)
		}
		return out
	case [][][]float64:
		out := make([]any, len(c))
		for i, e := range c {
			out[i] = normalizeCoords(e)
		}
		return out
	case [][][][]float64:
		out := make([]any, len(c))
		for i, e := range c {
			out[i] = normalizeCoords(e)
		}
		return out
	case float32:
		return float64(c)
	case int:
		return float64(c)
	case int64:
		return float64(c)
	default:
		return v
	}
}

// position extracts an [x,y] pair from a coordinate entry.
func position(v any) (x, y float64, ok bool) {
	switch p := v.(type) {
	case []any:
		if len(p) < 2 {
			return 0, 0, false
		}
		x, xok := toFloat(p[0])
		y, yok := toFloat(p[1])
		return x, y, xok && yok
	case []float64:
		if len(p) < 2 {
			return 0, 0, false
		}
		return p[0], p[1], true
	}
	return 0, 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// toBBox converts a stored bbox entry into a []float64, tolerating both the
// decoded []any form and the typed form written by this package.
func toBBox(v any) ([]float64, bool) {
	switch b := v.(type) {
	case []float64:
		return b, true
	case []any:
		out := make([]float64, len(b))
		for i, e := range b {
			f, ok := toFloat(e)
			if !ok {
				return nil, false
			}
			out[i] = f
		}
		return out, true
	}
	return nil, false
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopyValue(e)
		}
		return out
	case []float64:
		out := make([]float64, len(t))
		copy(out, t)
		return out
	default:
		return v
	}
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

// truthy mirrors the loose presence check used for existing id properties:
// absent, false, zero, empty string and empty containers all count as unset.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return true
}
