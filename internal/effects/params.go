package effects

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Params is the loosely typed parameter map used at the config and UI boundary.
// Processors never read it directly; each effect decodes its own struct.
type Params map[string]any

// Clone returns a shallow copy.
func (p Params) Clone() Params {
	c := make(Params, len(p))
	for k, v := range p {
		c[k] = v
	}
	return c
}

// Merge returns a copy of p with every key of over applied on top.
func (p Params) Merge(over Params) Params {
	c := p.Clone()
	for k, v := range over {
		c[k] = v
	}
	return c
}

// Float reads a numeric value; strings are parsed, booleans map to 0/1.
func (p Params) Float(key string) (float64, bool) {
	switch v := p[key].(type) {
	case float64:
		return v, !math.IsNaN(v) && !math.IsInf(v, 0)
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint8:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	return 0, false
}

// Bool reads a boolean; numbers are true when non-zero.
func (p Params) Bool(key string) (bool, bool) {
	switch v := p[key].(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(v)
		return b, err == nil
	}
	if f, ok := p.Float(key); ok {
		return f != 0, true
	}
	return false, false
}

// String reads a string value.
func (p Params) String(key string) (string, bool) {
	switch v := p[key].(type) {
	case string:
		return v, true
	case fmt.Stringer:
		return v.String(), true
	}
	if f, ok := p.Float(key); ok {
		return strconv.FormatFloat(f, 'f', -1, 64), true
	}
	return "", false
}

// RGB is an 8-bit colour.
type RGB struct{ R, G, B uint8 }

// ParseHex parses "#rrggbb" or "#rgb". Invalid input yields black and false.
func ParseHex(s string) (RGB, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return RGB{}, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return RGB{}, false
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, true
}

// decoder reads parameters for one effect type, falling back to schema
// defaults and clamping numeric values into the schema range.
type decoder struct {
	p     Params
	specs map[string]ParamSpec
}

func newDecoder(t Type, p Params) decoder {
	return decoder{p: p, specs: schemaIndex[t]}
}

func (d decoder) float(key string) float64 {
	spec, known := d.specs[key]
	v, ok := d.p.Float(key)
	if !ok {
		if known {
			v, _ = Params{key: spec.Default}.Float(key)
		}
		return v
	}
	if known && spec.Kind == KindSlider {
		v = math.Max(spec.Min, math.Min(spec.Max, v))
	}
	return v
}

func (d decoder) int(key string) int {
	return int(math.Floor(d.float(key)))
}

func (d decoder) bool(key string) bool {
	if v, ok := d.p.Bool(key); ok {
		return v
	}
	if spec, ok := d.specs[key]; ok {
		b, _ := spec.Default.(bool)
		return b
	}
	return false
}

// choice returns the value when it is one of the allowed options, else the default.
func (d decoder) choice(key string) string {
	spec := d.specs[key]
	def, _ := spec.Default.(string)
	v, ok := d.p.String(key)
	if !ok {
		return def
	}
	if len(spec.Options) == 0 {
		return v
	}
	for _, o := range spec.Options {
		if o == v {
			return v
		}
	}
	return def
}

func (d decoder) color(key string) RGB {
	if s, ok := d.p.String(key); ok {
		if c, ok := ParseHex(s); ok {
			return c
		}
	}
	def, _ := d.specs[key].Default.(string)
	c, _ := ParseHex(def)
	return c
}
