package frame

import "fmt"

// Hex formats c as #rrggbb.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Scheme tints rendered output, e.g. a green phosphor look.
type Scheme struct {
	Name       string
	Tint       RGB
	Background RGB
	// Blend is the tint strength: 0 keeps the cell colour, 1 replaces it.
	Blend float64
}

// Apply mixes c with the scheme's tint.
func (s Scheme) Apply(c RGB) RGB {
	mix := func(v, t uint8) uint8 {
		x := float64(v)*(1-s.Blend) + float64(t)*s.Blend
		if x > 255 {
			return 255
		}
		if x < 0 {
			return 0
		}
		return uint8(x)
	}
	return RGB{mix(c.R, s.Tint.R), mix(c.G, s.Tint.G), mix(c.B, s.Tint.B)}
}

// Built-in schemes.
var (
	SchemeCRT = Scheme{Name: "crt", Tint: RGB{51, 255, 51}, Background: RGB{5, 5, 5}, Blend: 0.8}
	SchemeC64 = Scheme{Name: "c64", Tint: RGB{124, 112, 218}, Background: RGB{53, 40, 121}, Blend: 0.8}
)

// LookupScheme returns a built-in scheme by name.
func LookupScheme(name string) (Scheme, bool) {
	switch name {
	case SchemeCRT.Name:
		return SchemeCRT, true
	case SchemeC64.Name:
		return SchemeC64, true
	}
	return Scheme{}, false
}
