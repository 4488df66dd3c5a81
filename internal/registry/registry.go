// Package registry holds the static pathology and physician lookup tables.
// It is pure data plus pure functions; lookups never fail, they degrade to
// echoing the key.
package registry

// Category groups pathologies by anatomical system.
type Category string

const (
	CategoryNormal  Category = "normal"
	CategoryCardiac Category = "cardiac"
	CategoryBone    Category = "bone"
	CategoryLung    Category = "lung"
	CategoryOther   Category = "other"
)

// Urgency ranks how quickly a finding needs physician attention.
type Urgency string

const (
	UrgencyRoutine   Urgency = "routine"
	UrgencyUrgent    Urgency = "urgent"
	UrgencyImmediate Urgency = "immediate"
)

// ColorTokens are opaque styling tokens consumed by the rendering layer.
type ColorTokens struct {
	Text       string `json:"text"`
	Background string `json:"background"`
	Border     string `json:"border"`
}

// Pathology describes one pathology key known to the dashboard.
type Pathology struct {
	Key                   string      `json:"key"`
	DisplayName           string      `json:"display_name"`
	Colors                ColorTokens `json:"colors"`
	RecommendedPhysicians []string    `json:"recommended_physicians"`
	Category              Category    `json:"category"`
	Urgency               Urgency     `json:"urgency"`

	// WireOrigin marks keys in the backend's own spelling. Some logical
	// pathologies are reachable under two keys (a legacy internal key and
	// the backend's, including one with a typo the backend actually
	// ships); both resolve to the same display identity and the wire key
	// wins when deduplicating display options.
	WireOrigin bool `json:"-"`
}

// pathologyOrder fixes the canonical listing order; map iteration order is
// not deterministic.
var pathologyOrder = []string{
	"normal",
	"coronaryCalcium",
	"coronary_сalcium",
	"aorticDilation",
	"aorta_dilation",
	"osteoporosis",
	"lungNodules",
}

var pathologies = map[string]Pathology{
	"normal": {
		Key:                   "normal",
		DisplayName:           "Normal",
		Colors:                ColorTokens{Text: "text-green-700", Background: "bg-green-50", Border: "border-green-200"},
		RecommendedPhysicians: []string{},
		Category:              CategoryNormal,
		Urgency:               UrgencyRoutine,
		WireOrigin:            true,
	},
	"coronaryCalcium": {
		Key:                   "coronaryCalcium",
		DisplayName:           "Coronary calcium",
		Colors:                ColorTokens{Text: "text-orange-700", Background: "bg-orange-50", Border: "border-orange-200"},
		RecommendedPhysicians: []string{"cardiologist"},
		Category:              CategoryCardiac,
		Urgency:               UrgencyUrgent,
	},
	// Backend alias for coronaryCalcium. The "с" is Cyrillic; this is the
	// key the API really sends.
	"coronary_сalcium": {
		Key:                   "coronary_сalcium",
		DisplayName:           "Coronary calcium",
		Colors:                ColorTokens{Text: "text-orange-700", Background: "bg-orange-50", Border: "border-orange-200"},
		RecommendedPhysicians: []string{"cardiologist"},
		Category:              CategoryCardiac,
		Urgency:               UrgencyUrgent,
		WireOrigin:            true,
	},
	"aorticDilation": {
		Key:                   "aorticDilation",
		DisplayName:           "Aortic dilation",
		Colors:                ColorTokens{Text: "text-red-700", Background: "bg-red-50", Border: "border-red-200"},
		RecommendedPhysicians: []string{"cardiologist", "cardiac_surgeon"},
		Category:              CategoryCardiac,
		Urgency:               UrgencyImmediate,
	},
	// Backend alias for aorticDilation.
	"aorta_dilation": {
		Key:                   "aorta_dilation",
		DisplayName:           "Aortic dilation",
		Colors:                ColorTokens{Text: "text-red-700", Background: "bg-red-50", Border: "border-red-200"},
		RecommendedPhysicians: []string{"cardiologist", "cardiac_surgeon"},
		Category:              CategoryCardiac,
		Urgency:               UrgencyImmediate,
		WireOrigin:            true,
	},
	"osteoporosis": {
		Key:                   "osteoporosis",
		DisplayName:           "Osteoporosis",
		Colors:                ColorTokens{Text: "text-blue-700", Background: "bg-blue-50", Border: "border-blue-200"},
		RecommendedPhysicians: []string{"endocrinologist"},
		Category:              CategoryBone,
		Urgency:               UrgencyRoutine,
		WireOrigin:            true,
	},
	"lungNodules": {
		Key:                   "lungNodules",
		DisplayName:           "Lung nodules",
		Colors:                ColorTokens{Text: "text-purple-700", Background: "bg-purple-50", Border: "border-purple-200"},
		RecommendedPhysicians: []string{"general_practitioner", "oncologist"},
		Category:              CategoryLung,
		Urgency:               UrgencyUrgent,
		WireOrigin:            true,
	},
}

var fallbackColors = ColorTokens{Text: "text-gray-700", Background: "bg-gray-50", Border: "border-gray-200"}

// Lookup returns the definition for a pathology key.
func Lookup(key string) (Pathology, bool) {
	p, ok := pathologies[key]
	return p, ok
}

// DisplayName returns the display name for a pathology key, or the key
// itself when unknown. Never fails.
func DisplayName(key string) string {
	if p, ok := pathologies[key]; ok {
		return p.DisplayName
	}
	return key
}

// RecommendedPhysicians returns the recommended physician keys for a
// pathology, or an empty list when unknown.
func RecommendedPhysicians(key string) []string {
	if p, ok := pathologies[key]; ok {
		return p.RecommendedPhysicians
	}
	return []string{}
}

// Colors returns styling tokens for a pathology key, with a neutral
// fallback for unknown keys.
func Colors(key string) ColorTokens {
	if p, ok := pathologies[key]; ok {
		return p.Colors
	}
	return fallbackColors
}

// CategoryOf returns the pathology category, CategoryOther when unknown.
func CategoryOf(key string) Category {
	if p, ok := pathologies[key]; ok {
		return p.Category
	}
	return CategoryOther
}

// UrgencyOf returns the pathology urgency, UrgencyRoutine when unknown.
func UrgencyOf(key string) Urgency {
	if p, ok := pathologies[key]; ok {
		return p.Urgency
	}
	return UrgencyRoutine
}

// IsKnown reports whether the key is in the registry.
func IsKnown(key string) bool {
	_, ok := pathologies[key]
	return ok
}

// Keys returns all registered pathology keys in canonical order, aliases
// included.
func Keys() []string {
	out := make([]string, len(pathologyOrder))
	copy(out, pathologyOrder)
	return out
}

// ByCategory returns all pathologies of a category in canonical order.
func ByCategory(c Category) []Pathology {
	var out []Pathology
	for _, k := range pathologyOrder {
		if p := pathologies[k]; p.Category == c {
			out = append(out, p)
		}
	}
	return out
}

// ByUrgency returns all pathologies of an urgency level in canonical order.
func ByUrgency(u Urgency) []Pathology {
	var out []Pathology
	for _, k := range pathologyOrder {
		if p := pathologies[k]; p.Urgency == u {
			out = append(out, p)
		}
	}
	return out
}

// DisplayOptions returns one entry per unique display name, for filter
// dropdowns. When a legacy key and a wire key share a display name the wire
// key is kept, so the selected option round-trips to the backend unchanged.
func DisplayOptions() []Pathology {
	byName := make(map[string]Pathology)
	var names []string
	for _, k := range pathologyOrder {
		p := pathologies[k]
		existing, seen := byName[p.DisplayName]
		if !seen {
			byName[p.DisplayName] = p
			names = append(names, p.DisplayName)
			continue
		}
		if p.WireOrigin && !existing.WireOrigin {
			byName[p.DisplayName] = p
		}
	}
	out := make([]Pathology, 0, len(names))
	for _, n := range names {
		out = append(out, byName[n])
	}
	return out
}

// KeysForDisplayName returns every registry key (canonical and alias)
// resolving to the given display name. Used to expand a dropdown selection
// into the key set the listing endpoint expects.
func KeysForDisplayName(name string) []string {
	var out []string
	for _, k := range pathologyOrder {
		if pathologies[k].DisplayName == name {
			out = append(out, k)
		}
	}
	return out
}
