package registry

// Physician describes one physician specialty known to the dashboard.
type Physician struct {
	Key         string `json:"key"`
	DisplayName string `json:"display_name"`
	BadgeClass  string `json:"badge_class"`
}

var physicianOrder = []string{
	"radiologist",
	"cardiologist",
	"cardiac_surgeon",
	"pulmonologist",
	"orthopedist",
	"neurologist",
	"oncologist",
	"endocrinologist",
	"general_practitioner",
	"surgeon",
	"emergency_physician",
}

var physicians = map[string]Physician{
	"radiologist":          {Key: "radiologist", DisplayName: "Radiologist", BadgeClass: "bg-blue-50 text-blue-700"},
	"cardiologist":         {Key: "cardiologist", DisplayName: "Cardiologist", BadgeClass: "bg-red-50 text-red-700"},
	"cardiac_surgeon":      {Key: "cardiac_surgeon", DisplayName: "Cardiac surgeon", BadgeClass: "bg-red-100 text-red-800"},
	"pulmonologist":        {Key: "pulmonologist", DisplayName: "Pulmonologist", BadgeClass: "bg-cyan-50 text-cyan-700"},
	"orthopedist":          {Key: "orthopedist", DisplayName: "Orthopedist", BadgeClass: "bg-amber-50 text-amber-700"},
	"neurologist":          {Key: "neurologist", DisplayName: "Neurologist", BadgeClass: "bg-purple-50 text-purple-700"},
	"oncologist":           {Key: "oncologist", DisplayName: "Oncologist", BadgeClass: "bg-orange-50 text-orange-700"},
	"endocrinologist":      {Key: "endocrinologist", DisplayName: "Endocrinologist", BadgeClass: "bg-blue-50 text-blue-700"},
	"general_practitioner": {Key: "general_practitioner", DisplayName: "General practitioner", BadgeClass: "bg-green-50 text-green-700"},
	"surgeon":              {Key: "surgeon", DisplayName: "Surgeon", BadgeClass: "bg-red-50 text-red-700"},
	"emergency_physician":  {Key: "emergency_physician", DisplayName: "Emergency physician", BadgeClass: "bg-red-100 text-red-800"},
}

// LookupPhysician returns the physician definition for a key.
func LookupPhysician(key string) (Physician, bool) {
	p, ok := physicians[key]
	return p, ok
}

// PhysicianDisplayName returns the display name for a physician key, or the
// key itself when unknown.
func PhysicianDisplayName(key string) string {
	if p, ok := physicians[key]; ok {
		return p.DisplayName
	}
	return key
}

// PhysicianBadgeClass returns the badge tokens for a physician key, with a
// neutral fallback.
func PhysicianBadgeClass(key string) string {
	if p, ok := physicians[key]; ok {
		return p.BadgeClass
	}
	return "bg-gray-50 text-gray-700"
}

// PhysicianKeys returns all physician keys in canonical order.
func PhysicianKeys() []string {
	out := make([]string, len(physicianOrder))
	copy(out, physicianOrder)
	return out
}
