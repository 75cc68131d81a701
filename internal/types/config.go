package types

// Formula is immutable formula text, tagged as either a main formula (owns
// a sensor's state) or an attribute formula (nested under a parent sensor)
// (§3 Data model: Formula). Identity is the text itself — two formulas with
// identical text share the compilation cache entry.
type Formula struct {
	Text      string
	Attribute bool
}

// VariableBindingKind tags a VariableBinding's variant.
type VariableBindingKind uint8

const (
	VarEntityRef VariableBindingKind = iota
	VarLiteral
	VarCollectionPattern
)

// VariableBinding is a sensor- or set-level variable declaration
// (§3 "VariableBinding ∈ {EntityRef(id), Literal(Scalar), CollectionPattern(string)}").
type VariableBinding struct {
	Kind    VariableBindingKind
	EntityID string // VarEntityRef
	Literal Scalar  // VarLiteral
	Pattern string  // VarCollectionPattern: a raw collection-query string
}

// EntityRef builds a VarEntityRef binding.
func EntityRef(id string) VariableBinding { return VariableBinding{Kind: VarEntityRef, EntityID: id} }

// LiteralBinding builds a VarLiteral binding.
func LiteralBinding(v Scalar) VariableBinding { return VariableBinding{Kind: VarLiteral, Literal: v} }

// CollectionPattern builds a VarCollectionPattern binding.
func CollectionPattern(pattern string) VariableBinding {
	return VariableBinding{Kind: VarCollectionPattern, Pattern: pattern}
}

// AttributeEntry is one entry of a SensorConfig's ordered attribute map;
// a plain slice preserves declaration order deterministically, which a Go
// map cannot (§3 "attributes: ordered-map<name, FormulaConfig>").
type AttributeEntry struct {
	Name    string
	Formula Formula
}

// SensorConfig is one synthetic sensor's declarative definition
// (§3 Data model: SensorConfig).
type SensorConfig struct {
	Key        string
	ExternalID string // empty means no backing entity
	Main       Formula
	Attributes []AttributeEntry
	Variables  map[string]VariableBinding
	DeviceInfo map[string]string
	Metadata   map[string]string
}

// HasBackingEntity reports whether the sensor's `state` token resolves to an
// externally-owned identifier rather than the sensor's own previous value
// (§4.8c).
func (s SensorConfig) HasBackingEntity() bool { return s.ExternalID != "" }

// AttributeNames returns attribute names in declaration order.
func (s SensorConfig) AttributeNames() []string {
	names := make([]string, len(s.Attributes))
	for i, a := range s.Attributes {
		names[i] = a.Name
	}
	return names
}

// Attribute returns the formula for a named attribute, if present.
func (s SensorConfig) Attribute(name string) (Formula, bool) {
	for _, a := range s.Attributes {
		if a.Name == name {
			return a.Formula, true
		}
	}
	return Formula{}, false
}

// SensorSet is a named collection of sensors sharing global variables and an
// optional device identifier (§3 Data model: SensorSet). Sensor keys must be
// unique within a set — validated by internal/config, not enforced here.
type SensorSet struct {
	Name             string
	Sensors          []SensorConfig
	GlobalVariables  map[string]VariableBinding
	DeviceIdentifier string
	SchemaVersion    string
}

// SensorByKey returns the sensor with the given key, if present.
func (s SensorSet) SensorByKey(key string) (SensorConfig, bool) {
	for _, sc := range s.Sensors {
		if sc.Key == key {
			return sc, true
		}
	}
	return SensorConfig{}, false
}

// Keys returns every sensor key in declaration order.
func (s SensorSet) Keys() []string {
	keys := make([]string, len(s.Sensors))
	for i, sc := range s.Sensors {
		keys[i] = sc.Key
	}
	return keys
}
