// Package storage implements the Storage collaborator (§6 "Persisted state
// layout"): a YAML binding for SensorSet, rewriting cross-sensor references
// between internal keys and host external ids on export and import, and an
// fsnotify-based reload watch. A sensor's references to itself are not
// rewritten; they stay as written.
// Grounded on 99souls-ariadne's RuntimeConfigManager/HotReloadSystem
// (engine/internal/runtime/runtime.go): yaml.Marshal/Unmarshal over a
// documented struct, a checksum to detect no-op writes, and a watcher
// goroutine emitting changes over a channel.
package storage

import "github.com/LegoTypes/synthformula/internal/types"

// CurrentMajorVersion is the only schema major version this package reads
// or writes (§6 "the core rejects unknown major versions").
const CurrentMajorVersion = "1"

// document is the on-disk YAML shape (§6: "version, global_settings:
// {device_identifier?, variables?}, sensors: {<key>: SensorConfig}").
// Field order here drives field order on Marshal.
type document struct {
	Version        string                    `yaml:"version"`
	GlobalSettings globalSettings            `yaml:"global_settings,omitempty"`
	Sensors        map[string]sensorDocument `yaml:"sensors"`
}

type globalSettings struct {
	DeviceIdentifier string                      `yaml:"device_identifier,omitempty"`
	Variables        map[string]variableDocument `yaml:"variables,omitempty"`
}

type sensorDocument struct {
	ExternalID string                      `yaml:"external_id,omitempty"`
	Main       string                      `yaml:"main"`
	Attributes []attributeDocument         `yaml:"attributes,omitempty"`
	Variables  map[string]variableDocument `yaml:"variables,omitempty"`
	DeviceInfo map[string]string           `yaml:"device_info,omitempty"`
	Metadata   map[string]string           `yaml:"metadata,omitempty"`
}

type attributeDocument struct {
	Name    string `yaml:"name"`
	Formula string `yaml:"formula"`
}

// variableDocument carries exactly one of its three variant fields, mapping
// to types.VariableBindingKind (§3 "VariableBinding ∈ {EntityRef(id),
// Literal(Scalar), CollectionPattern(string)}").
type variableDocument struct {
	EntityID    string      `yaml:"entity_id,omitempty"`
	Literal     interface{} `yaml:"literal,omitempty"`
	LiteralKind string      `yaml:"literal_kind,omitempty"`
	Pattern     string      `yaml:"pattern,omitempty"`
}

func bindingToDocument(vb types.VariableBinding) variableDocument {
	switch vb.Kind {
	case types.VarEntityRef:
		return variableDocument{EntityID: vb.EntityID}
	case types.VarCollectionPattern:
		return variableDocument{Pattern: vb.Pattern}
	default:
		return literalToDocument(vb.Literal)
	}
}

func documentToBinding(vd variableDocument) (types.VariableBinding, error) {
	switch {
	case vd.EntityID != "":
		return types.EntityRef(vd.EntityID), nil
	case vd.Pattern != "":
		return types.CollectionPattern(vd.Pattern), nil
	default:
		sc, err := documentToLiteral(vd)
		if err != nil {
			return types.VariableBinding{}, err
		}
		return types.LiteralBinding(sc), nil
	}
}
