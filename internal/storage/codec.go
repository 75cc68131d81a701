package storage

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/LegoTypes/synthformula/internal/types"
)

// Encode renders set as the YAML document bytes described in §6,
// rewriting every formula's cross-sensor references from internal sensor
// keys to host-assigned external ids before marshaling.
func Encode(set types.SensorSet) ([]byte, error) {
	doc, err := toDocument(set)
	if err != nil {
		return nil, err
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("storage: marshaling sensor set %q: %w", set.Name, err)
	}
	return out, nil
}

// Decode parses YAML document bytes into a SensorSet, re-resolving
// cross-sensor references from host external ids back to internal sensor
// keys, and rejects unknown schema major versions (§6).
func Decode(data []byte) (types.SensorSet, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return types.SensorSet{}, fmt.Errorf("storage: unmarshaling sensor set: %w", err)
	}
	if doc.Version == "" {
		return types.SensorSet{}, types.NewError(types.ErrSchemaVersion, "missing schema version")
	}
	if majorVersion(doc.Version) != CurrentMajorVersion {
		return types.SensorSet{}, types.NewError(types.ErrSchemaVersion,
			fmt.Sprintf("unsupported schema major version %q, require %q", doc.Version, CurrentMajorVersion))
	}
	return fromDocument(doc)
}

func majorVersion(version string) string {
	for i, r := range version {
		if r == '.' {
			return version[:i]
		}
	}
	return version
}

// toDocument builds the export-ready document, rewriting cross-sensor
// references before they leave the process.
func toDocument(set types.SensorSet) (document, error) {
	// Only sensors with a backing entity have a host-assigned external id
	// to rewrite to; a reference to a purely synthetic sibling is left
	// under its internal key (§6 rewrite applies to keys that have one).
	replacements := make(map[string]string, len(set.Sensors))
	for _, s := range set.Sensors {
		if s.ExternalID != "" {
			replacements[s.Key] = s.ExternalID
		}
	}

	doc := document{
		Version: CurrentMajorVersion + ".0",
		GlobalSettings: globalSettings{
			DeviceIdentifier: set.DeviceIdentifier,
			Variables:        bindingsToDocuments(set.GlobalVariables),
		},
		Sensors: make(map[string]sensorDocument, len(set.Sensors)),
	}

	for _, s := range set.Sensors {
		// A sensor's own key is never rewritten in its own formulas: self
		// reference runs through the `state` alias, never the bare key
		// (§4.3 step 3 excludes self from sibling-key resolution).
		own := make(map[string]string, len(replacements))
		for k, v := range replacements {
			if k != s.Key {
				own[k] = v
			}
		}

		mainText := rewriteTokens(s.Main.Text, own)

		attrs := make([]attributeDocument, len(s.Attributes))
		for i, a := range s.Attributes {
			attrs[i] = attributeDocument{Name: a.Name, Formula: rewriteTokens(a.Formula.Text, own)}
		}

		doc.Sensors[s.Key] = sensorDocument{
			ExternalID: s.ExternalID,
			Main:       mainText,
			Attributes: attrs,
			Variables:  bindingsToDocuments(s.Variables),
			DeviceInfo: s.DeviceInfo,
			Metadata:   s.Metadata,
		}
	}

	return doc, nil
}

// fromDocument builds a SensorSet from a parsed document, re-resolving
// external-id references back to internal sensor keys.
func fromDocument(doc document) (types.SensorSet, error) {
	replacements := make(map[string]string, len(doc.Sensors))
	for key, sd := range doc.Sensors {
		if sd.ExternalID != "" {
			replacements[sd.ExternalID] = key
		}
	}

	set := types.SensorSet{
		SchemaVersion:    doc.Version,
		DeviceIdentifier: doc.GlobalSettings.DeviceIdentifier,
		Sensors:          make([]types.SensorConfig, 0, len(doc.Sensors)),
	}
	globalVars, err := documentsToBindings(doc.GlobalSettings.Variables)
	if err != nil {
		return types.SensorSet{}, fmt.Errorf("storage: decoding global variables: %w", err)
	}
	set.GlobalVariables = globalVars

	for key, sd := range doc.Sensors {
		mainText := rewriteTokens(sd.Main, replacements)

		attrs := make([]types.AttributeEntry, len(sd.Attributes))
		for i, a := range sd.Attributes {
			attrs[i] = types.AttributeEntry{
				Name:    a.Name,
				Formula: types.Formula{Text: rewriteTokens(a.Formula, replacements), Attribute: true},
			}
		}

		vars, err := documentsToBindings(sd.Variables)
		if err != nil {
			return types.SensorSet{}, fmt.Errorf("storage: decoding sensor %q variables: %w", key, err)
		}

		set.Sensors = append(set.Sensors, types.SensorConfig{
			Key:        key,
			ExternalID: sd.ExternalID,
			Main:       types.Formula{Text: mainText},
			Attributes: attrs,
			Variables:  vars,
			DeviceInfo: sd.DeviceInfo,
			Metadata:   sd.Metadata,
		})
	}

	return set, nil
}

func bindingsToDocuments(vars map[string]types.VariableBinding) map[string]variableDocument {
	if len(vars) == 0 {
		return nil
	}
	out := make(map[string]variableDocument, len(vars))
	for name, vb := range vars {
		out[name] = bindingToDocument(vb)
	}
	return out
}

func documentsToBindings(docs map[string]variableDocument) (map[string]types.VariableBinding, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	out := make(map[string]types.VariableBinding, len(docs))
	for name, vd := range docs {
		vb, err := documentToBinding(vd)
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", name, err)
		}
		out[name] = vb
	}
	return out, nil
}
