package storage

import (
	"fmt"
	"time"

	"github.com/LegoTypes/synthformula/internal/types"
)

// literalToDocument renders a Scalar into the YAML-friendly shape: a plain
// scalar value plus an explicit kind tag, since YAML's own type inference
// cannot distinguish types.Integer(2) from types.Number(2) round-trip.
func literalToDocument(v types.Scalar) variableDocument {
	switch v.Kind {
	case types.KindNumber:
		f, _ := v.Float64()
		return variableDocument{Literal: f, LiteralKind: "number"}
	case types.KindInteger:
		f, _ := v.Float64()
		return variableDocument{Literal: int64(f), LiteralKind: "integer"}
	case types.KindBoolean:
		b, _ := v.Bool64()
		return variableDocument{Literal: b, LiteralKind: "boolean"}
	case types.KindString:
		s, _ := v.Text()
		return variableDocument{Literal: s, LiteralKind: "string"}
	case types.KindDateTime:
		t, _ := v.Time()
		return variableDocument{Literal: t.Format(time.RFC3339), LiteralKind: "datetime"}
	case types.KindNull:
		return variableDocument{LiteralKind: "null"}
	default:
		return variableDocument{LiteralKind: "null"}
	}
}

func documentToLiteral(vd variableDocument) (types.Scalar, error) {
	switch vd.LiteralKind {
	case "number":
		f, ok := toFloat(vd.Literal)
		if !ok {
			return types.Scalar{}, fmt.Errorf("storage: literal_kind number requires a numeric value, got %T", vd.Literal)
		}
		return types.Number(f), nil
	case "integer":
		f, ok := toFloat(vd.Literal)
		if !ok {
			return types.Scalar{}, fmt.Errorf("storage: literal_kind integer requires a numeric value, got %T", vd.Literal)
		}
		return types.Integer(int64(f)), nil
	case "boolean":
		b, ok := vd.Literal.(bool)
		if !ok {
			return types.Scalar{}, fmt.Errorf("storage: literal_kind boolean requires a bool value, got %T", vd.Literal)
		}
		return types.Bool(b), nil
	case "string", "":
		s, ok := vd.Literal.(string)
		if !ok {
			if vd.Literal == nil {
				return types.Null, nil
			}
			return types.Scalar{}, fmt.Errorf("storage: literal_kind string requires a string value, got %T", vd.Literal)
		}
		return types.String(s), nil
	case "datetime":
		s, ok := vd.Literal.(string)
		if !ok {
			return types.Scalar{}, fmt.Errorf("storage: literal_kind datetime requires a string value, got %T", vd.Literal)
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return types.Scalar{}, fmt.Errorf("storage: parsing datetime literal: %w", err)
		}
		return types.DateTime(t), nil
	case "null":
		return types.Null, nil
	default:
		return types.Scalar{}, fmt.Errorf("storage: unknown literal_kind %q", vd.LiteralKind)
	}
}

// toFloat accepts the numeric Go types yaml.v3 decodes untyped YAML scalars
// into (int, int64, uint64, float64), since a literal like `literal: 5` in
// a hand-edited file decodes as int, not float64.
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
