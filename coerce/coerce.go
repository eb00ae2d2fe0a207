// Package coerce implements the schema-driven conversion between the
// values callers pass to a Reference write and the values the store
// actually persists, and back. A per-attribute-type coercion table driven
// by model.Attribute maps each attribute's declared type onto its wire
// representation and applies the root-document id mapping every write
// goes through.
package coerce

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"eve.evalgo.org/docstore"
	"eve.evalgo.org/docstore/model"
	"eve.evalgo.org/docstore/store"
)

// CollectionResolver looks up the docstore.CollectionRef a model/plugin
// pair is bound to. The collection package supplies the concrete
// implementation (backed by the model registry) so this leaf package
// never has to import collection, avoiding the cycle that would create.
type CollectionResolver func(modelName, plugin string) (docstore.CollectionRef, error)

// Options configures one coercion pass.
type Options struct {
	EditMode                   docstore.EditMode
	Timestamp                  time.Time
	Strict                     bool
	IgnoreMismatchedReferences bool
	ResolveCollection          CollectionResolver
}

// CoerceDocument converts data into its store representation according
// to m's schema, applying the root-object primaryKey rule, timestamps,
// and per-attribute coercion. fieldPath is empty for the document root
// and non-empty when coercing a nested component; the primaryKey/timestamp
// rules only apply at the root.
func CoerceDocument(ctx *docstore.Context, m *model.Model, docID string, fieldPath string, data map[string]interface{}, opts Options) (map[string]interface{}, error) {
	if m.Options.IgnoreMismatchedReferences {
		opts.IgnoreMismatchedReferences = true
	}
	out := make(map[string]interface{}, len(data))

	for key, val := range data {
		if op, ok := store.IsFieldOp(val); ok {
			out[key] = op
			continue
		}
		attr, known := m.Attribute(key)
		if !known {
			out[key] = val
			continue
		}
		converted, err := coerceAttribute(ctx, attr, val, opts)
		if err != nil {
			return nil, err
		}
		out[key] = converted
	}

	if fieldPath == "" {
		if docID != "" {
			out[m.PrimaryKey] = docID
		} else {
			delete(out, m.PrimaryKey)
		}
		if m.Options.Timestamps {
			now := opts.Timestamp
			if now.IsZero() {
				now = time.Now()
			}
			out["updatedAt"] = now.Format(time.RFC3339)
			if opts.EditMode == docstore.EditModeCreate {
				out["createdAt"] = now.Format(time.RFC3339)
			}
		}
	}

	if m.Options.Converter.ToStore != nil {
		out = m.Options.Converter.ToStore(out)
	}
	return out, nil
}

func coerceAttribute(ctx *docstore.Context, attr model.Attribute, val interface{}, opts Options) (interface{}, error) {
	switch attr.Kind() {
	case model.KindComponent:
		return coerceComponent(ctx, attr, val, opts)
	case model.KindDynamicZone:
		return coerceDynamicZone(ctx, attr, val, opts)
	case model.KindReference:
		if attr.IsArray {
			return coerceReferenceArray(ctx, attr, val, opts)
		}
		return coerceToReference(ctx, attr, val, opts)
	default:
		return coercePrimitive(attr, val)
	}
}

// coerceReferenceArray coerces each element of a has-many/many-to-many
// reference attribute independently, since a wire value can mix any of
// the shapes ResolveRef accepts.
func coerceReferenceArray(ctx *docstore.Context, attr model.Attribute, val interface{}, opts Options) (interface{}, error) {
	items, ok := val.([]interface{})
	if !ok {
		return nil, &docstore.CoercionError{Attribute: attr.Name, Value: val, Reason: "expected an array of references"}
	}
	out := make([]interface{}, 0, len(items))
	for _, item := range items {
		converted, err := coerceToReference(ctx, attr, item, opts)
		if err != nil {
			return nil, err
		}
		if converted != nil {
			out = append(out, converted)
		}
	}
	return out, nil
}

func coerceComponent(ctx *docstore.Context, attr model.Attribute, val interface{}, opts Options) (interface{}, error) {
	sub, ok := val.(map[string]interface{})
	if !ok {
		return nil, &docstore.CoercionError{Attribute: attr.Name, Value: val, Reason: "expected a component object"}
	}
	cm, err := ctx.Registry.GetModel(attr.Component, "")
	if err != nil {
		return nil, &docstore.CoercionError{Attribute: attr.Name, Value: val, Reason: err.Error()}
	}
	id, _ := sub[cm.PrimaryKey].(string)
	if id == "" && cm.Options.EnsureComponentIDs {
		id = ""
	}
	return CoerceDocument(ctx, cm, id, attr.Name, sub, opts)
}

func coerceDynamicZone(ctx *docstore.Context, attr model.Attribute, val interface{}, opts Options) (interface{}, error) {
	items, ok := val.([]interface{})
	if !ok {
		return nil, &docstore.CoercionError{Attribute: attr.Name, Value: val, Reason: "expected an array"}
	}
	out := make([]interface{}, len(items))
	for i, item := range items {
		sub, ok := item.(map[string]interface{})
		if !ok {
			return nil, &docstore.CoercionError{Attribute: attr.Name, Value: item, Reason: "expected a component object"}
		}
		componentName, _ := sub["__component"].(string)
		if !contains(attr.Components, componentName) {
			return nil, &docstore.CoercionError{Attribute: attr.Name, Value: componentName, Reason: "component not allowed in this dynamic zone"}
		}
		cm, err := ctx.Registry.GetModel(componentName, "")
		if err != nil {
			return nil, &docstore.CoercionError{Attribute: attr.Name, Value: componentName, Reason: err.Error()}
		}
		id, _ := sub[cm.PrimaryKey].(string)
		converted, err := CoerceDocument(ctx, cm, id, attr.Name, sub, opts)
		if err != nil {
			return nil, err
		}
		converted["__component"] = componentName
		out[i] = converted
	}
	return out, nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func coercePrimitive(attr model.Attribute, val interface{}) (interface{}, error) {
	if val == nil {
		return nil, nil
	}
	switch attr.Type {
	case model.TypeInteger, model.TypeBigInteger:
		n, ok := toInt64(val)
		if !ok {
			return nil, coercionErr(attr, val, "expected an integer")
		}
		if attr.Type == model.TypeBigInteger {
			return strconv.FormatInt(n, 10), nil
		}
		return n, nil
	case model.TypeFloat, model.TypeDecimal:
		f, ok := toFloat64(val)
		if !ok {
			return nil, coercionErr(attr, val, "expected a number")
		}
		if attr.Type == model.TypeDecimal {
			return strconv.FormatFloat(f, 'f', -1, 64), nil
		}
		return f, nil
	case model.TypeString, model.TypeText, model.TypeUID:
		s, ok := val.(string)
		if !ok {
			return nil, coercionErr(attr, val, "expected a string")
		}
		return s, nil
	case model.TypeEmail:
		s, ok := val.(string)
		if !ok || !strings.Contains(s, "@") {
			return nil, coercionErr(attr, val, "expected an email address")
		}
		return s, nil
	case model.TypePassword:
		s, ok := val.(string)
		if !ok {
			return nil, coercionErr(attr, val, "expected a string")
		}
		return s, nil
	case model.TypeJSON:
		switch v := val.(type) {
		case string:
			var probe interface{}
			if err := json.Unmarshal([]byte(v), &probe); err != nil {
				return nil, coercionErr(attr, val, "invalid json text: "+err.Error())
			}
			return v, nil
		default:
			b, err := json.Marshal(v)
			if err != nil {
				return nil, coercionErr(attr, val, "value is not json-serializable")
			}
			return string(b), nil
		}
	case model.TypeDate:
		return parseAndFormat(attr, val, "2006-01-02")
	case model.TypeTime:
		return parseAndFormat(attr, val, "15:04:05")
	case model.TypeDateTime, model.TypeTimestamp:
		return parseAndFormat(attr, val, time.RFC3339)
	case model.TypeBoolean:
		switch b := val.(type) {
		case bool:
			return b, nil
		case string:
			parsed, err := strconv.ParseBool(b)
			if err != nil {
				return nil, coercionErr(attr, val, "expected a boolean")
			}
			return parsed, nil
		}
		return nil, coercionErr(attr, val, "expected a boolean")
	case model.TypeEnumeration:
		s, ok := val.(string)
		if !ok || !contains(attr.Enum, s) {
			return nil, coercionErr(attr, val, fmt.Sprintf("expected one of %v", attr.Enum))
		}
		return s, nil
	default:
		return val, nil
	}
}

func parseAndFormat(attr model.Attribute, val interface{}, layout string) (interface{}, error) {
	switch v := val.(type) {
	case string:
		t, err := time.Parse(layout, v)
		if err != nil {
			if t2, err2 := time.Parse(time.RFC3339, v); err2 == nil {
				return t2.Format(layout), nil
			}
			return nil, coercionErr(attr, val, "expected a "+layout+" formatted value")
		}
		return t.Format(layout), nil
	case time.Time:
		return v.Format(layout), nil
	default:
		return nil, coercionErr(attr, val, "expected a date/time string")
	}
}

func coercionErr(attr model.Attribute, val interface{}, reason string) error {
	return &docstore.CoercionError{Attribute: attr.Name, Value: val, Reason: reason}
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
