package llm

// SchemaType mirrors the subset of OpenAPI types the model accepts.
type SchemaType string

const (
	TypeObject  SchemaType = "object"
	TypeArray   SchemaType = "array"
	TypeString  SchemaType = "string"
	TypeBoolean SchemaType = "boolean"
	TypeInteger SchemaType = "integer"
	TypeNumber  SchemaType = "number"
)

// Schema is a provider-neutral response schema. Property order is kept in
// Order so prompts and provider payloads render deterministically.
type Schema struct {
	Type        SchemaType
	Description string
	Items       *Schema
	Properties  map[string]*Schema
	Order       []string
	Required    []string
}

func StringArray(desc string) *Schema {
	return &Schema{Type: TypeArray, Description: desc, Items: &Schema{Type: TypeString}}
}

// JSONSchema renders s as a draft-07 JSON Schema document. Objects are
// closed: properties not declared are rejected.
func (s *Schema) JSONSchema() map[string]any {
	doc := s.jsonSchema()
	doc["$schema"] = "http://json-schema.org/draft-07/schema#"
	return doc
}

func (s *Schema) jsonSchema() map[string]any {
	if s == nil {
		return map[string]any{}
	}
	out := map[string]any{"type": string(s.Type)}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if s.Items != nil {
		out["items"] = s.Items.jsonSchema()
	}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for name, p := range s.Properties {
			props[name] = p.jsonSchema()
		}
		out["properties"] = props
		out["additionalProperties"] = false
	}
	if len(s.Required) > 0 {
		out["required"] = append([]string(nil), s.Required...)
	}
	return out
}
