package llm

import "encoding/json"

// FieldKind is the wire type of a result field.
type FieldKind string

const (
	FieldInteger     FieldKind = "integer"
	FieldString      FieldKind = "string"
	FieldStringArray FieldKind = "string_array"
)

// ResultField describes one property of the analysis payload.
type ResultField struct {
	Name        string
	Kind        FieldKind
	Description string
}

const (
	ScoreMin = 0
	ScoreMax = 100
)

// ResultFields is the response contract shared by the provider request and
// the response validator. Order is the order the provider is asked to emit.
var ResultFields = []ResultField{
	{Name: "score", Kind: FieldInteger, Description: "A score from 0 to 100 indicating the match percentage."},
	{Name: "summary", Kind: FieldString, Description: "A concise summary of the analysis (max 3 sentences)."},
	{Name: "matchedKeywords", Kind: FieldStringArray, Description: "List of important hard/soft skills found in both."},
	{Name: "missingKeywords", Kind: FieldStringArray, Description: "List of important hard/soft skills found in Job Description but MISSING in Resume."},
	{Name: "improvements", Kind: FieldStringArray, Description: "Specific, actionable advice to improve the score."},
	{Name: "formattingIssues", Kind: FieldStringArray, Description: "Potential ATS formatting warnings (e.g., use of headers, clarity)."},
}

// FieldNames returns the names of ResultFields in order.
func FieldNames() []string {
	names := make([]string, 0, len(ResultFields))
	for _, f := range ResultFields {
		names = append(names, f.Name)
	}
	return names
}

// ResultJSONSchema renders ResultFields as a draft 2020-12 JSON Schema that
// rejects unknown properties.
func ResultJSONSchema() []byte {
	props := make(map[string]any, len(ResultFields))
	for _, f := range ResultFields {
		var prop map[string]any
		switch f.Kind {
		case FieldInteger:
			prop = map[string]any{"type": "integer", "minimum": ScoreMin, "maximum": ScoreMax}
		case FieldString:
			prop = map[string]any{"type": "string"}
		case FieldStringArray:
			prop = map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
		}
		prop["description"] = f.Description
		props[f.Name] = prop
	}
	doc := map[string]any{
		"$schema":              "https://json-schema.org/draft/2020-12/schema",
		"type":                 "object",
		"properties":           props,
		"required":             FieldNames(),
		"additionalProperties": false,
	}
	out, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return out
}
