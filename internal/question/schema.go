package question

// ItemsSchema is the JSON Schema of a model response: an array of items. It is
// sent to engines that support guided decoding.
func ItemsSchema() map[string]any {
	nullableString := map[string]any{"type": []string{"string", "null"}}
	nullableInt := map[string]any{"type": []string{"integer", "null"}}
	labels := []string{string(LabelA), string(LabelB), string(LabelC), string(LabelD)}

	item := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"type": map[string]any{
				"type": "string",
				"enum": []string{string(TypeMCQSingle), string(TypeMCQMulti), string(TypeShortAnswer), string(TypeCaseStudy)},
			},
			"stem": map[string]any{"type": "string", "minLength": 1},
			"options": map[string]any{
				"type":                 []string{"object", "null"},
				"propertyNames":        map[string]any{"enum": labels},
				"additionalProperties": map[string]any{"type": "string"},
			},
			"correct_option": map[string]any{
				"anyOf": []any{
					map[string]any{"type": "string", "enum": labels},
					map[string]any{"type": "array", "items": map[string]any{"type": "string", "enum": labels}},
					map[string]any{"type": "null"},
				},
			},
			"explanation": map[string]any{"type": "string"},
			"citation": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"file":        nullableString,
					"page":        nullableInt,
					"quote_start": nullableInt,
					"quote_end":   nullableInt,
					"quote":       nullableString,
				},
			},
			"difficulty": map[string]any{
				"type": "string",
				"enum": []string{string(DifficultyEasy), string(DifficultyMedium), string(DifficultyHard)},
			},
			"topic":    nullableString,
			"subtopic": nullableString,
		},
		"required": []string{"type", "stem", "explanation", "citation", "difficulty"},
	}
	return map[string]any{"type": "array", "items": item}
}
