package schemaref

import (
	"slices"
	"testing"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		wantBase      []string
		wantReference []string
	}{
		{
			name: "наследование и ссылки",
			body: `{
				"allOf": [{"$ref": "A"}, {"$ref": "B"}],
				"properties": {
					"x": {"items": {"$ref": "C"}},
					"y": {"type": "string"}
				}
			}`,
			wantBase:      []string{"A", "B"},
			wantReference: []string{"C"},
		},
		{
			name:          "порядок свойств документа",
			body:          `{"properties": {"z": {"items": {"$ref": "Z"}}, "a": {"items": {"$ref": "A"}}, "m": {"items": {"$ref": "M"}}}}`,
			wantBase:      []string{},
			wantReference: []string{"Z", "A", "M"},
		},
		{
			name:          "нет allOf и properties",
			body:          `{"type": "object"}`,
			wantBase:      []string{},
			wantReference: []string{},
		},
		{
			name: "элементы без $ref пропускаются",
			body: `{
				"allOf": [{"type": "object"}, {"$ref": "Base"}],
				"properties": {
					"a": {"items": {"type": "string"}},
					"b": {"type": "array"},
					"c": {"items": [{"$ref": "Tuple"}]},
					"d": {"items": {"$ref": "D", "description": "nested {\"$ref\": \"no\"}"}}
				}
			}`,
			wantBase:      []string{"Base"},
			wantReference: []string{"D"},
		},
		{
			name:          "без рекурсии во вложенные свойства",
			body:          `{"properties": {"outer": {"properties": {"inner": {"items": {"$ref": "Deep"}}}}}}`,
			wantBase:      []string{},
			wantReference: []string{},
		},
		{
			name:          "тело не объект",
			body:          `[1, 2]`,
			wantBase:      []string{},
			wantReference: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract([]byte(tt.body))
			if err != nil {
				t.Fatalf("Extract() ошибка: %v", err)
			}
			if !slices.Equal(got.BaseSchema, tt.wantBase) {
				t.Errorf("BaseSchema = %v, ожидалось %v", got.BaseSchema, tt.wantBase)
			}
			if !slices.Equal(got.Reference, tt.wantReference) {
				t.Errorf("Reference = %v, ожидалось %v", got.Reference, tt.wantReference)
			}
			if got.BaseSchema == nil || got.Reference == nil {
				t.Error("списки должны быть пустыми, а не nil")
			}
		})
	}
}

func TestExtract_InvalidJSON(t *testing.T) {
	if _, err := Extract([]byte(`{"allOf": [`)); err == nil {
		t.Error("Extract() не вернул ошибку для некорректного JSON")
	}
}
