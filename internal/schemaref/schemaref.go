// Пакет schemaref — статический анализ тела JSON Schema:
// цепочка наследования (allOf[*].$ref) и ссылки полей-массивов
// (properties.*.items.$ref). Анализ одноуровневый, ссылки не разрешаются.
package schemaref

import (
	"bytes"
	"fmt"
	"io"

	json "github.com/goccy/go-json"
)

// Refs — ссылки, найденные в теле схемы.
type Refs struct {
	// BaseSchema — $ref из allOf в порядке документа.
	BaseSchema []string `json:"baseSchema"`
	// Reference — items.$ref свойств в порядке свойств в документе.
	Reference []string `json:"reference"`
}

type refHolder struct {
	Ref *string `json:"$ref"`
}

// Extract извлекает ссылки из тела схемы.
// Отсутствие allOf или properties даёт пустые списки.
// Ошибка возвращается только для тела, не являющегося корректным JSON.
func Extract(body []byte) (Refs, error) {
	refs := Refs{BaseSchema: []string{}, Reference: []string{}}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		if !json.Valid(body) {
			return refs, fmt.Errorf("тело схемы не JSON: %w", err)
		}
		// Корректный JSON, но не объект: ссылок нет
		return refs, nil
	}

	if raw, ok := top["allOf"]; ok {
		refs.BaseSchema = allOfRefs(raw)
	}
	if raw, ok := top["properties"]; ok {
		itemRefs, err := propertyItemRefs(raw)
		if err != nil {
			return refs, err
		}
		refs.Reference = itemRefs
	}
	return refs, nil
}

// allOfRefs возвращает $ref элементов allOf. Элементы без строкового $ref пропускаются.
func allOfRefs(raw json.RawMessage) []string {
	out := []string{}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return out
	}
	for _, e := range entries {
		if ref, ok := refOf(e); ok {
			out = append(out, ref)
		}
	}
	return out
}

// propertyItemRefs обходит объект properties потоково,
// сохраняя порядок ключей документа.
func propertyItemRefs(raw json.RawMessage) ([]string, error) {
	out := []string{}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return out, fmt.Errorf("разбор properties: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		// properties не объект: ссылок нет
		return out, nil
	}

	for dec.More() {
		if _, err := dec.Token(); err != nil { // имя свойства
			return out, fmt.Errorf("разбор properties: %w", err)
		}
		var prop struct {
			Items json.RawMessage `json:"items"`
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return out, fmt.Errorf("разбор properties: %w", err)
		}
		if err := json.Unmarshal(value, &prop); err != nil || len(prop.Items) == 0 {
			continue
		}
		if ref, ok := refOf(prop.Items); ok {
			out = append(out, ref)
		}
	}
	if _, err := dec.Token(); err != nil && err != io.EOF {
		return out, fmt.Errorf("разбор properties: %w", err)
	}
	return out, nil
}

// refOf возвращает строковый $ref объекта.
func refOf(raw json.RawMessage) (string, bool) {
	var h refHolder
	if err := json.Unmarshal(raw, &h); err != nil || h.Ref == nil {
		return "", false
	}
	return *h.Ref, true
}
