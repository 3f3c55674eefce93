package model

import "encoding/json"

// SchemaStatus — статус метаданных схемы.
type SchemaStatus string

const (
	SchemaStatusDraft      SchemaStatus = "Draft"
	SchemaStatusPublished  SchemaStatus = "Published"
	SchemaStatusDeprecated SchemaStatus = "Deprecated"
)

// Поля метаданных схемы.
const (
	FieldStatus       = "status"
	FieldURL          = "url"
	FieldExperimentID = "experimentId"
	FieldName         = "name"
	FieldVersion      = "version"
)

// SchemaRecord — метаданные схемы, хранящиеся локально.
// Тело схемы живёт в реестре по адресу URL.
type SchemaRecord struct {
	ID           string       `json:"id"`
	Owner        string       `json:"owner"`
	Private      bool         `json:"private"`
	TeamRef      string       `json:"teamRef,omitempty"`
	ExperimentID string       `json:"experimentId"`
	Name         string       `json:"name"`
	Version      string       `json:"version"`
	Status       SchemaStatus `json:"status"`
	URL          string       `json:"url"`
	// Created, Modified — epoch milliseconds
	Created  int64 `json:"created"`
	Modified int64 `json:"modified"`
}

// Document конвертирует метаданные в документ для хранилища.
func (s *SchemaRecord) Document() Document {
	d := Document{
		FieldID:           s.ID,
		FieldOwner:        s.Owner,
		FieldPrivate:      s.Private,
		FieldExperimentID: s.ExperimentID,
		FieldName:         s.Name,
		FieldVersion:      s.Version,
		FieldStatus:       string(s.Status),
		FieldURL:          s.URL,
		FieldCreated:      s.Created,
		FieldModified:     s.Modified,
	}
	if s.TeamRef != "" {
		d[FieldTeamRef] = s.TeamRef
	}
	return d
}

// SchemaRecordFromDocument восстанавливает метаданные схемы из документа хранилища.
// Неизвестные поля игнорируются.
func SchemaRecordFromDocument(d Document) (*SchemaRecord, error) {
	clean := d.Clone()
	delete(clean, FieldInternalID)

	data, err := json.Marshal(clean)
	if err != nil {
		return nil, err
	}
	var rec SchemaRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// SchemaBody — документ JSON Schema из реестра. Реестр авторитетен,
// api-api только читает и пересылает его.
type SchemaBody = json.RawMessage
