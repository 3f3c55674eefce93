// Пакет model — доменные модели api-api.
// Записи хранятся как JSON-документы (эксперименты, коллекции, метаданные схем).
package model

// Имена полей, общие для всех записей.
const (
	// FieldInternalID — служебный идентификатор хранилища. Наружу не отдаётся.
	FieldInternalID = "_id"
	FieldID         = "id"
	FieldOwner      = "owner"
	FieldPrivate    = "private"
	FieldTeamRef    = "teamRef"
	FieldCreated    = "created"
	FieldModified   = "modified"
)

// Document — запись в том виде, в котором её вернуло хранилище,
// включая служебный _id.
type Document map[string]any

// ID возвращает внешний идентификатор записи (пустая строка, если не задан).
func (d Document) ID() string {
	s, _ := d[FieldID].(string)
	return s
}

// String возвращает строковое поле или пустую строку.
func (d Document) String(field string) string {
	s, _ := d[field].(string)
	return s
}

// Clone возвращает поверхностную копию документа.
// Вложенные значения не копируются: HAL-преобразование меняет только верхний уровень.
func (d Document) Clone() Document {
	c := make(Document, len(d))
	for k, v := range d {
		c[k] = v
	}
	return c
}
