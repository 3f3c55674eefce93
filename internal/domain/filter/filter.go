// Пакет filter — предикаты выборки для документного хранилища.
// Предикат — конъюнкция Match и дизъюнкция AnyOf.
// Репозиторий транслирует его в SQL.
// Вычисление в памяти для тестов — пакет filtertest.
package filter

import (
	"github.com/digiglu/api-api/internal/domain/model"
)

// Op — оператор сравнения поля.
type Op string

const (
	// OpEq — поле равно значению (с учётом JSON-типа).
	OpEq Op = "eq"
	// OpIn — строковое поле входит в список значений.
	OpIn Op = "in"
)

// Clause — одно условие на поле документа верхнего уровня.
type Clause struct {
	Field string
	Op    Op
	Value any
}

// Eq создаёт условие равенства.
func Eq(field string, value any) Clause {
	return Clause{Field: field, Op: OpEq, Value: value}
}

// In создаёт условие вхождения в список строк.
func In(field string, values []string) Clause {
	return Clause{Field: field, Op: OpIn, Value: values}
}

// Predicate — условие выборки документов.
// Документ подходит, если выполнены все Match и хотя бы одно из AnyOf
// (пустой AnyOf не ограничивает выборку).
type Predicate struct {
	Match []Clause
	AnyOf []Clause
}

// ByID возвращает условие поиска по внешнему идентификатору.
func ByID(id string) Clause {
	return Eq(model.FieldID, id)
}

// And возвращает копию предиката с дополнительными условиями Match.
func (p Predicate) And(clauses ...Clause) Predicate {
	match := make([]Clause, 0, len(p.Match)+len(clauses))
	match = append(match, p.Match...)
	match = append(match, clauses...)
	return Predicate{Match: match, AnyOf: p.AnyOf}
}

// Visibility строит предикат видимости записей для вызывающего:
// запись видна, если принадлежит ему, явно не приватна
// или относится к одной из его команд.
func Visibility(callerID string, teams []string) Predicate {
	anyOf := []Clause{
		Eq(model.FieldOwner, callerID),
		Eq(model.FieldPrivate, false),
	}
	if len(teams) > 0 {
		anyOf = append(anyOf, In(model.FieldTeamRef, teams))
	}
	return Predicate{AnyOf: anyOf}
}
