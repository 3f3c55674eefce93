// Пакет filtertest — вычисление предикатов filter в памяти для тестов.
// Семантика совпадает с SQL-трансляцией репозитория: отсутствующее поле
// не удовлетворяет ни одному условию, In сравнивает только строки.
package filtertest

import (
	"github.com/digiglu/api-api/internal/domain/filter"
	"github.com/digiglu/api-api/internal/domain/model"
)

// Matches вычисляет предикат для документа.
func Matches(p filter.Predicate, doc model.Document) bool {
	for _, c := range p.Match {
		if !clauseMatches(c, doc) {
			return false
		}
	}
	if len(p.AnyOf) == 0 {
		return true
	}
	for _, c := range p.AnyOf {
		if clauseMatches(c, doc) {
			return true
		}
	}
	return false
}

func clauseMatches(c filter.Clause, doc model.Document) bool {
	v, ok := doc[c.Field]
	if !ok {
		return false
	}
	switch c.Op {
	case filter.OpEq:
		return v == c.Value
	case filter.OpIn:
		s, isStr := v.(string)
		if !isStr {
			return false
		}
		values, _ := c.Value.([]string)
		for _, candidate := range values {
			if candidate == s {
				return true
			}
		}
	}
	return false
}
