// Пакет pagination — постраничная нарезка уже отфильтрованной выборки
// и навигационные ссылки first/previous/next/last.
//
// Нарезка выполняется в памяти после полной выборки из хранилища:
// totalRecords — количество всех видимых записей до нарезки.
package pagination

import (
	"errors"
	"math"
	"strconv"
)

// Фиксированные размеры страниц.
const (
	// DefaultPageSize — эксперименты и коллекции.
	DefaultPageSize = 15
	// SchemaPageSize — листинг метаданных схем.
	SchemaPageSize = 1000
)

// ErrInvalidPage — номер страницы или размер страницы меньше 1.
var ErrInvalidPage = errors.New("номер страницы должен быть >= 1")

// State — вычисленное состояние пагинации (не хранится).
type State struct {
	// Page — номер страницы, начиная с 1. Сверху не ограничен.
	Page         int
	PageSize     int
	FirstIndex   int
	LastIndex    int
	TotalRecords int
	TotalPages   int
}

// New вычисляет состояние пагинации.
// Страница за пределами TotalPages допустима и даёт пустой срез.
// Для страниц, смещение которых не помещается в int, индексы насыщаются до math.MaxInt.
func New(totalRecords, page, pageSize int) (State, error) {
	if page < 1 || pageSize < 1 || totalRecords < 0 {
		return State{}, ErrInvalidPage
	}
	first, last := math.MaxInt, math.MaxInt
	if page-1 <= (math.MaxInt-pageSize)/pageSize {
		first = (page - 1) * pageSize
		last = first + pageSize
	}
	totalPages := totalRecords / pageSize
	if totalRecords%pageSize != 0 {
		totalPages++
	}
	return State{
		Page:         page,
		PageSize:     pageSize,
		FirstIndex:   first,
		LastIndex:    last,
		TotalRecords: totalRecords,
		TotalPages:   totalPages,
	}, nil
}

// HasPrevious — есть ли предыдущая страница.
func (s State) HasPrevious() bool {
	return s.Page > 1
}

// HasNext — есть ли записи после текущей страницы (TotalRecords > Page*PageSize).
// Сравнение через деление, чтобы не переполнить int.
func (s State) HasNext() bool {
	if s.TotalRecords == 0 || s.PageSize < 1 {
		return false
	}
	return s.Page <= (s.TotalRecords-1)/s.PageSize
}

// Slice возвращает элементы текущей страницы.
// Выход за границы даёт пустой (не nil) срез.
func Slice[T any](items []T, s State) []T {
	if s.FirstIndex < 0 || s.FirstIndex >= len(items) {
		return []T{}
	}
	last := s.LastIndex
	if last > len(items) {
		last = len(items)
	}
	return items[s.FirstIndex:last]
}

// Paginate вычисляет состояние по всей выборке и возвращает срез страницы.
func Paginate[T any](items []T, page, pageSize int) (State, []T, error) {
	s, err := New(len(items), page, pageSize)
	if err != nil {
		return State{}, nil, err
	}
	return s, Slice(items, s), nil
}

// Links — навигационные ссылки страницы.
// Previous и Next пустые, если соответствующей страницы нет.
type Links struct {
	First    string
	Previous string
	Next     string
	Last     string
}

// Links строит навигационные ссылки относительно baseURL (URL коллекции без query).
// first и last присутствуют всегда, last указывает на TotalPages.
func (s State) Links(baseURL string) Links {
	l := Links{
		First: PageURL(baseURL, 1),
		Last:  PageURL(baseURL, s.TotalPages),
	}
	if s.HasPrevious() {
		l.Previous = PageURL(baseURL, s.Page-1)
	}
	if s.HasNext() {
		l.Next = PageURL(baseURL, s.Page+1)
	}
	return l
}

// PageURL возвращает ссылку на страницу page коллекции baseURL.
func PageURL(baseURL string, page int) string {
	return baseURL + "?page=" + strconv.Itoa(page)
}
