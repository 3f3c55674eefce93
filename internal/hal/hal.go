// Пакет hal — построение HAL-документов (Hypertext Application Language)
// из записей хранилища и страниц коллекций.
// Функции пакета чистые: не выполняют внешних вызовов и не меняют входные документы.
package hal

import (
	"net/http"
	"strings"

	"github.com/digiglu/api-api/internal/domain/model"
	"github.com/digiglu/api-api/internal/pagination"
)

// Зарезервированные поля HAL-документа.
const (
	FieldLinks    = "_links"
	FieldActions  = "_actions"
	FieldEmbedded = "_embedded"
)

// Link — ссылка HAL.
type Link struct {
	Href string `json:"href"`
}

// RecordLinks — _links отдельной записи.
type RecordLinks struct {
	Self Link `json:"self"`
}

// Action — элемент _actions. Точка расширения, сейчас всегда пустой список.
type Action struct{}

// CollectionLinks — _links страницы коллекции.
// Item идёт в том же порядке, что и _embedded.item.
type CollectionLinks struct {
	Self     Link   `json:"self"`
	Item     []Link `json:"item"`
	First    *Link  `json:"first,omitempty"`
	Previous *Link  `json:"previous,omitempty"`
	Next     *Link  `json:"next,omitempty"`
	Last     *Link  `json:"last,omitempty"`
}

// Embedded — вложенные записи страницы.
type Embedded struct {
	Item []model.Document `json:"item"`
}

// Collection — HAL-документ страницы коллекции.
type Collection struct {
	Links        CollectionLinks `json:"_links"`
	Embedded     Embedded        `json:"_embedded"`
	Page         int             `json:"page"`
	TotalRecords int             `json:"totalrecords"`
	PageSize     int             `json:"pagesize"`
	TotalPages   int             `json:"totalpages"`
}

// SelfURL возвращает канонический URL записи в коллекции baseURL.
func SelfURL(baseURL, id string) string {
	return baseURL + "/" + id
}

// Record превращает запись хранилища в HAL-документ:
// удаляет служебный _id, добавляет _links.self и пустой _actions.
// Исходный документ не изменяется.
func Record(doc model.Document, baseURL string) model.Document {
	out := doc.Clone()
	delete(out, model.FieldInternalID)
	out[FieldLinks] = RecordLinks{Self: Link{Href: SelfURL(baseURL, doc.ID())}}
	out[FieldActions] = []Action{}
	return out
}

// NewCollection строит HAL-документ страницы коллекции.
// items — уже нарезанные записи страницы, selfURL — URL запроса,
// baseURL — URL коллекции без query.
func NewCollection(items []model.Document, s pagination.State, selfURL, baseURL string) *Collection {
	embedded := make([]model.Document, 0, len(items))
	itemLinks := make([]Link, 0, len(items))
	for _, doc := range items {
		rec := Record(doc, baseURL)
		embedded = append(embedded, rec)
		itemLinks = append(itemLinks, Link{Href: SelfURL(baseURL, doc.ID())})
	}

	nav := s.Links(baseURL)
	links := CollectionLinks{
		Self:  Link{Href: selfURL},
		Item:  itemLinks,
		First: &Link{Href: nav.First},
		Last:  &Link{Href: nav.Last},
	}
	if nav.Previous != "" {
		links.Previous = &Link{Href: nav.Previous}
	}
	if nav.Next != "" {
		links.Next = &Link{Href: nav.Next}
	}

	return &Collection{
		Links:        links,
		Embedded:     Embedded{Item: embedded},
		Page:         s.Page,
		TotalRecords: s.TotalRecords,
		PageSize:     s.PageSize,
		TotalPages:   s.TotalPages,
	}
}

// BaseURL возвращает URL запроса без query string.
func BaseURL(r *http.Request) string {
	return strings.TrimRight(r.URL.Path, "/")
}

// RequestURL возвращает URL запроса вместе с query string (self страницы коллекции).
func RequestURL(r *http.Request) string {
	return r.URL.RequestURI()
}

// ParentURL возвращает URL коллекции для запроса к отдельной записи:
// /experiments/{id} → /experiments.
func ParentURL(r *http.Request, id string) string {
	return strings.TrimSuffix(BaseURL(r), "/"+id)
}
