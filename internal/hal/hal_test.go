package hal

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/digiglu/api-api/internal/domain/model"
	"github.com/digiglu/api-api/internal/pagination"
)

func TestRecord_StripsInternalID(t *testing.T) {
	doc := model.Document{"_id": int64(17), "id": "exp-1", "name": "checkout"}

	got := Record(doc, "/experiments")

	if _, ok := got["_id"]; ok {
		t.Error("_id не удалён из HAL-документа")
	}
	if _, ok := doc["_id"]; !ok {
		t.Error("Record() изменил исходный документ")
	}

	links, ok := got[FieldLinks].(RecordLinks)
	if !ok {
		t.Fatalf("_links имеет тип %T", got[FieldLinks])
	}
	if links.Self.Href != "/experiments/exp-1" {
		t.Errorf("self = %q, ожидалось /experiments/exp-1", links.Self.Href)
	}

	actions, ok := got[FieldActions].([]Action)
	if !ok || len(actions) != 0 {
		t.Errorf("_actions = %#v, ожидался пустой список", got[FieldActions])
	}

	// В сериализованном виде _id не встречается ни под каким ключом
	data, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	if strings.Contains(string(data), `"_id"`) {
		t.Errorf("сериализованный документ содержит _id: %s", data)
	}
	if !strings.Contains(string(data), `"_actions":[]`) {
		t.Errorf("_actions сериализован не как пустой массив: %s", data)
	}
}

func TestNewCollection_ItemLinksOrder(t *testing.T) {
	docs := []model.Document{
		{"_id": 3, "id": "c"},
		{"_id": 1, "id": "a"},
		{"_id": 2, "id": "b"},
	}
	s, err := pagination.New(len(docs), 1, pagination.DefaultPageSize)
	if err != nil {
		t.Fatalf("pagination.New: %v", err)
	}

	c := NewCollection(docs, s, "/collections?refId=x", "/collections")

	if len(c.Links.Item) != len(c.Embedded.Item) {
		t.Fatalf("item links = %d, embedded = %d", len(c.Links.Item), len(c.Embedded.Item))
	}
	for i, item := range c.Embedded.Item {
		want := "/collections/" + item.ID()
		if c.Links.Item[i].Href != want {
			t.Errorf("item[%d] = %q, ожидалось %q", i, c.Links.Item[i].Href, want)
		}
		if _, ok := item["_id"]; ok {
			t.Errorf("embedded item[%d] содержит _id", i)
		}
	}
	if c.Links.Self.Href != "/collections?refId=x" {
		t.Errorf("self = %q", c.Links.Self.Href)
	}
	if c.Links.Previous != nil || c.Links.Next != nil {
		t.Errorf("previous/next на единственной странице: %+v", c.Links)
	}
	if c.Links.First == nil || c.Links.Last == nil {
		t.Error("first/last обязательны")
	}
}

func TestNewCollection_PageMetadata(t *testing.T) {
	all := make([]model.Document, 22)
	for i := range all {
		all[i] = model.Document{"id": string(rune('a' + i))}
	}
	s, page, err := pagination.Paginate(all, 2, pagination.DefaultPageSize)
	if err != nil {
		t.Fatalf("Paginate: %v", err)
	}

	c := NewCollection(page, s, "/experiments?page=2", "/experiments")

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}

	if out["page"].(float64) != 2 || out["totalrecords"].(float64) != 22 ||
		out["pagesize"].(float64) != 15 || out["totalpages"].(float64) != 2 {
		t.Errorf("метаданные страницы: %v", out)
	}
	links := out["_links"].(map[string]any)
	if _, ok := links["next"]; ok {
		t.Error("next присутствует на последней странице")
	}
	prev := links["previous"].(map[string]any)
	if prev["href"] != "/experiments?page=1" {
		t.Errorf("previous = %v", prev["href"])
	}
	if items := out["_embedded"].(map[string]any)["item"].([]any); len(items) != 7 {
		t.Errorf("embedded = %d записей, ожидалось 7", len(items))
	}
}

func TestNewCollection_EmptyPageKeepsArrays(t *testing.T) {
	s, err := pagination.New(3, 5, pagination.DefaultPageSize)
	if err != nil {
		t.Fatalf("pagination.New: %v", err)
	}

	data, err := json.Marshal(NewCollection(nil, s, "/x?page=5", "/x"))
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	if !strings.Contains(string(data), `"item":[]`) {
		t.Errorf("пустая страница должна содержать пустые item: %s", data)
	}
	if !strings.Contains(string(data), `"first"`) || !strings.Contains(string(data), `"last"`) {
		t.Errorf("first/last отсутствуют: %s", data)
	}
}

func TestURLs(t *testing.T) {
	r := httptest.NewRequest("GET", "/experiments/exp-1?fields=name", nil)

	if got := BaseURL(r); got != "/experiments/exp-1" {
		t.Errorf("BaseURL = %q", got)
	}
	if got := RequestURL(r); got != "/experiments/exp-1?fields=name" {
		t.Errorf("RequestURL = %q", got)
	}
	if got := ParentURL(r, "exp-1"); got != "/experiments" {
		t.Errorf("ParentURL = %q", got)
	}
}
