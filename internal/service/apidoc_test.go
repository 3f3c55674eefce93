package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const swagger2Doc = `{
	"swagger": "2.0",
	"info": {"title": "Orders", "version": "1.0"},
	"host": "orders.example.com",
	"basePath": "/v1",
	"paths": {
		"/orders": {
			"get": {"tags": ["orders"], "responses": {"200": {"description": "ok"}}},
			"post": {"tags": ["orders", "write"], "responses": {"201": {"description": "created"}}}
		},
		"/health": {
			"head": {"tags": ["ops"], "responses": {"200": {"description": "ok"}}}
		}
	}
}`

const openapi3Doc = `openapi: 3.0.3
info:
  title: Catalog
  version: "2.0"
servers:
  - url: https://catalog.example.com/api
paths:
  /items/{id}:
    get:
      tags: [items]
      parameters:
        - name: id
          in: path
          required: true
          schema: {type: string}
      responses:
        "200": {description: ok}
    delete:
      tags: [items]
      responses:
        "204": {description: deleted}
`

func newAPIDocServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v2.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(swagger2Doc))
	})
	mux.HandleFunc("/v3.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write([]byte(openapi3Doc))
	})
	mux.HandleFunc("/broken.json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"openapi": `))
	})
	mux.HandleFunc("/down", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestAPIDocService_Swagger2(t *testing.T) {
	srv := newAPIDocServer(t)
	svc := NewAPIDocService(5*time.Second, testLogger())

	summary, err := svc.Describe(context.Background(), srv.URL+"/v2.json")
	if err != nil {
		t.Fatalf("Describe() ошибка: %v", err)
	}

	if summary.Info == nil || summary.Info.Title != "Orders" {
		t.Errorf("info = %+v", summary.Info)
	}
	if summary.Host != "orders.example.com" || summary.BasePath != "/v1" {
		t.Errorf("host/basePath = %q/%q", summary.Host, summary.BasePath)
	}
	// Пути и методы в порядке документа
	if len(summary.Paths) != 2 || summary.Paths[0].Name != "/orders" || summary.Paths[1].Name != "/health" {
		t.Fatalf("paths = %+v", summary.Paths)
	}
	if len(summary.Paths[0].Verbs) != 2 || summary.Paths[0].Verbs[0].Name != "get" || summary.Paths[0].Verbs[1].Name != "post" {
		t.Errorf("verbs /orders = %+v", summary.Paths[0].Verbs)
	}
	// HEAD не попадает в verbs пути, но есть в общем списке
	if len(summary.Paths[1].Verbs) != 0 {
		t.Errorf("verbs /health = %+v, ожидался пустой список", summary.Paths[1].Verbs)
	}
	if len(summary.Verbs) != 3 || summary.Verbs[2].Name != "head" {
		t.Errorf("verbs = %+v, ожидалось 3 с head последним", summary.Verbs)
	}

	wantTags := []string{"orders", "write", "ops"}
	if len(summary.Tags) != len(wantTags) {
		t.Fatalf("tags = %v, ожидалось %v", summary.Tags, wantTags)
	}
	for i, tag := range wantTags {
		if summary.Tags[i] != tag {
			t.Errorf("tags[%d] = %q, ожидалось %q", i, summary.Tags[i], tag)
		}
	}
}

func TestAPIDocService_OpenAPI3YAML(t *testing.T) {
	srv := newAPIDocServer(t)
	svc := NewAPIDocService(5*time.Second, testLogger())

	summary, err := svc.Describe(context.Background(), srv.URL+"/v3.yaml")
	if err != nil {
		t.Fatalf("Describe() ошибка: %v", err)
	}
	if summary.Host != "catalog.example.com" || summary.BasePath != "/api" {
		t.Errorf("host/basePath = %q/%q", summary.Host, summary.BasePath)
	}
	if len(summary.Paths) != 1 || len(summary.Paths[0].Verbs) != 2 {
		t.Fatalf("paths = %+v", summary.Paths)
	}
	if summary.Paths[0].Verbs[0].Name != "get" || summary.Paths[0].Verbs[1].Name != "delete" {
		t.Errorf("verbs = %+v", summary.Paths[0].Verbs)
	}
	if len(summary.Tags) != 1 || summary.Tags[0] != "items" {
		t.Errorf("tags = %v", summary.Tags)
	}
	if summary.Spec == nil {
		t.Error("spec должен содержать исходный документ")
	}
}

func TestDocumentOrder(t *testing.T) {
	jsonDoc := []byte(`{"paths":{"/z":{"put":{},"get":{}},"/a":{"delete":{}}}}`)
	yamlDoc := []byte("paths:\n  /z:\n    put: {}\n    get: {}\n  /a:\n    delete: {}\n")

	for name, data := range map[string][]byte{"json": jsonDoc, "yaml": yamlDoc} {
		t.Run(name, func(t *testing.T) {
			order := documentOrder(data)
			if len(order.paths) != 2 || order.paths[0] != "/z" || order.paths[1] != "/a" {
				t.Errorf("paths = %v, ожидалось [/z /a]", order.paths)
			}
			if m := order.methods["/z"]; len(m) != 2 || m[0] != "PUT" || m[1] != "GET" {
				t.Errorf("methods /z = %v, ожидалось [PUT GET]", m)
			}
		})
	}
}

func TestAPIDocService_Errors(t *testing.T) {
	srv := newAPIDocServer(t)
	svc := NewAPIDocService(5*time.Second, testLogger())

	tests := []struct {
		name string
		uri  string
		want error
	}{
		{"не URL", "not a url", ErrValidation},
		{"ftp", "ftp://example.com/spec.json", ErrValidation},
		{"404", srv.URL + "/missing", ErrNotFound},
		{"502", srv.URL + "/down", ErrUpstreamUnavailable},
		{"битый документ", srv.URL + "/broken.json", ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Describe(context.Background(), tt.uri)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, ожидалась %v", err, tt.want)
			}
		})
	}
}
