// apidoc.go — сводка по внешнему OpenAPI/Swagger-документу:
// info, host, basePath, пути с HTTP-методами и теги операций.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	gojson "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// maxAPIDocSize — ограничение размера загружаемого документа.
const maxAPIDocSize = 10 << 20

// Методы, попадающие в verbs отдельного пути.
var pathVerbs = map[string]bool{"get": true, "post": true, "patch": true, "put": true, "delete": true}

// APIVerb — операция документа.
type APIVerb struct {
	Name    string              `json:"name"`
	Path    string              `json:"path"`
	Details *openapi3.Operation `json:"details"`
}

// APIPath — путь документа с основными методами.
type APIPath struct {
	Name  string    `json:"name"`
	Verbs []APIVerb `json:"verbs"`
}

// APISummary — сводка OpenAPI-документа.
type APISummary struct {
	Info     *openapi3.Info `json:"info,omitempty"`
	Host     string         `json:"host,omitempty"`
	BasePath string         `json:"basePath,omitempty"`
	Paths    []APIPath      `json:"paths"`
	// Verbs — все операции всех путей.
	Verbs []APIVerb `json:"verbs"`
	// Tags — уникальные теги операций в порядке первого появления.
	Tags []string `json:"tags"`
	// Spec — исходный документ.
	Spec any `json:"spec"`
}

// APIDocService загружает и разбирает OpenAPI-документы.
type APIDocService struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewAPIDocService создаёт сервис. timeout — таймаут загрузки документа.
func NewAPIDocService(timeout time.Duration, logger *slog.Logger) *APIDocService {
	return &APIDocService{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(slog.String("component", "apidoc_service")),
	}
}

// Describe загружает документ по uri и строит сводку.
// Поддерживаются OpenAPI 3.x (JSON/YAML) и Swagger 2.0 (JSON).
func (s *APIDocService) Describe(ctx context.Context, uri string) (*APISummary, error) {
	u, err := url.Parse(uri)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: uri должен быть абсолютным http(s) URL", ErrValidation)
	}

	data, err := s.download(ctx, uri)
	if err != nil {
		return nil, err
	}

	var probe struct {
		Swagger string `json:"swagger"`
	}
	if json.Unmarshal(data, &probe) == nil && probe.Swagger != "" {
		return s.describeV2(ctx, data)
	}
	return s.describeV3(ctx, data)
}

func (s *APIDocService) download(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	req.Header.Set("Accept", "application/json, application/yaml")

	resp, err := s.httpClient.Do(req) //nolint:gosec // G704: адрес документа задаёт клиент API
	if err != nil {
		s.logger.Warn("OpenAPI-документ недоступен",
			slog.String("uri", uri),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: загрузка %s: %v", ErrUpstreamUnavailable, uri, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s вернул статус %d", ErrUpstreamUnavailable, uri, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAPIDocSize))
	if err != nil {
		return nil, fmt.Errorf("%w: чтение %s: %v", ErrUpstreamUnavailable, uri, err)
	}
	return data, nil
}

func (s *APIDocService) describeV2(ctx context.Context, data []byte) (*APISummary, error) {
	var v2 openapi2.T
	if err := json.Unmarshal(data, &v2); err != nil {
		return nil, fmt.Errorf("%w: некорректный Swagger 2.0: %v", ErrValidation, err)
	}
	doc, err := openapi2conv.ToV3(&v2)
	if err != nil {
		return nil, fmt.Errorf("%w: конвертация Swagger 2.0: %v", ErrValidation, err)
	}

	summary := summarize(ctx, doc, documentOrder(data))
	summary.Host = v2.Host
	summary.BasePath = v2.BasePath
	summary.Spec = json.RawMessage(data)
	return summary, nil
}

func (s *APIDocService) describeV3(ctx context.Context, data []byte) (*APISummary, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("%w: некорректный OpenAPI-документ: %v", ErrValidation, err)
	}
	if doc.OpenAPI == "" {
		return nil, fmt.Errorf("%w: документ не является OpenAPI", ErrValidation)
	}

	summary := summarize(ctx, doc, documentOrder(data))
	if len(doc.Servers) > 0 {
		if su, err := url.Parse(doc.Servers[0].URL); err == nil {
			summary.Host = su.Host
			summary.BasePath = su.Path
		}
	}
	if json.Valid(data) {
		summary.Spec = json.RawMessage(data)
	} else {
		summary.Spec = doc
	}
	return summary, nil
}

// pathOrder — порядок путей и методов в исходном документе.
type pathOrder struct {
	paths   []string
	methods map[string][]string
}

// documentOrder читает порядок ключей paths из исходного документа.
// Модель kin-openapi хранит пути и операции в map, поэтому порядок
// берётся потоковым разбором JSON или деревом узлов YAML.
func documentOrder(data []byte) pathOrder {
	if json.Valid(data) {
		return jsonOrder(data)
	}
	return yamlOrder(data)
}

func jsonOrder(data []byte) pathOrder {
	order := pathOrder{methods: map[string][]string{}}
	var root struct {
		Paths gojson.RawMessage `json:"paths"`
	}
	if err := gojson.Unmarshal(data, &root); err != nil || len(root.Paths) == 0 {
		return order
	}
	names, items := objectEntries(root.Paths)
	order.paths = names
	for _, name := range names {
		methods, _ := objectEntries(items[name])
		order.methods[name] = upper(methods)
	}
	return order
}

// objectEntries возвращает ключи JSON-объекта в порядке документа и их значения.
// Для не-объекта возвращает пустой результат.
func objectEntries(raw []byte) ([]string, map[string]gojson.RawMessage) {
	values := map[string]gojson.RawMessage{}
	dec := gojson.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, values
	}
	if d, ok := tok.(gojson.Delim); !ok || d != '{' {
		return nil, values
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return keys, values
		}
		key, _ := tok.(string)
		var value gojson.RawMessage
		if err := dec.Decode(&value); err != nil {
			return keys, values
		}
		keys = append(keys, key)
		values[key] = value
	}
	return keys, values
}

func yamlOrder(data []byte) pathOrder {
	order := pathOrder{methods: map[string][]string{}}
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil || len(root.Content) == 0 {
		return order
	}
	paths := mappingValue(root.Content[0], "paths")
	if paths == nil {
		return order
	}
	for i := 0; i+1 < len(paths.Content); i += 2 {
		name := paths.Content[i].Value
		order.paths = append(order.paths, name)
		item := paths.Content[i+1]
		if item.Kind != yaml.MappingNode {
			continue
		}
		var methods []string
		for j := 0; j+1 < len(item.Content); j += 2 {
			methods = append(methods, item.Content[j].Value)
		}
		order.methods[name] = upper(methods)
	}
	return order
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			if v := node.Content[i+1]; v.Kind == yaml.MappingNode {
				return v
			}
			return nil
		}
	}
	return nil
}

// upper приводит методы к виду ключей openapi3.PathItem.Operations().
func upper(methods []string) []string {
	out := make([]string, len(methods))
	for i, m := range methods {
		out[i] = strings.ToUpper(m)
	}
	return out
}

// ordered возвращает ключи в порядке preferred, затем оставшиеся по алфавиту.
func ordered[V any](items map[string]V, preferred []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, k := range preferred {
		if _, ok := items[k]; ok && !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	rest := make([]string, 0, len(items)-len(out))
	for k := range items {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// summarize строит пути, операции и теги в порядке исходного документа.
func summarize(_ context.Context, doc *openapi3.T, order pathOrder) *APISummary {
	summary := &APISummary{
		Info:  doc.Info,
		Paths: []APIPath{},
		Verbs: []APIVerb{},
		Tags:  []string{},
	}
	if doc.Paths == nil {
		return summary
	}

	items := doc.Paths.Map()
	names := ordered(items, order.paths)

	seenTags := map[string]bool{}
	for _, name := range names {
		ops := items[name].Operations()
		methods := ordered(ops, order.methods[name])

		path := APIPath{Name: name, Verbs: []APIVerb{}}
		for _, m := range methods {
			op := ops[m]
			verb := APIVerb{Name: strings.ToLower(m), Path: name, Details: op}
			summary.Verbs = append(summary.Verbs, verb)
			if pathVerbs[verb.Name] {
				path.Verbs = append(path.Verbs, verb)
			}
			for _, tag := range op.Tags {
				if !seenTags[tag] {
					seenTags[tag] = true
					summary.Tags = append(summary.Tags, tag)
				}
			}
		}
		summary.Paths = append(summary.Paths, path)
	}
	return summary
}
