// Пакет registry — HTTP-клиент внешнего реестра JSON-схем.
// Реестр авторитетен для тел схем: клиент читает их по URL и создаёт новые версии.
//
// Учётные данные реестра передаются явным объектом Config при создании клиента,
// заголовок apikey выставляется в каждом запросе.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Служебные поля реестра, которые не показываются вызывающим.
const (
	FieldSchema = "$schema"
	FieldSelf   = "self"
)

// maxBodySize — предельный размер тела ответа реестра.
const maxBodySize = 5 << 20

// Ошибки клиента реестра.
var (
	// ErrNotFound — реестр ответил 404.
	ErrNotFound = errors.New("схема не найдена в реестре")
	// ErrUnavailable — реестр недоступен, превышен таймаут или ответ не 2xx.
	ErrUnavailable = errors.New("реестр схем недоступен")
)

// Config — явная конфигурация клиента реестра.
type Config struct {
	// BaseURL — базовый URL реестра без trailing slash
	// (например, https://i-glu.digiglu.io/api/schemas).
	BaseURL string
	// Vendor — пространство имён схем в реестре.
	Vendor string
	// ReadKey — apikey для чтения.
	ReadKey string
	// WriteKey — apikey для создания схем.
	WriteKey string
	// Timeout — таймаут одного запроса к реестру.
	Timeout time.Duration
}

// Fetcher — чтение тела схемы по URL.
type Fetcher interface {
	Get(ctx context.Context, url string) (json.RawMessage, error)
}

// Client — HTTP-клиент реестра схем.
type Client struct {
	httpClient  *http.Client
	cfg         Config
	maxBodySize int64
	logger      *slog.Logger
}

// New создаёт клиент реестра.
func New(cfg Config, logger *slog.Logger) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		cfg:         cfg,
		maxBodySize: maxBodySize,
		logger:      logger.With(slog.String("component", "registry_client")),
	}
}

// SchemaURL возвращает адрес схемы: {base}/{vendor}/{id}/jsonschema/{version}.
func (c *Client) SchemaURL(id, version string) string {
	return fmt.Sprintf("%s/%s/%s/jsonschema/%s", c.cfg.BaseURL, c.cfg.Vendor, id, version)
}

// Owns сообщает, указывает ли uri внутрь реестра.
func (c *Client) Owns(uri string) bool {
	return strings.HasPrefix(uri, c.cfg.BaseURL+"/")
}

// Get загружает тело схемы по URL с ключом чтения.
func (c *Client) Get(ctx context.Context, url string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("создание запроса к реестру %s: %w", url, err)
	}
	c.authorize(req, c.cfg.ReadKey)
	return c.do(req)
}

// Create сохраняет тело схемы под id/version (POST) с ключом записи.
// Возвращает URL схемы и тело, которое вернул реестр.
func (c *Client) Create(ctx context.Context, id, version string, body json.RawMessage) (string, json.RawMessage, error) {
	url := c.SchemaURL(id, version)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", nil, fmt.Errorf("создание запроса к реестру %s: %w", url, err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req, c.cfg.WriteKey)

	stored, err := c.do(req)
	if err != nil {
		return "", nil, err
	}
	return url, stored, nil
}

func (c *Client) authorize(req *http.Request, key string) {
	if key != "" {
		req.Header.Set("apikey", key)
	}
}

// do выполняет запрос и классифицирует ответ.
func (c *Client) do(req *http.Request) (json.RawMessage, error) {
	url := req.URL.String()

	resp, err := c.httpClient.Do(req) //nolint:gosec // G704: URL реестра из конфигурации
	if err != nil {
		c.logger.Warn("Реестр недоступен",
			slog.String("method", req.Method),
			slog.String("url", url),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %s %s: %v", ErrUnavailable, req.Method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: чтение ответа %s: %v", ErrUnavailable, url, err)
	}
	if int64(len(data)) > c.maxBodySize {
		c.logger.Warn("Ответ реестра превышает допустимый размер",
			slog.String("url", url),
			slog.Int64("limit", c.maxBodySize),
		)
		return nil, fmt.Errorf("%w: ответ %s больше %d байт", ErrUnavailable, url, c.maxBodySize)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("Реестр вернул ошибку",
			slog.String("method", req.Method),
			slog.String("url", url),
			slog.Int("status", resp.StatusCode),
		)
		return nil, fmt.Errorf("%w: %s %s вернул статус %d", ErrUnavailable, req.Method, url, resp.StatusCode)
	}

	if len(data) == 0 {
		return json.RawMessage("{}"), nil
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: %s вернул не JSON", ErrUnavailable, url)
	}
	return json.RawMessage(data), nil
}

// Strip удаляет служебные поля верхнего уровня из тела схемы.
// Вложенные значения сохраняются байт в байт, включая порядок ключей.
// Тело, не являющееся JSON-объектом, возвращается без изменений.
func Strip(body json.RawMessage, fields ...string) json.RawMessage {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil || top == nil {
		return body
	}
	for _, f := range fields {
		delete(top, f)
	}
	out, err := json.Marshal(top)
	if err != nil {
		return body
	}
	return out
}
