// Пакет identity — HTTP-клиент identity service.
// Возвращает список команд (организаций), в которых состоит вызывающий.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrUnavailable — identity service недоступен или вернул некорректный ответ.
var ErrUnavailable = errors.New("identity service недоступен")

// Client — HTTP-клиент identity service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// New создаёт клиент identity service.
// baseURL — базовый URL (запрос: GET {baseURL}/{callerId}/organisation).
func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger.With(slog.String("component", "identity_client")),
	}
}

// Teams возвращает идентификаторы команд вызывающего.
// authorization — заголовок Authorization исходного запроса, пересылается как есть.
// Любая ошибка (транспорт, таймаут, не-2xx, формат) — ErrUnavailable.
func (c *Client) Teams(ctx context.Context, callerID, authorization string) ([]string, error) {
	reqURL := fmt.Sprintf("%s/%s/organisation", c.baseURL, url.PathEscape(callerID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: создание запроса: %v", ErrUnavailable, err)
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req) //nolint:gosec // G704: URL из конфигурации
	if err != nil {
		c.logger.Warn("Identity service недоступен",
			slog.String("caller", callerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: запрос команд %s: %v", ErrUnavailable, callerID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("Identity service вернул ошибку",
			slog.String("caller", callerID),
			slog.Int("status", resp.StatusCode),
		)
		return nil, fmt.Errorf("%w: статус %d для %s: %s", ErrUnavailable, resp.StatusCode, callerID, string(body))
	}

	var raw []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: декодирование ответа: %v", ErrUnavailable, err)
	}

	teams := make([]string, 0, len(raw))
	for _, item := range raw {
		id, err := teamID(item)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if id != "" {
			teams = append(teams, id)
		}
	}
	return teams, nil
}

// teamID принимает элемент ответа: строку или объект с полем id.
func teamID(item json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(item, &s); err == nil {
		return s, nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(item, &obj); err != nil {
		return "", fmt.Errorf("неизвестный формат команды: %s", string(item))
	}
	return obj.ID, nil
}
