// auth.go — JWT middleware аутентификации вызывающего.
// Проверяет подпись токена через JWKS, извлекает sub как идентификатор
// вызывающего и сохраняет исходный заголовок Authorization для
// проброса в identity service.
package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	apierrors "github.com/digiglu/api-api/internal/api/errors"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

const (
	// ContextKeyClaims — извлечённые claims в контексте запроса.
	ContextKeyClaims contextKey = "jwt_claims"
)

// AuthClaims — claims вызывающего, доступные обработчикам.
type AuthClaims struct {
	// Subject — sub из JWT, идентификатор вызывающего (owner записей).
	Subject           string
	PreferredUsername string
	Email             string
	// Authorization — исходный заголовок Authorization.
	Authorization string
}

// tokenClaims — raw claims JWT для парсинга.
type tokenClaims struct {
	jwt.RegisteredClaims
	PreferredUsername string `json:"preferred_username"`
	Email             string `json:"email"`
}

// JWTAuth — middleware JWT-аутентификации через JWKS.
type JWTAuth struct {
	jwks      keyfunc.Keyfunc
	logger    *slog.Logger
	issuer    string
	jwtLeeway time.Duration
}

// NewJWTAuth создаёт JWT middleware с ключами из JWKS endpoint.
// issuer — ожидаемый issuer (пустая строка — не проверяется).
func NewJWTAuth(
	jwksURL string,
	issuer string,
	jwksClientTimeout time.Duration,
	jwksRefreshInterval time.Duration,
	jwtLeeway time.Duration,
	logger *slog.Logger,
) (*JWTAuth, error) {
	httpClient := &http.Client{Timeout: jwksClientTimeout}

	// NoErrorReturnFirstHTTPReq — стартуем даже если IdP ещё недоступен.
	storage, err := jwkset.NewStorageFromHTTP(jwksURL, jwkset.HTTPClientStorageOptions{
		Client:                    httpClient,
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           jwksRefreshInterval,
		RefreshErrorHandler: func(_ context.Context, err error) {
			logger.Error("Ошибка обновления JWKS",
				slog.String("error", err.Error()),
				slog.String("url", jwksURL),
			)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("создание JWKS storage: %w", err)
	}

	k, err := keyfunc.New(keyfunc.Options{
		Storage: storage,
	})
	if err != nil {
		return nil, fmt.Errorf("создание keyfunc: %w", err)
	}

	return NewJWTAuthWithKeyfunc(k, issuer, jwtLeeway, logger), nil
}

// NewJWTAuthWithKeyfunc создаёт JWT middleware с готовым keyfunc.
func NewJWTAuthWithKeyfunc(kf keyfunc.Keyfunc, issuer string, jwtLeeway time.Duration, logger *slog.Logger) *JWTAuth {
	return &JWTAuth{
		jwks:      kf,
		logger:    logger.With(slog.String("component", "jwt_auth")),
		issuer:    issuer,
		jwtLeeway: jwtLeeway,
	}
}

// Middleware возвращает HTTP middleware для JWT-аутентификации.
func (j *JWTAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				apierrors.Unauthorized(w, "Отсутствует заголовок Authorization")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				apierrors.Unauthorized(w, "Неверный формат Authorization: ожидается Bearer <token>")
				return
			}

			tokenString := parts[1]
			if tokenString == "" {
				apierrors.Unauthorized(w, "Пустой Bearer token")
				return
			}

			rawClaims := &tokenClaims{}
			parserOpts := []jwt.ParserOption{
				jwt.WithValidMethods([]string{"RS256"}),
				jwt.WithExpirationRequired(),
				jwt.WithLeeway(j.jwtLeeway),
			}
			if j.issuer != "" {
				parserOpts = append(parserOpts, jwt.WithIssuer(j.issuer))
			}

			token, err := jwt.ParseWithClaims(tokenString, rawClaims, j.jwks.KeyfuncCtx(r.Context()), parserOpts...)
			if err != nil {
				j.logger.Debug("JWT валидация не пройдена",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)
				apierrors.Unauthorized(w, "Невалидный или просроченный токен")
				return
			}
			if !token.Valid {
				apierrors.Unauthorized(w, "Невалидный токен")
				return
			}

			subject, err := rawClaims.GetSubject()
			if err != nil || subject == "" {
				apierrors.Unauthorized(w, "Отсутствует sub в токене")
				return
			}

			claims := &AuthClaims{
				Subject:           subject,
				PreferredUsername: rawClaims.PreferredUsername,
				Email:             rawClaims.Email,
				Authorization:     authHeader,
			}
			ctx := context.WithValue(r.Context(), ContextKeyClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext извлекает AuthClaims из контекста запроса.
// Возвращает nil, если claims не найдены.
func ClaimsFromContext(ctx context.Context) *AuthClaims {
	claims, _ := ctx.Value(ContextKeyClaims).(*AuthClaims)
	return claims
}

// WithClaims возвращает контекст с claims.
func WithClaims(ctx context.Context, claims *AuthClaims) context.Context {
	return context.WithValue(ctx, ContextKeyClaims, claims)
}

// --- ReadinessChecker для JWKS ---

// JWKSReadinessChecker — проверка доступности JWKS endpoint.
type JWKSReadinessChecker struct {
	jwksURL string
	client  *http.Client
}

// NewJWKSReadinessChecker создаёт checker доступности JWKS.
func NewJWKSReadinessChecker(jwksURL string, timeout time.Duration) *JWKSReadinessChecker {
	return &JWKSReadinessChecker{
		jwksURL: jwksURL,
		client:  &http.Client{Timeout: timeout},
	}
}

const statusFail = "fail"

// CheckReady проверяет доступность JWKS endpoint.
func (k *JWKSReadinessChecker) CheckReady() (status, message string) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, k.jwksURL, http.NoBody)
	if err != nil {
		return statusFail, "ошибка создания запроса: " + err.Error()
	}
	resp, err := k.client.Do(req) //nolint:gosec // G704: URL из конфигурации
	if err != nil {
		return statusFail, fmt.Sprintf("JWKS недоступен: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusFail, fmt.Sprintf("JWKS вернул статус %d", resp.StatusCode)
	}

	var jwksResp struct {
		Keys []json.RawMessage `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&jwksResp); err != nil {
		return "degraded", fmt.Sprintf("JWKS: невалидный JSON: %v", err)
	}
	if len(jwksResp.Keys) == 0 {
		return "degraded", "JWKS: нет ключей"
	}

	return "ok", fmt.Sprintf("JWKS доступен, ключей: %d", len(jwksResp.Keys))
}
