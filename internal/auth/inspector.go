package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// TokenInspector читает срок действия bearer-токена без обращения к backend.
//
// Токен backend может быть непрозрачным: тогда срок неизвестен и Expired
// возвращает false. Если задан JWKS backend, подпись проверяется, и токен
// с неверной подписью также считается недействительным.
type TokenInspector struct {
	jwks   keyfunc.Keyfunc
	leeway time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewTokenInspector создаёт инспектор. Пустой jwksURL — без проверки подписи.
func NewTokenInspector(jwksURL string, refreshInterval, leeway time.Duration, logger *slog.Logger) (*TokenInspector, error) {
	ti := &TokenInspector{
		leeway: leeway,
		now:    time.Now,
		logger: logger.With(slog.String("component", "token_inspector")),
	}
	if jwksURL == "" {
		return ti, nil
	}

	// NoErrorReturnFirstHTTPReq — стартуем даже если backend ещё недоступен.
	storage, err := jwkset.NewStorageFromHTTP(jwksURL, jwkset.HTTPClientStorageOptions{
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           refreshInterval,
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
	ti.jwks = k
	return ti, nil
}

// NewTokenInspectorWithKeyfunc создаёт инспектор с предоставленной keyfunc.
// kf == nil — без проверки подписи.
func NewTokenInspectorWithKeyfunc(kf keyfunc.Keyfunc, leeway time.Duration, logger *slog.Logger) *TokenInspector {
	return &TokenInspector{
		jwks:   kf,
		leeway: leeway,
		now:    time.Now,
		logger: logger.With(slog.String("component", "token_inspector")),
	}
}

// Expired возвращает true, только если токен доказуемо недействителен:
// истёк exp или (при заданном JWKS) неверна подпись.
func (ti *TokenInspector) Expired(token string) bool {
	if !looksLikeJWT(token) {
		return false
	}

	if ti.jwks == nil {
		exp, ok := ti.ExpiresAt(token)
		return ok && !ti.now().Before(exp.Add(ti.leeway))
	}

	_, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, ti.jwks.Keyfunc,
		jwt.WithLeeway(ti.leeway),
		jwt.WithTimeFunc(ti.now),
	)
	switch {
	case err == nil:
		return false
	case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenSignatureInvalid):
		ti.logger.Debug("Токен отклонён локально", slog.String("error", err.Error()))
		return true
	default:
		// Ключ ещё не загружен или алгоритм не поддерживается — решает backend
		return false
	}
}

// ExpiresAt возвращает exp токена без проверки подписи.
func (ti *TokenInspector) ExpiresAt(token string) (time.Time, bool) {
	if !looksLikeJWT(token) {
		return time.Time{}, false
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// looksLikeJWT — три сегмента через точку.
func looksLikeJWT(token string) bool {
	return strings.Count(token, ".") == 2
}
