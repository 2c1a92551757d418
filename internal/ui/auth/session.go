// Пакет auth — cookie-сессии портала.
// Cookie содержит только идентификатор сессии, зашифрованный AES-256-GCM;
// bearer-токен хранится на сервере в tokenstore под ключом portal:<id>.
// Flash-уведомления передаются между запросами в отдельном зашифрованном cookie.
package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Имена cookie портала.
const (
	SessionCookieName = "luckytrip_session"
	FlashCookieName   = "luckytrip_flash"
)

// TokenKeyPrefix — префикс ключа токена сессии в tokenstore.
const TokenKeyPrefix = "portal:"

// flashMaxAge — время жизни flash-cookie в секундах.
const flashMaxAge = 60

// SessionData — данные сессии портала, хранящиеся в зашифрованном cookie.
type SessionData struct {
	// ID — непрозрачный идентификатор сессии (uuid).
	ID string `json:"id"`
	// IssuedAt — время выдачи (Unix timestamp).
	IssuedAt int64 `json:"iat"`
}

// TokenKey возвращает ключ bearer-токена сессии в tokenstore.
func (s *SessionData) TokenKey() string {
	return TokenKeyPrefix + s.ID
}

// Flash — одноразовое уведомление для следующей страницы.
// Key — ключ перевода (пустой для дословных сообщений backend).
type Flash struct {
	Kind string   `json:"kind"`
	Key  string   `json:"key,omitempty"`
	Text string   `json:"text,omitempty"`
	Args []string `json:"args,omitempty"`
}

// Виды flash-уведомлений.
const (
	FlashInfo  = "info"
	FlashError = "error"
)

// SessionManager шифрует/дешифрует cookie сессии через AES-256-GCM.
type SessionManager struct {
	gcm    cipher.AEAD
	secure bool
	maxAge time.Duration
	now    func() time.Time
}

// NewSessionManager создаёт менеджер сессий.
// key — base64 32-байтовый ключ или произвольная строка (хешируется SHA-256).
// Пустой key — случайный ключ (сессии не переживают рестарт).
func NewSessionManager(key string, secure bool, maxAge time.Duration) (*SessionManager, error) {
	var keyBytes []byte

	if key == "" {
		keyBytes = make([]byte, 32)
		if _, err := io.ReadFull(rand.Reader, keyBytes); err != nil {
			return nil, fmt.Errorf("ошибка генерации ключа сессии: %w", err)
		}
	} else {
		var err error
		keyBytes, err = base64.StdEncoding.DecodeString(key)
		if err != nil || len(keyBytes) != 32 {
			keyBytes = sha256Key(key)
		}
	}

	block, err := aes.NewCipher(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания GCM: %w", err)
	}

	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	return &SessionManager{
		gcm:    gcm,
		secure: secure,
		maxAge: maxAge,
		now:    time.Now,
	}, nil
}

// Encrypt шифрует SessionData и возвращает base64-строку.
func (sm *SessionManager) Encrypt(data *SessionData) (string, error) {
	return sm.seal(data)
}

// Decrypt дешифрует base64-строку обратно в SessionData.
// Сессия без ID или с истёкшим сроком считается недействительной.
func (sm *SessionManager) Decrypt(encrypted string) (*SessionData, error) {
	var data SessionData
	if err := sm.open(encrypted, &data); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(data.ID); err != nil {
		return nil, fmt.Errorf("некорректный идентификатор сессии: %w", err)
	}
	if sm.now().After(time.Unix(data.IssuedAt, 0).Add(sm.maxAge)) {
		return nil, errors.New("сессия истекла")
	}
	return &data, nil
}

// NewSession создаёт сессию с новым идентификатором.
func (sm *SessionManager) NewSession() *SessionData {
	return &SessionData{ID: uuid.NewString(), IssuedAt: sm.now().Unix()}
}

// SetSessionCookie устанавливает зашифрованный session cookie в ответ.
func (sm *SessionManager) SetSessionCookie(w http.ResponseWriter, data *SessionData) error {
	encrypted, err := sm.Encrypt(data)
	if err != nil {
		return err
	}
	http.SetCookie(w, sm.cookie(SessionCookieName, encrypted, int(sm.maxAge.Seconds())))
	return nil
}

// GetSessionFromRequest извлекает и дешифрует SessionData из cookie запроса.
// Возвращает nil, nil если cookie отсутствует.
func (sm *SessionManager) GetSessionFromRequest(r *http.Request) (*SessionData, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return nil, nil
		}
		return nil, err
	}
	return sm.Decrypt(cookie.Value)
}

// Ensure возвращает сессию запроса, создавая новую при отсутствии
// или повреждении cookie. fresh=true — сессия создана сейчас.
func (sm *SessionManager) Ensure(w http.ResponseWriter, r *http.Request) (data *SessionData, fresh bool, err error) {
	data, err = sm.GetSessionFromRequest(r)
	if err == nil && data != nil {
		return data, false, nil
	}
	data = sm.NewSession()
	if err := sm.SetSessionCookie(w, data); err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// ClearSessionCookie удаляет session cookie из ответа (logout).
func (sm *SessionManager) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, sm.cookie(SessionCookieName, "", -1))
}

// SetFlash сохраняет уведомление для следующего запроса.
func (sm *SessionManager) SetFlash(w http.ResponseWriter, f Flash) error {
	encrypted, err := sm.seal(f)
	if err != nil {
		return err
	}
	http.SetCookie(w, sm.cookie(FlashCookieName, encrypted, flashMaxAge))
	return nil
}

// PopFlash извлекает уведомление и удаляет flash-cookie. nil — уведомления нет.
func (sm *SessionManager) PopFlash(w http.ResponseWriter, r *http.Request) *Flash {
	cookie, err := r.Cookie(FlashCookieName)
	if err != nil {
		return nil
	}
	http.SetCookie(w, sm.cookie(FlashCookieName, "", -1))

	var f Flash
	if err := sm.open(cookie.Value, &f); err != nil {
		return nil
	}
	return &f
}

func (sm *SessionManager) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// seal сериализует v и шифрует (nonce prepended к ciphertext).
func (sm *SessionManager) seal(v any) (string, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("ошибка сериализации cookie: %w", err)
	}

	nonce := make([]byte, sm.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("ошибка генерации nonce: %w", err)
	}

	ciphertext := sm.gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.URLEncoding.EncodeToString(ciphertext), nil
}

// open дешифрует строку из seal в v.
func (sm *SessionManager) open(encrypted string, v any) error {
	ciphertext, err := base64.URLEncoding.DecodeString(encrypted)
	if err != nil {
		return fmt.Errorf("ошибка декодирования base64: %w", err)
	}

	nonceSize := sm.gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return errors.New("зашифрованные данные слишком короткие")
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := sm.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return fmt.Errorf("ошибка дешифрования cookie: %w", err)
	}

	if err := json.Unmarshal(plaintext, v); err != nil {
		return fmt.Errorf("ошибка десериализации cookie: %w", err)
	}
	return nil
}

// sha256Key хеширует строковый ключ в 32 bytes через SHA-256.
func sha256Key(key string) []byte {
	h := sha256.Sum256([]byte(key))
	return h[:]
}
