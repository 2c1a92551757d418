package model

import "time"

// StoredToken — bearer-токен, сохранённый под ключом сессии.
// Хранится в таблице portal_tokens (postgres) или в Redis/памяти.
type StoredToken struct {
	// Key — ключ хранилища (portal:<sessionID> или token для CLI)
	Key string
	// Token — bearer-токен backend
	Token string
	// ExpiresAt — момент, после которого запись недействительна
	ExpiresAt time.Time
	// CreatedAt — время сохранения
	CreatedAt time.Time
}

// Expired проверяет, истёк ли срок хранения записи.
func (t StoredToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}
