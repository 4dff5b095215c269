// Package session keeps the signed-in employee as a JSON record under the
// "user" key of a key/value storage.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"billed/internal/core"
)

// UserKey is the storage key of the current user record.
const UserKey = "user"

// ErrNoUser is returned when no user is stored.
var ErrNoUser = errors.New("no user in session")

// Storage is a string key/value store.
type Storage interface {
	GetItem(key string) (string, bool)
	SetItem(key, value string)
}

// MemoryStorage is a Storage backed by a map.
type MemoryStorage struct {
	mu    sync.RWMutex
	items map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{items: map[string]string{}}
}

func (m *MemoryStorage) GetItem(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	return v, ok
}

func (m *MemoryStorage) SetItem(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
}

// CurrentUser decodes the user record held by st.
func CurrentUser(st Storage) (core.User, error) {
	raw, ok := st.GetItem(UserKey)
	if !ok || raw == "" {
		return core.User{}, ErrNoUser
	}
	var u core.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return core.User{}, fmt.Errorf("decode user: %w", err)
	}
	if u.Email == "" {
		return core.User{}, ErrNoUser
	}
	return u, nil
}

// SetUser stores u as the current user.
func SetUser(st Storage, u core.User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	st.SetItem(UserKey, string(data))
	return nil
}

// CookieStorage exposes request cookies as a Storage. Writes are sent back
// on the response.
type CookieStorage struct {
	r      *http.Request
	w      http.ResponseWriter
	maxAge time.Duration
	set    map[string]string
}

// NewCookieStorage binds a storage to one request/response pair.
func NewCookieStorage(w http.ResponseWriter, r *http.Request, maxAge time.Duration) *CookieStorage {
	return &CookieStorage{r: r, w: w, maxAge: maxAge, set: map[string]string{}}
}

func (c *CookieStorage) GetItem(key string) (string, bool) {
	if v, ok := c.set[key]; ok {
		return v, true
	}
	ck, err := c.r.Cookie(key)
	if err != nil {
		return "", false
	}
	v, err := url.QueryUnescape(ck.Value)
	if err != nil {
		return "", false
	}
	return v, true
}

func (c *CookieStorage) SetItem(key, value string) {
	c.set[key] = value
	if c.w == nil {
		return
	}
	http.SetCookie(c.w, &http.Cookie{
		Name:     key,
		Value:    url.QueryEscape(value),
		Path:     "/",
		MaxAge:   int(c.maxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
