package repository

import (
	"context"
	"sync"
)

// MemoryRepository реализует key-value хранилище в памяти процесса.
// Используется в тестах и при запуске без базы данных: исходное приложение
// целиком работало на локальном хранилище браузера, поэтому режим без БД —
// полноценный, а не деградация.
type MemoryRepository struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryRepository создаёт пустое хранилище в памяти.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		data: make(map[string][]byte),
	}
}

// Close реализует контракт репозитория, освобождать нечего.
func (r *MemoryRepository) Close() error {
	return nil
}

// Load возвращает значение по ключу. Второй результат сообщает, найден ли ключ.
func (r *MemoryRepository) Load(_ context.Context, key string) ([]byte, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	value, ok := r.data[key]
	if !ok {
		return nil, false, nil
	}

	cp := make([]byte, len(value))
	copy(cp, value)
	return cp, true, nil
}

// Save записывает значение по ключу, заменяя существующее.
func (r *MemoryRepository) Save(_ context.Context, key string, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := make([]byte, len(value))
	copy(cp, value)
	r.data[key] = cp
	return nil
}

// Remove удаляет ключ. Удаление отсутствующего ключа не является ошибкой.
func (r *MemoryRepository) Remove(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.data, key)
	return nil
}
