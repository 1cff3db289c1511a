package service

import (
	"context"
	"errors"
	"sync"

	"github.com/iliyamo/document-registry/internal/model"
	"github.com/iliyamo/document-registry/internal/repository"
)

type memUsers struct {
	mu     sync.Mutex
	byName map[string]model.User
	err    error
}

func newMemUsers() *memUsers { return &memUsers{byName: map[string]model.User{}} }

func (m *memUsers) Create(_ context.Context, u model.User) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	if _, ok := m.byName[u.Username]; ok {
		return 0, repository.ErrUsernameExists
	}
	u.ID = uint64(len(m.byName) + 1)
	m.byName[u.Username] = u
	return u.ID, nil
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return model.User{}, m.err
	}
	u, ok := m.byName[username]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

type memRecords struct {
	mu               sync.Mutex
	rows             []model.Record
	nextID           uint64
	failCreate       error
	lastSubjectWrite bool
}

func (m *memRecords) List(context.Context) ([]model.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Record{}, m.rows...), nil
}

func (m *memRecords) Create(_ context.Context, rec model.Record) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate != nil {
		return 0, m.failCreate
	}
	m.nextID++
	rec.ID = m.nextID
	m.rows = append(m.rows, rec)
	return rec.ID, nil
}

func (m *memRecords) Update(_ context.Context, rec model.Record, withSubject bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSubjectWrite = withSubject
	for i := range m.rows {
		if m.rows[i].ID == rec.ID {
			if !withSubject {
				rec.Subject = m.rows[i].Subject
			}
			m.rows[i] = rec
			return nil
		}
	}
	return repository.ErrRecordNotFound
}

func (m *memRecords) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return repository.ErrRecordNotFound
}

var errDB = errors.New("db down")
