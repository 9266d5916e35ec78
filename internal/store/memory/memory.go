// Package memory implementa IdentityRepository en memoria.
// Usado en modo dev (storage.driver: memory) y por los tests unitarios.
// Replica las mismas garantías de unicidad que el esquema de Postgres.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tripnest/auth/internal/domain/repository"
)

type Store struct {
	mu         sync.RWMutex
	byID       map[string]*repository.Identity
	byEmail    map[string]string // email -> id
	byProvider map[string]string // provider:providerID -> id
}

func New() *Store {
	return &Store{
		byID:       make(map[string]*repository.Identity),
		byEmail:    make(map[string]string),
		byProvider: make(map[string]string),
	}
}

func providerKey(provider, providerID string) string {
	return provider + ":" + providerID
}

func (s *Store) GetByID(_ context.Context, id string) (*repository.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ident, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *ident
	return &cp, nil
}

func (s *Store) GetByProvider(_ context.Context, provider, providerID string) (*repository.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byProvider[providerKey(provider, providerID)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *Store) GetByEmail(_ context.Context, email string) (*repository.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *Store) Create(_ context.Context, input repository.CreateIdentityInput) (*repository.Identity, error) {
	if input.Email == "" || input.AuthProvider == "" {
		return nil, repository.ErrInvalidInput
	}
	email := strings.ToLower(input.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Mismas constraints que el esquema SQL: email único, (provider, provider_id) único.
	if _, taken := s.byEmail[email]; taken {
		return nil, repository.ErrConflict
	}
	if input.ProviderID != "" {
		if _, taken := s.byProvider[providerKey(input.AuthProvider, input.ProviderID)]; taken {
			return nil, repository.ErrConflict
		}
	}

	now := time.Now().UTC()
	ident := &repository.Identity{
		ID:                uuid.NewString(),
		Email:             email,
		Name:              input.Name,
		AuthProvider:      input.AuthProvider,
		ProviderID:        input.ProviderID,
		ProviderEmail:     input.ProviderEmail,
		ProfilePictureURL: input.ProfilePictureURL,
		PasswordHash:      input.PasswordHash,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	s.byID[ident.ID] = ident
	s.byEmail[email] = ident.ID
	if input.ProviderID != "" {
		s.byProvider[providerKey(input.AuthProvider, input.ProviderID)] = ident.ID
	}

	cp := *ident
	return &cp, nil
}

func (s *Store) Update(_ context.Context, identity *repository.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[identity.ID]
	if !ok {
		return repository.ErrNotFound
	}

	email := strings.ToLower(identity.Email)
	if otherID, taken := s.byEmail[email]; taken && otherID != identity.ID {
		return repository.ErrConflict
	}

	// Reindexar el binding de provider si cambió.
	if current.ProviderID != "" {
		delete(s.byProvider, providerKey(current.AuthProvider, current.ProviderID))
	}
	if identity.ProviderID != "" {
		key := providerKey(identity.AuthProvider, identity.ProviderID)
		if otherID, taken := s.byProvider[key]; taken && otherID != identity.ID {
			// Restaurar índice anterior antes de fallar.
			if current.ProviderID != "" {
				s.byProvider[providerKey(current.AuthProvider, current.ProviderID)] = current.ID
			}
			return repository.ErrConflict
		}
		s.byProvider[key] = identity.ID
	}

	if old := strings.ToLower(current.Email); old != email {
		delete(s.byEmail, old)
	}

	cp := *identity
	cp.Email = email
	cp.UpdatedAt = time.Now().UTC()
	cp.CreatedAt = current.CreatedAt
	s.byID[identity.ID] = &cp
	s.byEmail[email] = cp.ID
	return nil
}
