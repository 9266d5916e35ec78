// Package pg implementa IdentityRepository sobre PostgreSQL usando pgxpool.
// Es el driver por defecto en producción (storage.driver: postgres).
package pg

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tripnest/auth/internal/domain/repository"
)

// uniqueViolation es el código SQLSTATE de violación de constraint único.
const uniqueViolation = "23505"

type Store struct {
	pool *pgxpool.Pool
}

// Connect crea el pool, verifica la conexión y retorna el store.
func Connect(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: parse DSN: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	} else {
		cfg.MaxConns = 10
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping failed: %w", err)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() {
	s.pool.Close()
}

const identityColumns = `
	id, email, COALESCE(name, ''), auth_provider, COALESCE(provider_id, ''),
	COALESCE(provider_email, ''), COALESCE(profile_picture_url, ''),
	COALESCE(password_hash, ''), created_at, updated_at
`

func scanIdentity(row pgx.Row) (*repository.Identity, error) {
	var ident repository.Identity
	err := row.Scan(
		&ident.ID, &ident.Email, &ident.Name, &ident.AuthProvider, &ident.ProviderID,
		&ident.ProviderEmail, &ident.ProfilePictureURL,
		&ident.PasswordHash, &ident.CreatedAt, &ident.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ident, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*repository.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE id = $1`
	ident, err := scanIdentity(s.pool.QueryRow(ctx, query, id))
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("pg: get identity by id: %w", err)
	}
	return ident, err
}

func (s *Store) GetByProvider(ctx context.Context, provider, providerID string) (*repository.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE auth_provider = $1 AND provider_id = $2`
	ident, err := scanIdentity(s.pool.QueryRow(ctx, query, provider, providerID))
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("pg: get identity by provider: %w", err)
	}
	return ident, err
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*repository.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE email = $1`
	ident, err := scanIdentity(s.pool.QueryRow(ctx, query, strings.ToLower(email)))
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("pg: get identity by email: %w", err)
	}
	return ident, err
}

func (s *Store) Create(ctx context.Context, input repository.CreateIdentityInput) (*repository.Identity, error) {
	if input.Email == "" || input.AuthProvider == "" {
		return nil, repository.ErrInvalidInput
	}

	now := time.Now().UTC()
	ident := &repository.Identity{
		ID:                uuid.NewString(),
		Email:             strings.ToLower(input.Email),
		Name:              input.Name,
		AuthProvider:      input.AuthProvider,
		ProviderID:        input.ProviderID,
		ProviderEmail:     input.ProviderEmail,
		ProfilePictureURL: input.ProfilePictureURL,
		PasswordHash:      input.PasswordHash,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	const query = `
		INSERT INTO identities (id, email, name, auth_provider, provider_id, provider_email, profile_picture_url, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
	`
	_, err := s.pool.Exec(ctx, query,
		ident.ID, ident.Email, nullIfEmpty(ident.Name), ident.AuthProvider,
		nullIfEmpty(ident.ProviderID), nullIfEmpty(ident.ProviderEmail),
		nullIfEmpty(ident.ProfilePictureURL), nullIfEmpty(ident.PasswordHash), now,
	)
	if err != nil {
		// 23505 → otra request ganó la carrera por el mismo email o provider_id.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, repository.ErrConflict
		}
		return nil, fmt.Errorf("pg: insert identity: %w", err)
	}

	return ident, nil
}

func (s *Store) Update(ctx context.Context, identity *repository.Identity) error {
	const query = `
		UPDATE identities SET
			email = $2, name = $3, auth_provider = $4, provider_id = $5,
			provider_email = $6, profile_picture_url = $7, password_hash = $8,
			updated_at = NOW()
		WHERE id = $1
	`
	tag, err := s.pool.Exec(ctx, query,
		identity.ID, strings.ToLower(identity.Email), nullIfEmpty(identity.Name),
		identity.AuthProvider, nullIfEmpty(identity.ProviderID),
		nullIfEmpty(identity.ProviderEmail), nullIfEmpty(identity.ProfilePictureURL),
		nullIfEmpty(identity.PasswordHash),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return repository.ErrConflict
		}
		return fmt.Errorf("pg: update identity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// nullIfEmpty permite insertar NULL en columnas opcionales.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
