package repository

import (
	"context"
	"time"
)

// Providers de autenticación soportados para el campo AuthProvider.
const (
	AuthProviderEmail    = "email"
	AuthProviderGoogle   = "google"
	AuthProviderFacebook = "facebook"
)

// Identity representa la cuenta de un usuario y su método de autenticación
// actual. Un email pertenece a exactamente una identidad, sin importar el
// provider; un par (AuthProvider, ProviderID) mapea a lo sumo a una identidad.
type Identity struct {
	ID                string
	Email             string
	Name              string
	AuthProvider      string // "email", "google", "facebook"
	ProviderID        string // ID del usuario en el provider (vacío para "email")
	ProviderEmail     string // email reportado por el provider
	ProfilePictureURL string
	PasswordHash      string // solo para AuthProvider == "email"
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsPasswordAccount indica si la identidad se autentica con contraseña local.
func (i *Identity) IsPasswordAccount() bool {
	return i.AuthProvider == AuthProviderEmail
}

// CreateIdentityInput contiene los datos para crear una identidad nueva.
type CreateIdentityInput struct {
	Email             string
	Name              string
	AuthProvider      string
	ProviderID        string
	ProviderEmail     string
	ProfilePictureURL string
	PasswordHash      string
}

// IdentityRepository define las operaciones que el orquestador necesita del
// user store. La implementación debe garantizar unicidad de email y de
// (provider, provider_id) via constraints, retornando ErrConflict al violarse.
type IdentityRepository interface {
	// GetByID busca una identidad por su ID. Retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, id string) (*Identity, error)

	// GetByProvider busca por provider y ID del usuario en el provider.
	// Retorna ErrNotFound si no existe.
	GetByProvider(ctx context.Context, provider, providerID string) (*Identity, error)

	// GetByEmail busca por email (normalizado lowercase).
	// Retorna ErrNotFound si no existe.
	GetByEmail(ctx context.Context, email string) (*Identity, error)

	// Create inserta una identidad nueva. Retorna ErrConflict si el email o el
	// par (provider, provider_id) ya están tomados.
	Create(ctx context.Context, input CreateIdentityInput) (*Identity, error)

	// Update persiste los campos mutables de una identidad existente.
	Update(ctx context.Context, identity *Identity) error
}
