// Package cache define el contrato de cache TTL usado para artefactos
// efímeros del flujo OAuth (state tokens). Implementaciones: memory (go-cache)
// y redis (requerido con más de una réplica del servicio).
package cache

import "time"

type Cache interface {
	Get(key string) (value []byte, ok bool)
	Set(key string, value []byte, ttl time.Duration)
	Delete(key string)

	// Take obtiene y elimina la entrada en una sola operación.
	// Usado para tokens de un solo uso.
	Take(key string) (value []byte, ok bool)
}
