// Package password centraliza hashing y verificación de contraseñas (bcrypt).
package password

import "golang.org/x/crypto/bcrypt"

// Cost por encima del default; medido aceptable para el volumen de logins.
const Cost = 12

// Hash genera el hash bcrypt de una contraseña en texto plano.
func Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify compara hash y contraseña. Hash vacío nunca verifica.
func Verify(hash, plain string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
