package password_test

import (
	"testing"

	"github.com/tripnest/auth/internal/security/password"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := password.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatal("el hash no puede ser el plaintext")
	}
	if !password.Verify(hash, "correct horse battery staple") {
		t.Fatal("Verify debería pasar con la contraseña correcta")
	}
	if password.Verify(hash, "otra") {
		t.Fatal("Verify debería fallar con contraseña incorrecta")
	}
}

func TestVerify_EmptyHash(t *testing.T) {
	// Cuentas OAuth no tienen hash: nunca verifican por contraseña.
	if password.Verify("", "cualquiera") {
		t.Fatal("hash vacío nunca verifica")
	}
}
