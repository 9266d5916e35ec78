package util_test

import (
	"strings"
	"testing"

	"github.com/tripnest/auth/internal/util"
)

func TestMaskEmail(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"ana.gomez@example.com", "a…@e….com"},
		{"Ana.Gomez@Example.COM", "a…@e….com"},
		{"a@b.co", "a@b.co"},
		{"", ""},
		{"ab", "***"},
		{"sin-arroba", "s…a"},
	}
	for _, tc := range cases {
		if got := util.MaskEmail(tc.in); got != tc.want {
			t.Errorf("MaskEmail(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMaskEmail_NeverLeaksFullLocalPart(t *testing.T) {
	got := util.MaskEmail("usuario.largo@dominio.com")
	if strings.Contains(got, "usuario.largo") {
		t.Fatalf("MaskEmail filtró el local part completo: %q", got)
	}
}
