package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"diacritics and symbols", "Café & Té / 100%!", "cafe-te-100"},
		{"already clean", "summer-menu", "summer-menu"},
		{"leading and trailing noise", "  --Hello, World--  ", "hello-world"},
		{"spanish", "Niño Año Pequeño", "nino-ano-pequeno"},
		{"only symbols", "!!!", ""},
		{"digits kept", "Menu 2024 v2", "menu-2024-v2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("cafe-te-100"))
	assert.False(t, Valid("Cafe"))
	assert.False(t, Valid("-cafe"))
	assert.False(t, Valid("cafe--te"))
	assert.False(t, Valid(""))
}

func TestAutoSlug_StopsSyncAfterManualEdit(t *testing.T) {
	var a AutoSlug

	a.SetName("Mi Catálogo")
	assert.Equal(t, "mi-catalogo", a.Value())
	assert.False(t, a.Manual())

	a.SetSlug("custom")
	a.SetName("Another Name")

	assert.True(t, a.Manual())
	assert.Equal(t, "custom", a.Value())
}
