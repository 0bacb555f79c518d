package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeHandle(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"already canonical", "@alice_2024", "@alice_2024"},
		{"missing at sign", "alice_2024", "@alice_2024"},
		{"uppercase", "MyUser123", "@myuser123"},
		{"uppercase with at", "@MyUser123", "@myuser123"},
		{"surrounding whitespace", "  @Bob_99  ", "@bob_99"},
		{"empty", "", ""},
		{"only at sign", "@", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeHandle(tt.input))
		})
	}
}

func TestNormalizeHandle_VariantsCollide(t *testing.T) {
	// Разные написания одного handle должны давать один канонический вид
	variants := []string{"MyUser123", "@myuser123", "@MyUser123", " myuser123 "}
	for _, v := range variants {
		assert.Equal(t, "@myuser123", NormalizeHandle(v))
	}
}

func TestValidateHandle(t *testing.T) {
	assert.NoError(t, ValidateHandle("@alice_2024"))
	assert.NoError(t, ValidateHandle("alice_2024"))
	assert.NoError(t, ValidateHandle("a2345"))

	assert.Error(t, ValidateHandle(""))
	assert.Error(t, ValidateHandle("@abc"), "shorter than 5 characters")
	assert.Error(t, ValidateHandle("@"+strings.Repeat("a", 33)), "longer than 32 characters")
	assert.Error(t, ValidateHandle("@has space"))
	assert.Error(t, ValidateHandle("@has-dash"))
}

func TestValidateGuestName(t *testing.T) {
	assert.NoError(t, ValidateGuestName("Alice"))

	assert.Error(t, ValidateGuestName(""))
	assert.Error(t, ValidateGuestName("   "))
	assert.Error(t, ValidateGuestName(strings.Repeat("x", MaxGuestNameLength+1)))
}

func TestValidateFingerprint(t *testing.T) {
	assert.NoError(t, ValidateFingerprint("f3a9c1d24be87a50"))
	assert.NoError(t, ValidateFingerprint("abc_DEF-123456789"))

	assert.Error(t, ValidateFingerprint(""))
	assert.Error(t, ValidateFingerprint("short"))
	assert.Error(t, ValidateFingerprint(strings.Repeat("a", MaxFingerprintLength+1)))
	assert.Error(t, ValidateFingerprint("has space in here!"))
}

func TestValidateIP(t *testing.T) {
	assert.NoError(t, ValidateIP("192.168.1.1"))
	assert.NoError(t, ValidateIP("::1"))

	assert.Error(t, ValidateIP("not-an-ip"))
	assert.Error(t, ValidateIP(""))
}
