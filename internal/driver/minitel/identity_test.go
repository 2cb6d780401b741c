// internal/driver/minitel/identity_test.go
package minitel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentReplyMatcher(t *testing.T) {
	assert.True(t, identReplyMatcher([]byte{0x01, 'C', 'v', '2', 0x04}))
	assert.True(t, identReplyMatcher([]byte{0x01, 'B', 'u', '1', 0x04, 0x00}))

	assert.False(t, identReplyMatcher([]byte{0x01, 'C', 'v'}))
	assert.False(t, identReplyMatcher([]byte{0x13, 0x41}))
	assert.False(t, identReplyMatcher(nil))
}

func TestParseIdentityKnownModel(t *testing.T) {
	info := parseIdentity([]byte{0x01, 'C', 'v', '2', 0x04})

	assert.Equal(t, "Minitel 2", info.Name)
	assert.Equal(t, "Telic-Alcatel", info.Maker)
	assert.Equal(t, byte('C'), info.MakerCode)
	assert.Equal(t, byte('v'), info.ModelCode)
	assert.Equal(t, "2", info.Version)
	assert.Equal(t, 9600, info.MaxSpeed)
	assert.Equal(t, "Cv", info.Code())
}

func TestParseIdentityBistandardFallback(t *testing.T) {
	// 'x' is absent from the model table but sits in the bistandard
	// range, so it resolves to a 4800-capable terminal.
	info := parseIdentity([]byte{0x01, 'Z', 'x', '1', 0x04})

	assert.Equal(t, "Minitel (bi-standard)", info.Name)
	assert.Equal(t, 4800, info.MaxSpeed)
	assert.Equal(t, "Constructeur inconnu", info.Maker)
}

func TestParseIdentityUnknownModelDefaults(t *testing.T) {
	info := parseIdentity([]byte{0x01, 'B', 'a', '1', 0x04})

	assert.Equal(t, "Minitel (inconnu)", info.Name)
	assert.Equal(t, 1200, info.MaxSpeed)
	assert.Equal(t, "RTIC", info.Maker)
}

func TestParseIdentityCopiesRaw(t *testing.T) {
	raw := []byte{0x01, 'C', 'v', '2', 0x04}
	info := parseIdentity(raw)

	raw[1] = 'X'
	assert.Equal(t, byte('C'), info.Raw[1])
}
