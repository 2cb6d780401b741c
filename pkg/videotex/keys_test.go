// pkg/videotex/keys_test.go
package videotex

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFunctionKey(t *testing.T) {
	tests := []struct {
		name  string
		event []byte
		want  Key
	}{
		{"envoi", []byte{KeyPrefix, 0x41}, KeyEnvoi},
		{"connexion fin", []byte{KeyPrefix, 0x49}, KeyConnexionFin},
		{"unknown code still carried", []byte{KeyPrefix, 0x4A}, Key(0x4A)},
		{"empty event", nil, KeyNone},
		{"single byte", []byte{KeyPrefix}, KeyNone},
		{"three bytes", []byte{KeyPrefix, 0x41, 0x41}, KeyNone},
		{"wrong prefix", []byte{0x1B, 0x41}, KeyNone},
		{"plain character", []byte{'a'}, KeyNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseFunctionKey(tt.event))
		})
	}
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "ENVOI", KeyEnvoi.String())
	assert.Equal(t, "SOMMAIRE", KeySommaire.String())
	assert.Equal(t, "NONE", KeyNone.String())
	assert.Equal(t, "UNKNOWN", Key(0x7A).String())
}
