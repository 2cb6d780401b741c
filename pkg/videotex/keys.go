// pkg/videotex/keys.go
package videotex

// KeyPrefix is the separator byte the terminal sends before every
// function-key code. A function-key event is exactly two bytes:
// KeyPrefix followed by the key code.
const KeyPrefix byte = 0x13 // SEP

// Key identifies one of the terminal's function keys.
type Key byte

// Function-key codes as emitted after KeyPrefix.
const (
	KeyNone         Key = 0x00 // sentinel: not a function key
	KeyEnvoi        Key = 0x41
	KeyRetour       Key = 0x42
	KeyRepetition   Key = 0x43
	KeyGuide        Key = 0x44
	KeyAnnulation   Key = 0x45
	KeySommaire     Key = 0x46
	KeyCorrection   Key = 0x47
	KeySuite        Key = 0x48
	KeyConnexionFin Key = 0x49
)

var keyNames = map[Key]string{
	KeyEnvoi:        "ENVOI",
	KeyRetour:       "RETOUR",
	KeyRepetition:   "REPETITION",
	KeyGuide:        "GUIDE",
	KeyAnnulation:   "ANNULATION",
	KeySommaire:     "SOMMAIRE",
	KeyCorrection:   "CORRECTION",
	KeySuite:        "SUITE",
	KeyConnexionFin: "CONNEXION_FIN",
}

// String returns the conventional keyboard label for the key.
func (k Key) String() string {
	if name, ok := keyNames[k]; ok {
		return name
	}
	if k == KeyNone {
		return "NONE"
	}
	return "UNKNOWN"
}

// ParseFunctionKey returns the function-key code carried by an input
// event. Any event that is not exactly a two-byte prefixed sequence
// returns KeyNone.
func ParseFunctionKey(event []byte) Key {
	if len(event) != 2 || event[0] != KeyPrefix {
		return KeyNone
	}
	return Key(event[1])
}
