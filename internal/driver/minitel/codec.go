// internal/driver/minitel/codec.go
package minitel

// placeholderByte replaces characters the terminal cannot display
const placeholderByte = 0x3F // ?

// charTable maps characters above seven-bit ASCII to their wire form:
// SS2 compositions for accented letters and G2 codes for special
// symbols. Uppercase accented letters have no terminal rendition and
// degrade to the bare base letter. Typographic quotes normalize to the
// plain ASCII forms.
var charTable = map[rune][]byte{
	// Grave accent (SS2 0x41)
	'à': {0x19, 0x41, 'a'},
	'è': {0x19, 0x41, 'e'},
	'ì': {0x19, 0x41, 'i'},
	'ò': {0x19, 0x41, 'o'},
	'ù': {0x19, 0x41, 'u'},

	// Acute accent (SS2 0x42)
	'á': {0x19, 0x42, 'a'},
	'é': {0x19, 0x42, 'e'},
	'í': {0x19, 0x42, 'i'},
	'ó': {0x19, 0x42, 'o'},
	'ú': {0x19, 0x42, 'u'},

	// Circumflex (SS2 0x43)
	'â': {0x19, 0x43, 'a'},
	'ê': {0x19, 0x43, 'e'},
	'î': {0x19, 0x43, 'i'},
	'ô': {0x19, 0x43, 'o'},
	'û': {0x19, 0x43, 'u'},

	// Diaeresis (SS2 0x48)
	'ä': {0x19, 0x48, 'a'},
	'ë': {0x19, 0x48, 'e'},
	'ï': {0x19, 0x48, 'i'},
	'ö': {0x19, 0x48, 'o'},
	'ü': {0x19, 0x48, 'u'},
	'ÿ': {0x19, 0x48, 'y'},

	// Cedilla (SS2 0x4B)
	'ç': {0x19, 0x4B, 'c'},

	// Uppercase accented letters degrade to the base letter
	'À': {'A'}, 'Â': {'A'}, 'Ä': {'A'},
	'Ç': {'C'},
	'È': {'E'}, 'É': {'E'}, 'Ê': {'E'}, 'Ë': {'E'},
	'Î': {'I'}, 'Ï': {'I'},
	'Ô': {'O'}, 'Ö': {'O'},
	'Ù': {'U'}, 'Û': {'U'}, 'Ü': {'U'},

	// Special symbols (G2 set)
	'£': {0x19, 0x23},
	'§': {0x19, 0x27},
	'°': {0x19, 0x30},
	'±': {0x19, 0x31},
	'←': {0x19, 0x2C},
	'↑': {0x19, 0x2D},
	'→': {0x19, 0x2E},
	'↓': {0x19, 0x2F},
	'÷': {0x19, 0x38},
	'¼': {0x19, 0x3C},
	'½': {0x19, 0x3D},
	'¾': {0x19, 0x3E},
	'Œ': {0x19, 0x6A},
	'œ': {0x19, 0x7A},
	'ß': {0x19, 0x7B},
	'β': {0x19, 0x7B},

	// Typographic quotes normalize to ASCII
	'‘': {'\''},
	'’': {'\''},
	'‚': {'\''},
	'“': {'"'},
	'”': {'"'},
	'„': {'"'},
	'«': {'"'},
	'»': {'"'},
}

// EncodeRune converts one character to the bytes that draw it on the
// terminal. Seven-bit ASCII passes through unchanged, control bytes
// included, table entries expand to their wire form and everything
// else becomes the placeholder. The returned slice is a fresh copy.
func EncodeRune(r rune) []byte {
	if r >= 0 && r <= 0x7F {
		return []byte{byte(r)}
	}
	if seq, ok := charTable[r]; ok {
		out := make([]byte, len(seq))
		copy(out, seq)
		return out
	}
	return []byte{placeholderByte}
}

// EncodeText converts a string to its wire form, one character at a time
func EncodeText(text string) []byte {
	out := make([]byte, 0, len(text))
	for _, r := range text {
		out = append(out, EncodeRune(r)...)
	}
	return out
}
