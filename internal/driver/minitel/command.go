// internal/driver/minitel/command.go
package minitel

import (
	"bytes"
	"fmt"
	"sort"

	"minitel-service/pkg/videotex"
)

// VIDEOTEX_COMMANDS contains all videotex command definitions for Minitel terminals
var VIDEOTEX_COMMANDS = struct {
	// Screen control
	CLEAR_SCREEN []byte
	CURSOR_HOME  []byte
	NEW_LINE     []byte
	BEEP         []byte

	// Cursor visibility
	CURSOR_SHOW []byte
	CURSOR_HIDE []byte

	// Sequence prefixes
	CURSOR_MOVE []byte // US + 0x40+row + 0x40+col
	ATTRIBUTE   []byte // ESC + attribute byte
	REPEAT      []byte // REP + 0x40+count-1
	ACCENT      []byte // SS2 + diacritic + base letter

	// Protocol sequences
	IDENT_REQUEST []byte // PRO1 ENQROM, terminal answers with its ROM identity
	SPEED_PROGRAM []byte // PRO2 PROG + speed byte
	SPEED_ACK     []byte // PRO2 header, present in the speed status answer
	ECHO_OFF      []byte // PRO3 routing: keyboard modem socket off
	ECHO_ACK      []byte // PRO3 routing status header in the answer
}{
	// Screen control
	CLEAR_SCREEN: []byte{0x0C},       // FF
	CURSOR_HOME:  []byte{0x1E},       // RS
	NEW_LINE:     []byte{0x0D, 0x0A}, // CR LF
	BEEP:         []byte{0x07},       // BEL

	// Cursor visibility
	CURSOR_SHOW: []byte{0x11}, // CON
	CURSOR_HIDE: []byte{0x14}, // COFF

	// Sequence prefixes
	CURSOR_MOVE: []byte{0x1F}, // US
	ATTRIBUTE:   []byte{0x1B}, // ESC
	REPEAT:      []byte{0x12}, // REP
	ACCENT:      []byte{0x19}, // SS2

	// Protocol sequences
	IDENT_REQUEST: []byte{0x1B, 0x39, 0x7B},             // PRO1 ENQROM
	SPEED_PROGRAM: []byte{0x1B, 0x3A, 0x6B},             // PRO2 PROG
	SPEED_ACK:     []byte{0x1B, 0x3A},                   // PRO2
	ECHO_OFF:      []byte{0x1B, 0x3B, 0x60, 0x58, 0x52}, // PRO3 OFF SCREEN MODEM
	ECHO_ACK:      []byte{0x1B, 0x3B, 0x63},             // PRO3 FROM
}

// Screen geometry. Row 0 is the status row, rows 1-24 and columns 1-40
// form the addressable grid.
const (
	minRow = 0
	maxRow = 24
	minCol = 1
	maxCol = 40
)

// repeatLimit is the largest count one REP sequence can carry; the count
// byte encodes count-1 offset from 0x40 and must stay printable.
const repeatLimit = 64

// formatCodes maps symbolic format names to the attribute byte that
// follows ESC. Color attributes render as grayscale levels on
// monochrome screens.
var formatCodes = map[string]byte{
	// Character color
	"char_black":   0x40,
	"char_red":     0x41,
	"char_green":   0x42,
	"char_yellow":  0x43,
	"char_blue":    0x44,
	"char_magenta": 0x45,
	"char_cyan":    0x46,
	"char_white":   0x47,

	// Background color
	"bg_black":   0x50,
	"bg_red":     0x51,
	"bg_green":   0x52,
	"bg_yellow":  0x53,
	"bg_blue":    0x54,
	"bg_magenta": 0x55,
	"bg_cyan":    0x56,
	"bg_white":   0x57,

	// Blink state
	"blink":  0x48,
	"steady": 0x49,

	// Size mode
	"size_normal":        0x4C,
	"size_double_height": 0x4D,
	"size_double_width":  0x4E,
	"size_double":        0x4F,

	// Underline and inverse video
	"underline_start": 0x5A,
	"underline_stop":  0x59,
	"inverse_on":      0x5D,
	"inverse_off":     0x5C,
}

// speedProgramBytes maps a baud rate to the PRO2 PROG parameter byte.
// The rate code occupies bits 0-2 and is mirrored into bits 3-5.
var speedProgramBytes = map[int]byte{
	videotex.Speed1200: 0x64,
	videotex.Speed4800: 0x76,
	videotex.Speed9600: 0x7F,
}

// ValidFormatNames returns the accepted format names in sorted order
func ValidFormatNames() []string {
	names := make([]string, 0, len(formatCodes))
	for name := range formatCodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MoveCursorSequence builds the absolute cursor addressing sequence
func MoveCursorSequence(row, col int) ([]byte, error) {
	if row < minRow || row > maxRow {
		return nil, fmt.Errorf("%w: row %d outside %d..%d", ErrValidation, row, minRow, maxRow)
	}
	if col < minCol || col > maxCol {
		return nil, fmt.Errorf("%w: column %d outside %d..%d", ErrValidation, col, minCol, maxCol)
	}

	seq := make([]byte, 0, 3)
	seq = append(seq, VIDEOTEX_COMMANDS.CURSOR_MOVE...)
	seq = append(seq, byte(0x40+row), byte(0x40+col))
	return seq, nil
}

// FormatSequence builds the attribute sequence for a symbolic format name
func FormatSequence(name string) ([]byte, error) {
	code, ok := formatCodes[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown format %q", ErrValidation, name)
	}

	seq := make([]byte, 0, 2)
	seq = append(seq, VIDEOTEX_COMMANDS.ATTRIBUTE...)
	seq = append(seq, code)
	return seq, nil
}

// RepeatSequence renders count occurrences of an already encoded
// character. Short runs are cheaper spelled out than compressed; longer
// runs use REP, split into chunks the count byte can carry.
func RepeatSequence(encoded []byte, count int) []byte {
	if count <= 0 {
		return nil
	}
	if count <= 3 {
		return bytes.Repeat(encoded, count)
	}
	if count <= repeatLimit {
		seq := make([]byte, 0, len(encoded)+2)
		seq = append(seq, encoded...)
		seq = append(seq, VIDEOTEX_COMMANDS.REPEAT...)
		seq = append(seq, byte(0x40+count-1))
		return seq
	}
	return append(RepeatSequence(encoded, repeatLimit), RepeatSequence(encoded, count-repeatLimit)...)
}

// SpeedSequence builds the PRO2 command that reprograms the terminal
// modem to the given baud rate
func SpeedSequence(baud int) ([]byte, error) {
	param, ok := speedProgramBytes[baud]
	if !ok {
		return nil, fmt.Errorf("%w: no program byte for %d baud", ErrValidation, baud)
	}

	seq := make([]byte, 0, 4)
	seq = append(seq, VIDEOTEX_COMMANDS.SPEED_PROGRAM...)
	seq = append(seq, param)
	return seq, nil
}
