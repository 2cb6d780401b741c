// pkg/videotex/videotex.go
// Package videotex holds the protocol vocabulary shared between the driver,
// the service layer and API clients: link speeds, terminal identification
// tables and the function-key codes emitted by the terminal keyboard.
package videotex

// Candidate link speeds in bauds. The line always runs 7 data bits, even
// parity, 1 stop bit; only the speed is negotiable.
const (
	Speed1200 = 1200
	Speed4800 = 4800
	Speed9600 = 9600
)

// CandidateSpeeds lists the probe order for automatic speed detection,
// ascending.
var CandidateSpeeds = []int{Speed1200, Speed4800, Speed9600}

// IsCandidateSpeed reports whether speed is one of the negotiable values.
func IsCandidateSpeed(speed int) bool {
	for _, s := range CandidateSpeeds {
		if s == speed {
			return true
		}
	}
	return false
}

// TerminalModel describes one entry of the ROM identification table.
type TerminalModel struct {
	Name     string `json:"name"`
	MaxSpeed int    `json:"max_speed"`
}

// MakerNames maps the first ROM identification character to the
// manufacturer name.
var MakerNames = map[byte]string{
	'A': "Matra",
	'B': "RTIC",
	'C': "Telic-Alcatel",
	'D': "Thomson",
	'E': "CCS",
	'F': "Fiet",
	'G': "Fime",
	'H': "Unitel",
	'I': "Option",
	'J': "Bull",
	'K': "Telematique",
	'L': "Desmet",
}

// Models maps the second ROM identification character to the terminal
// model and its maximum usable line speed.
var Models = map[byte]TerminalModel{
	'b': {Name: "Minitel 1", MaxSpeed: Speed1200},
	'c': {Name: "Minitel 1", MaxSpeed: Speed1200},
	'd': {Name: "Minitel 10", MaxSpeed: Speed1200},
	'e': {Name: "Minitel 1 Couleur", MaxSpeed: Speed1200},
	'f': {Name: "Minitel 10", MaxSpeed: Speed1200},
	'g': {Name: "Emulateur Minitel 1", MaxSpeed: Speed9600},
	'j': {Name: "Imprimante", MaxSpeed: Speed1200},
	'r': {Name: "Minitel 1", MaxSpeed: Speed1200},
	's': {Name: "Minitel 1 Couleur", MaxSpeed: Speed1200},
	't': {Name: "Terminatel 252", MaxSpeed: Speed1200},
	'u': {Name: "Minitel 1B", MaxSpeed: Speed4800},
	'v': {Name: "Minitel 2", MaxSpeed: Speed9600},
	'w': {Name: "Minitel 10B", MaxSpeed: Speed4800},
	'y': {Name: "Minitel 5", MaxSpeed: Speed9600},
	'z': {Name: "Minitel 12", MaxSpeed: Speed9600},
}

// bistandard model codes cluster at the end of the alphabet; an unknown
// code in that range is assumed to be a 4800-capable terminal, anything
// else is treated as a base 1200 model.
const (
	bistandardFirst = 'u'
	bistandardLast  = 'z'
)

// ResolveModel looks up a model code and falls back to the bistandard
// heuristic for codes missing from the table.
func ResolveModel(code byte) TerminalModel {
	if m, ok := Models[code]; ok {
		return m
	}
	if code >= bistandardFirst && code <= bistandardLast {
		return TerminalModel{Name: "Minitel (bi-standard)", MaxSpeed: Speed4800}
	}
	return TerminalModel{Name: "Minitel (inconnu)", MaxSpeed: Speed1200}
}

// MakerName returns the manufacturer name for a maker code, or a generic
// label when the code is unknown.
func MakerName(code byte) string {
	if name, ok := MakerNames[code]; ok {
		return name
	}
	return "Constructeur inconnu"
}

// ErrorCodes defines the stable error code strings surfaced in API
// responses.
var ErrorCodes = map[string]string{
	"CONNECTION_FAILED":     "Failed to open the terminal link",
	"IDENTIFY_TIMEOUT":      "Terminal did not answer the identification query",
	"REPLY_TIMEOUT":         "No matching reply within the deadline",
	"VALIDATION_ERROR":      "Request rejected before any byte was sent",
	"NOT_CONNECTED":         "No terminal link is established",
	"ALREADY_CONNECTED":     "A terminal link is already established",
	"SESSION_NOT_FOUND":     "No session matches the given identifier",
	"UNSUPPORTED_OPERATION": "Operation not supported by the current link",
}

// DefaultTimeouts lists operation deadlines in milliseconds.
var DefaultTimeouts = map[string]int{
	"PROBE_AUTO":  1000,
	"PROBE_FIXED": 3000,
	"SPEED_ACK":   500,
	"ECHO_ACK":    1000,
	"WRITE":       5000,
}
