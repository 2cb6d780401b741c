// internal/driver/minitel/identity.go
package minitel

import (
	"minitel-service/pkg/driver"
	"minitel-service/pkg/videotex"
)

// ROM identification reply framing
const (
	identStart  = 0x01 // SOH
	identMinLen = 5    // SOH + maker + model + version + EOT
)

// identReplyMatcher recognizes a ROM identification reply. The reply is
// the only unsolicited frame that begins with SOH, so the start byte
// plus the minimum length is a sufficient test.
func identReplyMatcher(event []byte) bool {
	return len(event) >= identMinLen && event[0] == identStart
}

// parseIdentity builds the terminal descriptor from a matched reply.
// Byte layout after SOH: maker code, model code, firmware version.
func parseIdentity(raw []byte) *driver.TerminalInfo {
	makerCode := raw[1]
	modelCode := raw[2]
	version := raw[3]

	model := videotex.ResolveModel(modelCode)

	return &driver.TerminalInfo{
		Name:      model.Name,
		Maker:     videotex.MakerName(makerCode),
		MakerCode: makerCode,
		ModelCode: modelCode,
		Version:   string(version),
		MaxSpeed:  model.MaxSpeed,
		Raw:       append([]byte(nil), raw...),
	}
}
