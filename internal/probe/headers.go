package probe

// NATS headers describing a capture stream. Every message of a stream carries
// the capture ID; the last one carries HeaderEndOfStream instead of a record.
const (
	HeaderCaptureID   = "Spectra-Capture-Id"
	HeaderCaptureName = "Spectra-Capture-Name"
	HeaderEndOfStream = "Spectra-Eos"
	HeaderPacketCount = "Spectra-Packet-Count"
	HeaderError       = "Spectra-Error"
)
