package protocol

// Close reasons sent in the websocket close frame. Game actions never
// produce errors on the wire; ineligible actions are dropped silently.
const (
	ErrBadEncoding = "E_BAD_ENCODING"
	ErrWorldBusy   = "E_WORLD_BUSY"
	ErrInternal    = "E_INTERNAL"
)
