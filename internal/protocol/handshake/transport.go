package handshake

type (
	// Transport is the device-protocol collaborator the handshake drives. All
	// operations are synchronous; each protocol step blocks on the transport
	// before the next one starts.
	Transport interface {
		// ResetHandshake discards any prior handshake context on the device.
		ResetHandshake() error

		// SendRequest delivers one protocol message to the device.
		SendRequest(msg []byte) error

		// GetResponse fetches the device's pending protocol message.
		GetResponse() ([]byte, error)

		// EnableTrustedOperations issues the command that opens trusted file
		// operations, keyed by four words derived from the session MAC.
		EnableTrustedOperations(w0, w1, w2, w3 uint32) error
	}

	// InitiatorInfoSetter is an optional Transport extension for devices that
	// record a session-initiator string before the exchange.
	InitiatorInfoSetter interface {
		SetInitiatorInfo(info string) error
	}
)

// InitiatorInfo is the session-initiator string announced to transports that
// support it.
const InitiatorInfo = "libmtp/Sajid Anwar - MTPZClassDriver"
