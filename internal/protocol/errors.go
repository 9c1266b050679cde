package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Board routing/state.
	ErrBoardBusy = "E_BOARD_BUSY"

	// Rule layer.
	ErrBadRequest    = "E_BAD_REQUEST"
	ErrUnknownPlayer = "E_UNKNOWN_PLAYER"
	ErrUnknownRegion = "E_UNKNOWN_REGION"
	ErrBadPointValue = "E_BAD_POINT_VALUE"
	ErrInternal      = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrBoardBusy:       {},
	ErrBadRequest:      {},
	ErrUnknownPlayer:   {},
	ErrUnknownRegion:   {},
	ErrBadPointValue:   {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
