package errors

import "fmt"

var (
	ErrRoomResolution = fmt.Errorf("room resolution failed")
	ErrHistoryFetch   = fmt.Errorf("history fetch failed")
	ErrSendRejected   = fmt.Errorf("send rejected by transport")
	ErrNotConnected   = fmt.Errorf("channel is not connected")
	ErrEmptyMessage   = fmt.Errorf("message content is empty")
	ErrNoRoomSelected = fmt.Errorf("no room selected")
	ErrSessionClosed  = fmt.Errorf("session is not open")
)
