package models

// Identity is the best-effort user attribution resolved at connection
// time. It is a display label and relay addressing key only, never an
// access-control decision.
type Identity struct {
	ID   string
	Name string
}

// Session is the per-connection state record. The websocket handler owns
// it and passes it explicitly to the usecases; RoomID and UserType are
// filled in on join and read back on disconnect for cleanup.
type Session struct {
	ConnID   string
	Identity Identity

	RoomID   string
	UserType UserType
}
