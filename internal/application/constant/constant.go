package constant

// Shared slog attribute keys.
const (
	Error    = "error"
	ConnID   = "conn_id"
	RoomID   = "room_id"
	MemberID = "member_id"
	Event    = "event"
	TargetID = "target_id"
)
