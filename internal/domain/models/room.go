package models

// Room groups the participants that may signal each other.
// Participants keep join order. The registry is the sole owner;
// callers only ever see copies.
type Room struct {
	Title        string
	Participants []Participant
}
