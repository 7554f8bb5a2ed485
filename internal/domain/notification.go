package domain

// NotificationMessage is a single entry of the scrolling ticker.
type NotificationMessage struct {
	Text  string `json:"text"`
	Sound string `json:"sound,omitempty"` // optional sound file name sent by the backend
	// ReceivedAt is a logical order key assigned on insertion, starting at 1.
	ReceivedAt uint64 `json:"receivedAt"`
}
