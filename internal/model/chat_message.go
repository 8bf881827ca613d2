package model

type ChatMessage struct {
	ID          int64    `json:"id"`
	VideoID     string   `json:"video_id"`
	Message     string   `json:"message"`
	Response    string   `json:"response"`
	Timestamp   *float64 `json:"timestamp"`
	SegmentText *string  `json:"segment_text"`
	Ctime       int64    `json:"ctime"`
}
