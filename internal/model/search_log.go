package model

// SearchLog is an append-only audit record of one search call.
type SearchLog struct {
	ID              int64    `json:"id"`
	VideoID         string   `json:"video_id"`
	Query           string   `json:"query"`
	ResultTimestamp *float64 `json:"result_timestamp"`
	ResultText      *string  `json:"result_text"`
	Ctime           int64    `json:"ctime"`
}
