package model

type Transcript struct {
	ID       int64  `json:"id"`
	VideoID  string `json:"video_id"`
	FullText string `json:"full_text"`
	Ctime    int64  `json:"ctime"`
}

type TranscriptSegment struct {
	ID           int64     `json:"id"`
	TranscriptID int64     `json:"transcript_id"`
	Text         string    `json:"text"`
	StartTime    float64   `json:"start_time"`
	EndTime      float64   `json:"end_time"`
	Embedding    []float32 `json:"embedding,omitempty"`
}

// Overlaps reports whether the segment intersects [start, end].
func (s TranscriptSegment) Overlaps(start, end float64) bool {
	return s.StartTime <= end && s.EndTime >= start
}
