package model

type VideoStatus string

const (
	VideoStatusUploading  VideoStatus = "uploading"
	VideoStatusProcessing VideoStatus = "processing"
	VideoStatusCompleted  VideoStatus = "completed"
	VideoStatusFailed     VideoStatus = "failed"
)

// Terminal reports whether ingestion has finished for good.
func (s VideoStatus) Terminal() bool {
	return s == VideoStatusCompleted || s == VideoStatusFailed
}

func (s VideoStatus) Valid() bool {
	switch s {
	case VideoStatusUploading, VideoStatusProcessing, VideoStatusCompleted, VideoStatusFailed:
		return true
	}
	return false
}

type Video struct {
	ID       string      `json:"id"`
	Title    string      `json:"title"`
	FileKey  string      `json:"file_key"`
	Duration float64     `json:"duration"`
	Status   VideoStatus `json:"status"`
	Ctime    int64       `json:"ctime"`
	Mtime    int64       `json:"mtime"`
}

// Processed reports whether the video can be searched.
func (v *Video) Processed() bool {
	return v.Status == VideoStatusCompleted
}
