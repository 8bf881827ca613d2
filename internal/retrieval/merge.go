package retrieval

import (
	"sort"

	"github.com/xxxsen/framefinder/internal/model"
)

// GapTolerance is the largest silence, in seconds, bridged when growing a
// window.
const GapTolerance = 3.0

type Window struct {
	Start float64
	End   float64
	Text  string
	Score float64
	Best  model.TranscriptSegment
}

// Merge groups scored segments into windows without any model call. It walks
// the segments in score order: a segment extends the open window when it
// starts no later than GapTolerance after the window's end, otherwise the
// window is closed and the segment opens the next one.
func Merge(scored []ScoredSegment) []Window {
	if len(scored) == 0 {
		return nil
	}
	ordered := make([]ScoredSegment, len(scored))
	copy(ordered, scored)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Score > ordered[j].Score
	})

	var windows []Window
	cur := openWindow(ordered[0])
	for _, item := range ordered[1:] {
		seg := item.Segment
		if seg.StartTime > cur.End+GapTolerance {
			windows = append(windows, cur)
			cur = openWindow(item)
			continue
		}
		cur.Start = minFloat(cur.Start, seg.StartTime)
		cur.End = maxFloat(cur.End, seg.EndTime)
		cur.Text += " " + seg.Text
		if item.Score > cur.Score {
			cur.Score = item.Score
			cur.Best = seg
		}
	}
	return append(windows, cur)
}

func openWindow(item ScoredSegment) Window {
	return Window{
		Start: item.Segment.StartTime,
		End:   item.Segment.EndTime,
		Text:  item.Segment.Text,
		Score: item.Score,
		Best:  item.Segment,
	}
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
