package retrieval

type TimeRange struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type Match struct {
	Timestamp float64
	Text      string
	Window    TimeRange
}

// Outcome is either a Match or nothing; the zero value is NotFound.
type Outcome struct {
	match *Match
}

var NotFound = Outcome{}

func Found(m Match) Outcome {
	return Outcome{match: &m}
}

func (o Outcome) Match() (Match, bool) {
	if o.match == nil {
		return Match{}, false
	}
	return *o.match, true
}

func (o Outcome) Found() bool {
	return o.match != nil
}

// Result is the wire shape of a search: all fields are null when nothing
// answered the query.
type Result struct {
	Timestamp *float64   `json:"timestamp"`
	Text      *string    `json:"text"`
	Window    *TimeRange `json:"window"`
}

func (o Outcome) Result() Result {
	m, ok := o.Match()
	if !ok {
		return Result{}
	}
	window := m.Window
	text := m.Text
	ts := m.Timestamp
	return Result{Timestamp: &ts, Text: &text, Window: &window}
}
