package engine

// AnswerEntry is one (question id, answer value) pair in first-write order.
type AnswerEntry struct {
	QuestionID int    `json:"question_id"`
	Value      string `json:"value"`
}

// AnswerLog is the append/overwrite answer store. Writes are last-write-wins
// per question id; iteration order is first-write order. Main and screening
// questions share the namespace through the positive/negative id convention.
type AnswerLog struct {
	order  []int
	values map[int]string
}

// NewAnswerLog creates an empty answer log.
func NewAnswerLog() *AnswerLog {
	return &AnswerLog{values: make(map[int]string)}
}

// Set records an answer, overwriting any previous value for the id.
// An empty value is kept: it reverts the question to unanswered without
// losing its slot in the log order.
func (l *AnswerLog) Set(id int, value string) {
	if _, seen := l.values[id]; !seen {
		l.order = append(l.order, id)
	}
	l.values[id] = value
}

// Get returns the stored value for the id and whether one was ever written.
func (l *AnswerLog) Get(id int) (string, bool) {
	v, ok := l.values[id]
	return v, ok
}

// HasAnswer reports whether a non-empty answer is stored for the id.
func (l *AnswerLog) HasAnswer(id int) bool {
	v, ok := l.values[id]
	return ok && v != ""
}

// Len returns the number of distinct ids ever written.
func (l *AnswerLog) Len() int { return len(l.order) }

// Entries returns all pairs in first-write order.
func (l *AnswerLog) Entries() []AnswerEntry {
	out := make([]AnswerEntry, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, AnswerEntry{QuestionID: id, Value: l.values[id]})
	}
	return out
}
