// Package subjects lists and selects the courses and subjects offered
// by the answer-script page, each step a postback consuming and
// producing hidden-field state.
package subjects

// Course is one entry of the exam-name dropdown.
type Course struct {
	Name  string
	Value string
}

// Subject is one row of the answer-script grid. ASID and Button are
// portal-internal: the opaque row id and the per-row image button
// whose "click" selects the subject. A Subject is consumed once; the
// trigger name is only valid against the listing it came from.
type Subject struct {
	Code   string
	Name   string
	ASID   string
	Button string
}

func (s Subject) String() string {
	return s.Code + " - " + s.Name
}
