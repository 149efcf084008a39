package model

import "strings"

type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityPass    Severity = "pass"
	SeverityInfo    Severity = "info"
)

func (s Severity) Icon() string {
	switch s {
	case SeverityWarning:
		return "⚠️"
	case SeverityPass:
		return "✅"
	default:
		return "ℹ️"
	}
}

// ChecklistLine is one human readable status entry.
type ChecklistLine struct {
	Topic    string   `json:"topic"`
	Severity Severity `json:"severity"`
	Text     string   `json:"text"`
}

func (c ChecklistLine) String() string {
	return c.Severity.Icon() + " " + c.Text
}

type Checklist []ChecklistLine

// String renders the checklist as newline delimited text.
func (c Checklist) String() string {
	lines := make([]string, len(c))
	for i := range c {
		lines[i] = c[i].String()
	}
	return strings.Join(lines, "\n")
}

func (c Checklist) Count(s Severity) int {
	n := 0
	for i := range c {
		if c[i].Severity == s {
			n++
		}
	}
	return n
}

// Topic returns the lines for the given topic.
func (c Checklist) Topic(topic string) Checklist {
	ret := Checklist{}
	for i := range c {
		if c[i].Topic == topic {
			ret = append(ret, c[i])
		}
	}
	return ret
}
