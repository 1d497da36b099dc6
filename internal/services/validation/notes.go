package validation

import "strings"

// Note prefixes. Corrections are changes the validator made; issues are
// residual problems it could not fix.
const (
	CorrectionPrefix = "CORRECTED: "
	IssuePrefix      = "ISSUE: "
)

// SplitNotes separates correction notes from residual issues and strips the
// prefixes. Unprefixed notes (parse and schema failures) count as issues.
func SplitNotes(notes []string) (corrections, issues []string) {
	for _, n := range notes {
		switch {
		case strings.HasPrefix(n, CorrectionPrefix):
			corrections = append(corrections, strings.TrimPrefix(n, CorrectionPrefix))
		case strings.HasPrefix(n, IssuePrefix):
			issues = append(issues, strings.TrimPrefix(n, IssuePrefix))
		default:
			issues = append(issues, n)
		}
	}
	return corrections, issues
}

type noteList struct {
	corrections []string
	issues      []string
}

func (n *noteList) correct(msg string) {
	n.corrections = append(n.corrections, CorrectionPrefix+msg)
}

func (n *noteList) issue(msg string) {
	n.issues = append(n.issues, IssuePrefix+msg)
}

// ordered returns corrections first, then issues.
func (n *noteList) ordered() []string {
	out := make([]string, 0, len(n.corrections)+len(n.issues))
	out = append(out, n.corrections...)
	return append(out, n.issues...)
}
