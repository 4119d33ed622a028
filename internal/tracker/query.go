package tracker

import (
	"fmt"
	"strings"
)

// ParentQuery selects parent delivery tickets.
type ParentQuery struct {
	Projects    []string
	IssueType   string
	Statuses    []string
	SummaryText string
}

// JQL renders the query, ordered by key ascending.
func (q ParentQuery) JQL() string {
	var clauses []string
	if len(q.Projects) > 0 {
		clauses = append(clauses, fmt.Sprintf("project in (%s)", quoteList(q.Projects)))
	}
	if q.IssueType != "" {
		clauses = append(clauses, "issuetype = "+quote(q.IssueType))
	}
	if len(q.Statuses) > 0 {
		clauses = append(clauses, fmt.Sprintf("status in (%s)", quoteList(q.Statuses)))
	}
	if q.SummaryText != "" {
		clauses = append(clauses, "summary ~ "+quote(q.SummaryText))
	}
	return strings.Join(clauses, " AND ") + " ORDER BY key ASC"
}

// ChildQuery selects the sub-tasks of one parent for a delivery phase.
type ChildQuery struct {
	ParentKey     string
	Status        string
	Label         string
	ExcludeLabels []string
}

// JQL renders the query, ordered by key descending.
func (q ChildQuery) JQL() string {
	clauses := []string{fmt.Sprintf("parent in (%s)", quote(q.ParentKey))}
	if q.Status != "" {
		clauses = append(clauses, "status = "+quote(q.Status))
	}
	if q.Label != "" {
		clauses = append(clauses, "labels = "+quote(q.Label))
	}
	if len(q.ExcludeLabels) > 0 {
		clauses = append(clauses, fmt.Sprintf("labels not in (%s)", quoteList(q.ExcludeLabels)))
	}
	return strings.Join(clauses, " AND ") + " ORDER BY key DESC"
}

var jqlEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func quote(s string) string {
	return `"` + jqlEscaper.Replace(s) + `"`
}

func quoteList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = quote(v)
	}
	return strings.Join(quoted, ", ")
}
