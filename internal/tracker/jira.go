package tracker

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	jira "github.com/andygrunwald/go-jira"
	"go.uber.org/zap"

	"github.com/jonathan/license-delivery/internal/types"
)

const defaultPageSize = 50

// JiraOptions configures a JiraClient.
type JiraOptions struct {
	BaseURL        string
	User           string
	Token          string
	StartDateField string // e.g. customfield_10431
	EndDateField   string
	PageSize       int
	HTTPClient     *http.Client // Overrides the basic-auth client; used by tests
	Logger         *zap.Logger
}

// JiraClient implements Gateway with go-jira.
type JiraClient struct {
	client     *jira.Client
	httpClient *http.Client
	startField string
	endField   string
	pageSize   int
	logger     *zap.Logger
}

var _ Gateway = (*JiraClient)(nil)

// NewJiraClient builds a client authenticated with basic auth (user and API token).
func NewJiraClient(opts JiraOptions) (*JiraClient, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		tp := jira.BasicAuthTransport{Username: opts.User, Password: opts.Token}
		httpClient = tp.Client()
	}

	client, err := jira.NewClient(httpClient, opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create jira client: %w", err)
	}

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &JiraClient{
		client:     client,
		httpClient: httpClient,
		startField: opts.StartDateField,
		endField:   opts.EndDateField,
		pageSize:   pageSize,
		logger:     logger,
	}, nil
}

// search runs jql across every result page.
func (c *JiraClient) search(ctx context.Context, jql string, fields []string) ([]jira.Issue, error) {
	var all []jira.Issue
	startAt := 0
	for {
		opts := &jira.SearchOptions{StartAt: startAt, MaxResults: c.pageSize, Fields: fields}
		issues, resp, err := c.client.Issue.SearchWithContext(ctx, jql, opts)
		if err != nil {
			return nil, newRequestError("search", "", resp, err)
		}
		all = append(all, issues...)

		if len(issues) == 0 || resp == nil || startAt+len(issues) >= resp.Total {
			break
		}
		startAt += len(issues)
	}

	c.logger.Debug("jira search", zap.String("jql", jql), zap.Int("results", len(all)))
	return all, nil
}

// SearchParents implements Gateway.
func (c *JiraClient) SearchParents(ctx context.Context, q ParentQuery) ([]types.ParentTicket, error) {
	issues, err := c.search(ctx, q.JQL(), []string{"summary"})
	if err != nil {
		return nil, err
	}

	parents := make([]types.ParentTicket, 0, len(issues))
	for _, issue := range issues {
		p := types.ParentTicket{Key: issue.Key}
		if issue.Fields != nil {
			p.RawSummary = issue.Fields.Summary
		}
		parents = append(parents, p)
	}
	return parents, nil
}

// LatestChild implements Gateway.
func (c *JiraClient) LatestChild(ctx context.Context, q ChildQuery) (*types.ChildTicket, error) {
	issues, err := c.search(ctx, q.JQL(), []string{"summary"})
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(issues))
	for _, issue := range issues {
		keys = append(keys, issue.Key)
	}
	latest := LatestKey(keys)
	if latest == "" {
		return nil, nil
	}
	return &types.ChildTicket{Key: latest}, nil
}

// ReadFields implements Gateway.
func (c *JiraClient) ReadFields(ctx context.Context, key string) (*types.TicketFields, error) {
	fieldList := []string{"summary", "reporter", "duedate", "labels"}
	if c.startField != "" {
		fieldList = append(fieldList, c.startField)
	}
	if c.endField != "" {
		fieldList = append(fieldList, c.endField)
	}

	issue, resp, err := c.client.Issue.GetWithContext(ctx, key, &jira.GetQueryOptions{Fields: strings.Join(fieldList, ",")})
	if err != nil {
		return nil, newRequestError("get", key, resp, err)
	}
	if issue.Fields == nil {
		return nil, &FieldError{Key: key, Field: "fields", Message: "response has no fields"}
	}

	f := issue.Fields
	out := &types.TicketFields{
		Summary: f.Summary,
		Labels:  f.Labels,
	}
	if f.Reporter != nil {
		out.Reporter = f.Reporter.DisplayName
	}
	if due := time.Time(f.Duedate); !due.IsZero() {
		out.DueDate = &due
	}

	if out.StartDate, err = dateField(key, c.startField, f.Unknowns); err != nil {
		return nil, err
	}
	if out.EndDate, err = dateField(key, c.endField, f.Unknowns); err != nil {
		return nil, err
	}
	return out, nil
}

// dateField reads a YYYY-MM-DD custom field. Absent fields yield nil.
func dateField(key, field string, unknowns map[string]interface{}) (*time.Time, error) {
	if field == "" {
		return nil, nil
	}
	raw, ok := unknowns[field]
	if !ok || raw == nil {
		return nil, nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil, &FieldError{Key: key, Field: field, Message: fmt.Sprintf("expected date string, got %T", raw)}
	}
	d, err := time.Parse(types.DateLayout, s)
	if err != nil {
		return nil, &FieldError{Key: key, Field: field, Message: fmt.Sprintf("invalid date %q", s)}
	}
	return &d, nil
}

func newRequestError(op, key string, resp *jira.Response, err error) *RequestError {
	re := &RequestError{Op: op, Key: key, Cause: err}
	if resp != nil && resp.Response != nil {
		re.StatusCode = resp.StatusCode
	}
	return re
}

// AddAttachment implements Gateway.
func (c *JiraClient) AddAttachment(ctx context.Context, key string, payload []byte, filename string) error {
	_, resp, err := c.client.Issue.PostAttachmentWithContext(ctx, key, bytes.NewReader(payload), filename)
	if err != nil {
		return newRequestError("attach "+filename, key, resp, err)
	}
	return nil
}

// AddComment implements Gateway.
func (c *JiraClient) AddComment(ctx context.Context, key, body string) error {
	_, resp, err := c.client.Issue.AddCommentWithContext(ctx, key, &jira.Comment{Body: body})
	if err != nil {
		return newRequestError("comment", key, resp, err)
	}
	return nil
}

// UpdateField implements Gateway.
func (c *JiraClient) UpdateField(ctx context.Context, key, field string, value any) error {
	data := map[string]interface{}{
		"fields": map[string]interface{}{field: value},
	}
	resp, err := c.client.Issue.UpdateIssueWithContext(ctx, key, data)
	if err != nil {
		return newRequestError("update "+field, key, resp, err)
	}
	return nil
}

// Transition implements Gateway.
func (c *JiraClient) Transition(ctx context.Context, key, transitionID string) error {
	resp, err := c.client.Issue.DoTransitionWithContext(ctx, key, transitionID)
	if err != nil {
		return newRequestError("transition "+transitionID, key, resp, err)
	}
	return nil
}

// Close implements Gateway.
func (c *JiraClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
