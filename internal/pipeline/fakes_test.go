package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/jonathan/license-delivery/internal/notify"
	"github.com/jonathan/license-delivery/internal/tracker"
	"github.com/jonathan/license-delivery/internal/transfer"
	"github.com/jonathan/license-delivery/internal/types"
)

type attachment struct {
	Key      string
	Filename string
	Payload  string
}

type fieldUpdate struct {
	Key   string
	Field string
	Value any
}

// fakeTracker is an in-memory tracker.Gateway. Children are keyed by
// parent key and status.
type fakeTracker struct {
	mu sync.Mutex

	parents   []types.ParentTicket
	searchErr error
	children  map[string]string // "PARENT|status" -> child key
	fields    map[string]*types.TicketFields
	failOps   map[string]error // "comment|CHILD" etc.

	childQueries []tracker.ChildQuery
	attachments  []attachment
	comments     map[string][]string
	updates      []fieldUpdate
	transitions  map[string]string
	closed       bool
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{
		children:    map[string]string{},
		fields:      map[string]*types.TicketFields{},
		failOps:     map[string]error{},
		comments:    map[string][]string{},
		transitions: map[string]string{},
	}
}

func (f *fakeTracker) addChild(parent, status, child, start, end string) {
	s, _ := time.Parse(types.DateLayout, start)
	e, _ := time.Parse(types.DateLayout, end)
	f.children[parent+"|"+status] = child
	f.fields[child] = &types.TicketFields{Summary: "child of " + parent, StartDate: &s, EndDate: &e}
}

func (f *fakeTracker) fail(op, key string) error {
	return f.failOps[op+"|"+key]
}

func (f *fakeTracker) SearchParents(ctx context.Context, q tracker.ParentQuery) ([]types.ParentTicket, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return append([]types.ParentTicket(nil), f.parents...), nil
}

func (f *fakeTracker) LatestChild(ctx context.Context, q tracker.ChildQuery) (*types.ChildTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.childQueries = append(f.childQueries, q)
	if err := f.fail("child", q.ParentKey); err != nil {
		return nil, err
	}
	key, ok := f.children[q.ParentKey+"|"+q.Status]
	if !ok {
		return nil, nil
	}
	return &types.ChildTicket{Key: key}, nil
}

func (f *fakeTracker) ReadFields(ctx context.Context, key string) (*types.TicketFields, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("fields", key); err != nil {
		return nil, err
	}
	fields, ok := f.fields[key]
	if !ok {
		return nil, fmt.Errorf("issue %s does not exist", key)
	}
	return fields, nil
}

func (f *fakeTracker) AddAttachment(ctx context.Context, key string, payload []byte, filename string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("attach", key); err != nil {
		return err
	}
	f.attachments = append(f.attachments, attachment{Key: key, Filename: filename, Payload: string(payload)})
	return nil
}

func (f *fakeTracker) AddComment(ctx context.Context, key, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("comment", key); err != nil {
		return err
	}
	f.comments[key] = append(f.comments[key], body)
	return nil
}

func (f *fakeTracker) UpdateField(ctx context.Context, key, field string, value any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("update", key); err != nil {
		return err
	}
	f.updates = append(f.updates, fieldUpdate{Key: key, Field: field, Value: value})
	return nil
}

func (f *fakeTracker) Transition(ctx context.Context, key, transitionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("transition", key); err != nil {
		return err
	}
	f.transitions[key] = transitionID
	return nil
}

func (f *fakeTracker) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// mutationCount is the number of write calls made against key.
func (f *fakeTracker) mutationCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.comments[key])
	if _, ok := f.transitions[key]; ok {
		n++
	}
	for _, a := range f.attachments {
		if a.Key == key {
			n++
		}
	}
	for _, u := range f.updates {
		if u.Key == key {
			n++
		}
	}
	return n
}

type fakeAccounts map[string]types.AccountRecord

func (f fakeAccounts) Lookup(ctx context.Context, key string) (types.AccountRecord, error) {
	rec, ok := f[key]
	if !ok {
		return types.AccountRecord{}, fmt.Errorf("ticket %s not found in sheet Sheet1", key)
	}
	return rec, nil
}

type fakeSession struct {
	mu        sync.Mutex
	cwd       string
	chdirErr  error
	uploadErr map[string]error // by remote name
	hidden    map[string]bool  // names left out of listings
	uploads   []string
	closed    bool
}

func (s *fakeSession) ChangeDirectory(dir string) error {
	if s.chdirErr != nil {
		return s.chdirErr
	}
	s.cwd = dir
	return nil
}

func (s *fakeSession) WorkingDirectory() string { return s.cwd }

func (s *fakeSession) Upload(ctx context.Context, localPath, remotePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.uploadErr[remotePath]; err != nil {
		return err
	}
	s.uploads = append(s.uploads, remotePath)
	return nil
}

func (s *fakeSession) ListAttributes(ctx context.Context) ([]transfer.FileAttributes, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []transfer.FileAttributes
	ts := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	for _, name := range s.uploads {
		if s.hidden[name] {
			continue
		}
		out = append(out, transfer.FileAttributes{Name: name, AccessTime: ts, ModifyTime: ts, Size: 2048})
	}
	return out, nil
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

type fakeDialer struct {
	session    *fakeSession
	connectErr error

	calls        int
	keyPath      string
	keyExisted   bool
	keyContent   string
	lastEndpoint transfer.Endpoint
}

func (d *fakeDialer) Connect(ctx context.Context, ep transfer.Endpoint) (transfer.Session, error) {
	d.calls++
	d.lastEndpoint = ep
	d.keyPath = ep.PrivateKeyPath
	if data, err := os.ReadFile(ep.PrivateKeyPath); err == nil {
		d.keyExisted = true
		d.keyContent = string(data)
	}
	if d.connectErr != nil {
		return nil, d.connectErr
	}
	return d.session, nil
}

type fakeMailer struct {
	mu      sync.Mutex
	sent    []notify.Message
	failFor map[string]error // by market id found in the body
	panicOn string
}

func (m *fakeMailer) Send(ctx context.Context, msg notify.Message) ([]byte, error) {
	if m.panicOn != "" && strings.Contains(msg.Body, "Market ID: "+m.panicOn) {
		panic("relay client crashed")
	}
	for id, err := range m.failFor {
		if strings.Contains(msg.Body, "Market ID: "+id) {
			return nil, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return []byte("Subject: " + msg.Subject + "\r\n\r\n" + msg.Body), nil
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}
