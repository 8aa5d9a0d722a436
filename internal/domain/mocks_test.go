package domain

import (
	"context"
	"slices"
	"sync"

	"github.com/cockroachdb/errors"
)

// memRepo implements all three repositories in memory for testing.
type memRepo struct {
	mu      sync.Mutex
	watch   []WatchCriteria
	seen    []Fingerprint
	apps    []Application
	saveErr error
}

func (m *memRepo) LoadWatchList(ctx context.Context) ([]WatchCriteria, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.watch), nil
}

func (m *memRepo) SaveWatchList(ctx context.Context, items []WatchCriteria) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.watch = slices.Clone(items)
	return nil
}

func (m *memRepo) LoadSeen(ctx context.Context) ([]Fingerprint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.seen), nil
}

func (m *memRepo) SaveSeen(ctx context.Context, fps []Fingerprint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	for _, fp := range fps {
		if !slices.Contains(m.seen, fp) {
			m.seen = append(m.seen, fp)
		}
	}
	return nil
}

func (m *memRepo) LoadApplications(ctx context.Context) ([]Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.apps), nil
}

func (m *memRepo) AppendApplications(ctx context.Context, apps []Application) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.apps = append(m.apps, apps...)
	return nil
}

func (m *memRepo) failWith(err error) {
	m.mu.Lock()
	m.saveErr = err
	m.mu.Unlock()
}

var errDisk = errors.New("disk full")

// fakeConnector returns canned results.
type fakeConnector struct {
	jobs     []Job
	result   ApplyResult
	initErr  error
	applyErr error
	onApply  func()
	applied  *[]string
	closed   *int
}

func (f *fakeConnector) Initialize(ctx context.Context) error { return f.initErr }

func (f *fakeConnector) Search(ctx context.Context, keywords, location string) ([]Job, error) {
	return f.jobs, nil
}

func (f *fakeConnector) Apply(ctx context.Context, url, resumePath, coverLetter string) (ApplyResult, error) {
	*f.applied = append(*f.applied, url)
	if f.onApply != nil {
		f.onApply()
	}
	return f.result, f.applyErr
}

func (f *fakeConnector) Close() error {
	*f.closed++
	return nil
}

// fakeProvider hands out fakeConnectors per platform.
type fakeProvider struct {
	conns   map[string]*fakeConnector
	applied []string
	closed  int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{conns: make(map[string]*fakeConnector)}
}

func (p *fakeProvider) add(platform string, c *fakeConnector) {
	c.applied = &p.applied
	c.closed = &p.closed
	p.conns[platform] = c
}

func (p *fakeProvider) Acquire(platform string) (Connector, error) {
	c, ok := p.conns[platform]
	if !ok {
		return nil, ErrUnknownPlatform
	}
	return c, nil
}

func (p *fakeProvider) Platforms() []string {
	var out []string
	for k := range p.conns {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
