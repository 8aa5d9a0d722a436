package monitor

import (
	"context"
	"slices"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/cwygoda/jobwatch/internal/domain"
)

// memRepo implements the domain repositories in memory.
type memRepo struct {
	mu    sync.Mutex
	watch []domain.WatchCriteria
	seen  []domain.Fingerprint
	apps  []domain.Application
}

func (m *memRepo) LoadWatchList(ctx context.Context) ([]domain.WatchCriteria, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.watch), nil
}

func (m *memRepo) SaveWatchList(ctx context.Context, items []domain.WatchCriteria) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watch = slices.Clone(items)
	return nil
}

func (m *memRepo) LoadSeen(ctx context.Context) ([]domain.Fingerprint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.seen), nil
}

func (m *memRepo) SaveSeen(ctx context.Context, fps []domain.Fingerprint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen = append(m.seen, fps...)
	return nil
}

func (m *memRepo) LoadApplications(ctx context.Context) ([]domain.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.apps), nil
}

func (m *memRepo) AppendApplications(ctx context.Context, apps []domain.Application) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apps = append(m.apps, apps...)
	return nil
}

// platform is the scripted behavior of one fake platform.
type platform struct {
	jobs     []domain.Job
	result   domain.ApplyResult
	initErr  error
	applyErr error
	// onApply, when set, runs inside Apply.
	onApply func()
	// block, when set, makes Search wait until it is closed or ctx ends.
	block chan struct{}
}

type call struct {
	platform string
	op       string
	arg      string
}

// fakeProvider records every connector call.
type fakeProvider struct {
	mu        sync.Mutex
	platforms map[string]*platform
	calls     []call
	searching chan string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		platforms: make(map[string]*platform),
		searching: make(chan string, 100),
	}
}

func (p *fakeProvider) set(id string, pl *platform) {
	p.mu.Lock()
	p.platforms[id] = pl
	p.mu.Unlock()
}

func (p *fakeProvider) Acquire(id string) (domain.Connector, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pl, ok := p.platforms[id]
	if !ok {
		return nil, errors.Wrapf(domain.ErrUnknownPlatform, "%q", id)
	}
	return &fakeConnector{id: id, pl: pl, p: p}, nil
}

func (p *fakeProvider) Platforms() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var ids []string
	for id := range p.platforms {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (p *fakeProvider) record(c call) {
	p.mu.Lock()
	p.calls = append(p.calls, c)
	p.mu.Unlock()
}

func (p *fakeProvider) count(op string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		if c.op == op {
			n++
		}
	}
	return n
}

func (p *fakeProvider) applied() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var urls []string
	for _, c := range p.calls {
		if c.op == "apply" {
			urls = append(urls, c.arg)
		}
	}
	return urls
}

type fakeConnector struct {
	id string
	pl *platform
	p  *fakeProvider
}

func (c *fakeConnector) Initialize(ctx context.Context) error {
	c.p.record(call{platform: c.id, op: "init"})
	return c.pl.initErr
}

func (c *fakeConnector) Search(ctx context.Context, keywords, location string) ([]domain.Job, error) {
	c.p.record(call{platform: c.id, op: "search", arg: keywords})
	c.p.searching <- keywords
	if c.pl.block != nil {
		select {
		case <-c.pl.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return slices.Clone(c.pl.jobs), nil
}

func (c *fakeConnector) Apply(ctx context.Context, url, resumePath, coverLetter string) (domain.ApplyResult, error) {
	c.p.record(call{platform: c.id, op: "apply", arg: url})
	if c.pl.onApply != nil {
		c.pl.onApply()
	}
	return c.pl.result, c.pl.applyErr
}

func (c *fakeConnector) Close() error {
	c.p.record(call{platform: c.id, op: "close"})
	return nil
}

type alert struct {
	email string
	jobs  []domain.Job
}

// fakeNotifier records notifications.
type fakeNotifier struct {
	mu     sync.Mutex
	alerts []alert
	apps   []domain.Application
}

func (n *fakeNotifier) SendNewJobAlert(ctx context.Context, email string, jobs []domain.Job) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert{email: email, jobs: jobs})
	return true
}

func (n *fakeNotifier) SendApplicationNotification(ctx context.Context, email string, app domain.Application, status domain.ApplicationStatus) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.apps = append(n.apps, app)
	return true
}

func (n *fakeNotifier) alertCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.alerts)
}
