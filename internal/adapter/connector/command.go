package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cwygoda/jobwatch/internal/config"
	"github.com/cwygoda/jobwatch/internal/domain"
	"github.com/kballard/go-shellquote"
)

// MaxResults caps the jobs returned by one search.
const MaxResults = 10

// DefaultTimeout bounds a single search or apply invocation.
const DefaultTimeout = 2 * time.Minute

// CommandConnector drives an external scraper program.
//
// Search runs `<command> search --keywords K --location L` and expects a
// JSON array of jobs on stdout. Apply runs `<command> apply --url U
// --resume R --cover-letter C` and expects {"success":bool,"message":string}.
type CommandConnector struct {
	platform string
	name     string
	command  string
	args     []string
	dir      string
	timeout  time.Duration

	mu       sync.Mutex
	resolved string
	closed   bool
}

// NewCommandConnector creates a connector from config. The command line is
// split with shell quoting rules.
func NewCommandConnector(cc config.ConnectorConfig) (*CommandConnector, error) {
	words, err := shellquote.Split(cc.Command)
	if err != nil {
		return nil, errors.Wrapf(err, "parse command for %s", cc.Platform)
	}
	if len(words) == 0 {
		return nil, errors.Newf("connector %s: command is empty", cc.Platform)
	}

	timeout := cc.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	name := cc.Name
	if name == "" {
		name = cc.Platform
	}

	return &CommandConnector{
		platform: strings.ToLower(cc.Platform),
		name:     name,
		command:  words[0],
		args:     words[1:],
		dir:      config.ExpandPath(cc.Dir),
		timeout:  timeout,
	}, nil
}

// Platform returns the platform id.
func (c *CommandConnector) Platform() string {
	return c.platform
}

// Initialize resolves the executable.
func (c *CommandConnector) Initialize(ctx context.Context) error {
	path, err := exec.LookPath(c.command)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "%s: resolve %s", c.platform, c.command), domain.ErrConnectorInit)
	}
	c.mu.Lock()
	c.resolved = path
	c.closed = false
	c.mu.Unlock()
	return nil
}

// Search runs a search and returns at most MaxResults jobs.
func (c *CommandConnector) Search(ctx context.Context, keywords, location string) ([]domain.Job, error) {
	out, err := c.run(ctx, "search", "--keywords", keywords, "--location", location)
	if err != nil {
		return nil, errors.Mark(err, domain.ErrSearch)
	}

	var jobs []domain.Job
	if err := json.Unmarshal(out, &jobs); err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "%s: decode search output", c.platform), domain.ErrSearch)
	}
	if len(jobs) > MaxResults {
		jobs = jobs[:MaxResults]
	}
	for i := range jobs {
		if jobs[i].Platform == "" {
			jobs[i].Platform = c.name
		}
	}
	return jobs, nil
}

// Apply submits an application for url.
func (c *CommandConnector) Apply(ctx context.Context, url, resumePath, coverLetter string) (domain.ApplyResult, error) {
	out, err := c.run(ctx, "apply", "--url", url, "--resume", resumePath, "--cover-letter", coverLetter)
	if err != nil {
		return domain.ApplyResult{}, errors.Mark(err, domain.ErrApply)
	}

	var res domain.ApplyResult
	if err := json.Unmarshal(out, &res); err != nil {
		return domain.ApplyResult{}, errors.Mark(errors.Wrapf(err, "%s: decode apply output", c.platform), domain.ErrApply)
	}
	return res, nil
}

// Close releases the connector. Calling it more than once is safe.
func (c *CommandConnector) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *CommandConnector) run(ctx context.Context, verb string, flags ...string) ([]byte, error) {
	c.mu.Lock()
	path, closed := c.resolved, c.closed
	c.mu.Unlock()
	if path == "" || closed {
		return nil, errors.Newf("%s: connector not initialized", c.platform)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	args := append(append(append([]string{}, c.args...), verb), flags...)
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Dir = c.dir
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(err, "%s %s failed: %s", c.platform, verb, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
