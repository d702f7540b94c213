// Package detect probes the environment for optional dependencies of the test suite:
// Python packages, accelerators and ONNX Runtime execution providers.
package detect

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/asteroid-belt/testkit/internal/config"
	"github.com/asteroid-belt/testkit/internal/hash"
	"github.com/asteroid-belt/testkit/internal/log"
	"github.com/asteroid-belt/testkit/internal/probecache"
	"github.com/asteroid-belt/testkit/pkg/version"
)

// moduleScript checks that every module in argv[1] (comma separated) can be found and
// prints the version of the first distribution in argv[2] that is installed.
const moduleScript = `import importlib.util, sys
for name in filter(None, sys.argv[1].split(",")):
    try:
        found = importlib.util.find_spec(name) is not None
    except Exception:
        found = False
    if not found:
        print("missing:" + name)
        sys.exit(1)
installed = ""
try:
    import importlib.metadata as metadata
    for dist in filter(None, sys.argv[2].split(",")):
        try:
            installed = metadata.version(dist)
            break
        except Exception:
            pass
except ImportError:
    pass
print("version:" + installed)`

// DetectionResult holds the outcome of probing one dependency.
type DetectionResult struct {
	Dependency Dependency
	Detected   bool
	Version    string    // Installed version, when it could be read
	Python     string    // Interpreter used for the probe
	Reason     string    // Why the dependency is considered missing
	Cached     bool      // Result came from the probe cache
	CheckedAt  time.Time // When the probe ran
}

// Satisfies reports whether the detected version meets a semver constraint.
// A missing dependency never satisfies a constraint.
func (r DetectionResult) Satisfies(constraint string) (bool, error) {
	if !r.Detected {
		return false, nil
	}
	if r.Version == "" {
		return false, fmt.Errorf("%w: %s", ErrNoVersion, r.Dependency)
	}
	return version.Satisfies(r.Version, constraint)
}

// Cache stores probe results between runs. *probecache.Cache implements it.
type Cache interface {
	Get(id string, ttl time.Duration) (*probecache.Entry, bool, error)
	Put(e *probecache.Entry) error
}

// Detector probes dependencies and remembers the results for its lifetime.
// It is safe for concurrent use.
type Detector struct {
	python  config.PythonConfig
	runner  Runner
	cache   Cache
	ttl     time.Duration
	group   singleflight.Group
	mu      sync.RWMutex
	results map[Dependency]DetectionResult
}

// Option configures a Detector.
type Option func(*Detector)

// WithRunner replaces the command runner.
func WithRunner(r Runner) Option {
	return func(d *Detector) {
		d.runner = r
	}
}

// WithCache stores results in c for ttl. A nil cache or non-positive ttl disables caching.
func WithCache(c Cache, ttl time.Duration) Option {
	return func(d *Detector) {
		d.cache = c
		d.ttl = ttl
	}
}

// New creates a Detector for the interpreter configured in cfg.
func New(cfg *config.Config, opts ...Option) *Detector {
	d := &Detector{
		python:  cfg.Python,
		runner:  ExecRunner{},
		results: make(map[Dependency]DetectionResult),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.python.Workers <= 0 {
		d.python.Workers = 1
	}
	return d
}

// Detect probes dep, reusing an earlier result when there is one.
// Probe failures are reported through DetectionResult.Reason, never as errors.
//
// Concurrent callers share one probe. A caller whose ctx ends stops waiting and gets
// an interrupted result; the probe carries on for the others and is remembered.
func (d *Detector) Detect(ctx context.Context, dep Dependency) DetectionResult {
	if !dep.IsValid() {
		return DetectionResult{Dependency: dep, Reason: ErrUnknownDependency.Error()}
	}

	if res, ok := d.remembered(dep); ok {
		return res
	}
	if err := ctx.Err(); err != nil {
		return interrupted(dep, err)
	}

	probeCtx := context.WithoutCancel(ctx)
	ch := d.group.DoChan(string(dep), func() (interface{}, error) {
		// Another caller may have finished between the check above and DoChan.
		if res, ok := d.remembered(dep); ok {
			return res, nil
		}

		res := d.probe(probeCtx, dep)
		d.mu.Lock()
		d.results[dep] = res
		d.mu.Unlock()
		return res, nil
	})

	select {
	case r := <-ch:
		return r.Val.(DetectionResult)
	case <-ctx.Done():
		return interrupted(dep, ctx.Err())
	}
}

func interrupted(dep Dependency, err error) DetectionResult {
	return DetectionResult{
		Dependency: dep,
		Reason:     fmt.Sprintf("probe interrupted: %v", err),
		CheckedAt:  time.Now(),
	}
}

func (d *Detector) remembered(dep Dependency) (DetectionResult, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	res, ok := d.results[dep]
	return res, ok
}

// DetectMany probes deps concurrently and returns results in the same order.
func (d *Detector) DetectMany(ctx context.Context, deps []Dependency) []DetectionResult {
	results := make([]DetectionResult, len(deps))

	var g errgroup.Group
	g.SetLimit(d.python.Workers)
	for i, dep := range deps {
		g.Go(func() error {
			results[i] = d.Detect(ctx, dep)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// DetectAll probes every known dependency.
func (d *Detector) DetectAll(ctx context.Context) []DetectionResult {
	return d.DetectMany(ctx, AllDependencies())
}

// Forget drops remembered results so the next Detect probes again.
func (d *Detector) Forget() {
	d.mu.Lock()
	d.results = make(map[Dependency]DetectionResult)
	d.mu.Unlock()
}

func (d *Detector) probe(ctx context.Context, dep Dependency) DetectionResult {
	info := dep.Info()
	res := DetectionResult{Dependency: dep, CheckedAt: time.Now()}

	for _, req := range info.Requires {
		r := d.Detect(ctx, req)
		if !r.Detected {
			res.Python = r.Python
			res.Reason = fmt.Sprintf("requires %s: %s", req, r.Reason)
			return res
		}
	}

	python, err := d.runner.LookPath(d.python.Executable)
	if err != nil {
		res.Reason = fmt.Sprintf("python interpreter %q not found", d.python.Executable)
		log.Debugf("detect %s: %s", dep, res.Reason)
		return res
	}
	res.Python = python

	id := hash.Key(python, string(dep), info.fingerprint())
	if cached, ok := d.lookup(id); ok {
		log.Debugf("detect %s: cached (detected=%t)", dep, cached.Detected)
		return cached
	}

	cancel := context.CancelFunc(func() {})
	if d.python.ProbeTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, d.python.ProbeTimeout)
	}
	defer cancel()

	res.Detected, res.Version, res.Reason = d.run(ctx, python, info)
	if ctx.Err() != nil && !res.Detected {
		res.Reason = fmt.Sprintf("probe interrupted: %v", ctx.Err())
	}
	log.Debugf("detect %s: detected=%t version=%q reason=%q", dep, res.Detected, res.Version, res.Reason)

	if ctx.Err() == nil {
		d.store(id, res)
	}
	return res
}

// run executes the module, script and argument checks of info in that order.
func (d *Detector) run(ctx context.Context, python string, info DependencyInfo) (bool, string, string) {
	var installed string

	if len(info.Modules) > 0 {
		out, err := d.runner.Run(ctx, python, "-c", moduleScript,
			strings.Join(info.Modules, ","), strings.Join(info.Distributions, ","))
		missing, v := parseModuleOutput(out)
		if err != nil || missing != "" {
			if missing == "" {
				missing = strings.Join(info.Modules, ", ")
			}
			return false, "", fmt.Sprintf("python module %s not found", missing)
		}
		installed = v
	}

	if info.Script != "" {
		out, err := d.runner.Run(ctx, python, "-c", info.Script)
		if err != nil {
			return false, installed, failure("check", out, err)
		}
	}

	if len(info.PythonArgs) > 0 {
		out, err := d.runner.Run(ctx, python, info.PythonArgs...)
		if err != nil {
			return false, installed, failure(strings.Join(info.PythonArgs, " "), out, err)
		}
	}

	return true, installed, ""
}

func (d *Detector) lookup(id string) (DetectionResult, bool) {
	if d.cache == nil || d.ttl <= 0 {
		return DetectionResult{}, false
	}
	e, ok, err := d.cache.Get(id, d.ttl)
	if err != nil {
		log.Debugf("probe cache get %s: %v", id, err)
		return DetectionResult{}, false
	}
	if !ok {
		return DetectionResult{}, false
	}
	return DetectionResult{
		Dependency: Dependency(e.Dependency),
		Detected:   e.Detected,
		Version:    e.Version,
		Python:     e.Python,
		Reason:     e.Reason,
		Cached:     true,
		CheckedAt:  e.CheckedAt,
	}, true
}

func (d *Detector) store(id string, res DetectionResult) {
	if d.cache == nil || d.ttl <= 0 {
		return
	}
	err := d.cache.Put(&probecache.Entry{
		ID:         id,
		Dependency: string(res.Dependency),
		Python:     res.Python,
		Detected:   res.Detected,
		Version:    res.Version,
		Reason:     res.Reason,
		CheckedAt:  res.CheckedAt,
	})
	if err != nil {
		log.Debugf("probe cache put %s: %v", id, err)
	}
}

// parseModuleOutput extracts the missing module and version lines of moduleScript.
func parseModuleOutput(out []byte) (missing, installed string) {
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case strings.HasPrefix(line, "missing:"):
			missing = strings.TrimPrefix(line, "missing:")
		case strings.HasPrefix(line, "version:"):
			installed = strings.TrimPrefix(line, "version:")
		}
	}
	return missing, installed
}

// failure summarises a failed check with the last line of its output.
func failure(what string, out []byte, err error) string {
	var exitErr interface{ ExitCode() int }
	detail := err.Error()
	if errors.As(err, &exitErr) {
		detail = fmt.Sprintf("exit status %d", exitErr.ExitCode())
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if last := strings.TrimSpace(lines[len(lines)-1]); last != "" {
		detail += ": " + last
	}
	return fmt.Sprintf("%s failed (%s)", what, detail)
}
