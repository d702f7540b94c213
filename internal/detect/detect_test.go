package detect

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asteroid-belt/testkit/internal/config"
	"github.com/asteroid-belt/testkit/internal/probecache"
)

var errExit = errors.New("exit status 1")

// fakeRunner pretends to be a Python interpreter with a fixed set of packages.
type fakeRunner struct {
	mu      sync.Mutex
	python  string            // resolved interpreter path; empty means not installed
	modules map[string]string // importable module -> installed version
	scripts map[string]bool   // -c script -> exits 0
	args    map[string]bool   // joined interpreter args -> exits 0
	calls   []string

	// When gate is set, Run signals entered and blocks until gate is closed.
	gate    chan struct{}
	entered chan struct{}
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		python:  "/venv/bin/python3",
		modules: map[string]string{},
		scripts: map[string]bool{},
		args:    map[string]bool{},
	}
}

func (f *fakeRunner) LookPath(name string) (string, error) {
	if f.python == "" {
		return "", exec.ErrNotFound
	}
	return f.python, nil
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if f.gate != nil {
		f.entered <- struct{}{}
		<-f.gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if len(args) >= 3 && args[0] == "-c" && args[1] == moduleScript {
		f.calls = append(f.calls, "modules:"+args[2])
	} else {
		f.calls = append(f.calls, strings.Join(args, " "))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch {
	case len(args) >= 3 && args[0] == "-c" && args[1] == moduleScript:
		mods := strings.Split(args[2], ",")
		for _, m := range mods {
			if _, ok := f.modules[m]; !ok {
				return []byte("missing:" + m + "\n"), errExit
			}
		}
		return []byte("version:" + f.modules[mods[0]] + "\n"), nil
	case len(args) == 2 && args[0] == "-c":
		if f.scripts[args[1]] {
			return nil, nil
		}
		return []byte("Traceback (most recent call last):\nAssertionError\n"), errExit
	default:
		if f.args[strings.Join(args, " ")] {
			return []byte("configured\n"), nil
		}
		return []byte("error: could not build extension\n"), errExit
	}
}

func (f *fakeRunner) callCount(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func newTestDetector(r Runner, opts ...Option) *Detector {
	return New(config.DefaultConfig(), append([]Option{WithRunner(r)}, opts...)...)
}

func TestDetect_ModuleInstalled(t *testing.T) {
	r := newFakeRunner()
	r.modules["timm"] = "0.9.12"

	res := newTestDetector(r).Detect(context.Background(), DepTimm)

	assert.True(t, res.Detected)
	assert.Equal(t, "0.9.12", res.Version)
	assert.Equal(t, "/venv/bin/python3", res.Python)
	assert.Empty(t, res.Reason)
	assert.False(t, res.Cached)
}

func TestDetect_ModuleMissing(t *testing.T) {
	r := newFakeRunner()

	res := newTestDetector(r).Detect(context.Background(), DepSentenceTransformers)

	assert.False(t, res.Detected)
	assert.Equal(t, "python module sentence_transformers not found", res.Reason)
}

func TestDetect_NoInterpreter(t *testing.T) {
	r := newFakeRunner()
	r.python = ""

	res := newTestDetector(r).Detect(context.Background(), DepAccelerate)

	assert.False(t, res.Detected)
	assert.Contains(t, res.Reason, `python interpreter "python3" not found`)
	assert.Empty(t, r.calls)
}

func TestDetect_UnknownDependency(t *testing.T) {
	res := newTestDetector(newFakeRunner()).Detect(context.Background(), Dependency("tensorflow"))

	assert.False(t, res.Detected)
	assert.Equal(t, ErrUnknownDependency.Error(), res.Reason)
}

func TestDetect_CUDA(t *testing.T) {
	t.Run("requires torch", func(t *testing.T) {
		r := newFakeRunner()

		res := newTestDetector(r).Detect(context.Background(), DepCUDA)

		assert.False(t, res.Detected)
		assert.Equal(t, "requires torch: python module torch not found", res.Reason)
	})

	t.Run("torch without gpu", func(t *testing.T) {
		r := newFakeRunner()
		r.modules["torch"] = "2.1.0+cpu"

		res := newTestDetector(r).Detect(context.Background(), DepCUDA)

		assert.False(t, res.Detected)
		assert.Equal(t, "check failed (exit status 1: AssertionError)", res.Reason)
	})

	t.Run("gpu visible", func(t *testing.T) {
		r := newFakeRunner()
		r.modules["torch"] = "2.1.0+cu121"
		r.scripts[cudaScript] = true

		res := newTestDetector(r).Detect(context.Background(), DepCUDA)

		assert.True(t, res.Detected)
	})
}

func TestDetect_ORTROCm(t *testing.T) {
	r := newFakeRunner()
	r.modules["onnxruntime"] = "1.16.3"
	r.scripts[rocmScript] = true

	res := newTestDetector(r).Detect(context.Background(), DepORTROCm)

	assert.True(t, res.Detected)
}

func TestDetect_ORTTraining(t *testing.T) {
	t.Run("torch_ort not installed", func(t *testing.T) {
		r := newFakeRunner()
		r.modules["onnxruntime.training"] = "1.16.3"

		res := newTestDetector(r).Detect(context.Background(), DepORTTraining)

		assert.False(t, res.Detected)
		assert.Equal(t, "requires torch-ort: python module torch_ort not found", res.Reason)
	})

	t.Run("configure fails", func(t *testing.T) {
		r := newFakeRunner()
		r.modules["onnxruntime.training"] = "1.16.3"
		r.modules["torch_ort"] = "1.16.0"

		res := newTestDetector(r).Detect(context.Background(), DepORTTraining)

		assert.False(t, res.Detected)
		assert.Contains(t, res.Reason, "-m torch_ort.configure failed")
		assert.Contains(t, res.Reason, "could not build extension")
	})

	t.Run("configured", func(t *testing.T) {
		r := newFakeRunner()
		r.modules["onnxruntime.training"] = "1.16.3"
		r.modules["torch_ort"] = "1.16.0"
		r.args["-m torch_ort.configure"] = true

		res := newTestDetector(r).Detect(context.Background(), DepORTTraining)

		assert.True(t, res.Detected)
		assert.Equal(t, "1.16.3", res.Version)
	})
}

func TestDetect_Memoized(t *testing.T) {
	r := newFakeRunner()
	r.modules["datasets"] = "2.16.1"
	d := newTestDetector(r)

	first := d.Detect(context.Background(), DepDatasets)
	second := d.Detect(context.Background(), DepDatasets)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, r.callCount("modules:datasets"))

	d.Forget()
	d.Detect(context.Background(), DepDatasets)
	assert.Equal(t, 2, r.callCount("modules:datasets"))
}

func TestDetect_CancelledIsNotRemembered(t *testing.T) {
	r := newFakeRunner()
	r.modules["diffusers"] = "0.25.0"
	d := newTestDetector(r)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := d.Detect(ctx, DepDiffusers)
	assert.False(t, res.Detected)
	assert.Contains(t, res.Reason, "probe interrupted")

	res = d.Detect(context.Background(), DepDiffusers)
	assert.True(t, res.Detected)
}

func TestDetect_CancelledCallerDoesNotAffectOthers(t *testing.T) {
	r := newFakeRunner()
	r.modules["timm"] = "0.9.12"
	r.gate = make(chan struct{})
	r.entered = make(chan struct{}, 8)
	d := newTestDetector(r)

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()
	resA := make(chan DetectionResult, 1)
	go func() { resA <- d.Detect(ctxA, DepTimm) }()
	<-r.entered

	resB := make(chan DetectionResult, 1)
	go func() { resB <- d.Detect(context.Background(), DepTimm) }()

	cancelA()
	a := <-resA
	assert.False(t, a.Detected)
	assert.Contains(t, a.Reason, "probe interrupted")

	close(r.gate)
	b := <-resB
	assert.True(t, b.Detected, b.Reason)
	assert.Equal(t, "0.9.12", b.Version)

	assert.True(t, d.Detect(context.Background(), DepTimm).Detected)
	assert.Equal(t, 1, r.callCount("modules:timm"))
}

func TestFakeRunner_CallCountIsExact(t *testing.T) {
	r := newFakeRunner()
	r.modules["torch"] = "2.1.0"
	d := newTestDetector(r)

	d.Detect(context.Background(), DepTorch)
	d.Detect(context.Background(), DepTorchORT)

	assert.Equal(t, 1, r.callCount("modules:torch"))
	assert.Equal(t, 1, r.callCount("modules:torch_ort"))
}

func TestDetectAll(t *testing.T) {
	r := newFakeRunner()
	r.modules["torch"] = "2.1.0"
	r.modules["accelerate"] = "0.25.0"
	d := newTestDetector(r)

	results := d.DetectAll(context.Background())

	require.Len(t, results, len(AllDependencies()))
	for i, dep := range AllDependencies() {
		assert.Equal(t, dep, results[i].Dependency, "results keep registry order")
	}
	assert.True(t, results[slices.Index(AllDependencies(), DepTorch)].Detected)
	assert.True(t, results[slices.Index(AllDependencies(), DepAccelerate)].Detected)
	assert.False(t, results[slices.Index(AllDependencies(), DepTimm)].Detected)
	assert.Equal(t, 1, r.callCount("modules:torch"), "torch is probed once although cuda requires it")
}

func TestDetect_UsesProbeCache(t *testing.T) {
	cache, err := probecache.Open(probecache.DefaultConfig(filepath.Join(t.TempDir(), "probes.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	r := newFakeRunner()
	r.modules["timm"] = "0.9.12"
	first := newTestDetector(r, WithCache(cache, time.Hour)).Detect(context.Background(), DepTimm)
	require.True(t, first.Detected)
	require.False(t, first.Cached)

	other := newFakeRunner()
	second := newTestDetector(other, WithCache(cache, time.Hour)).Detect(context.Background(), DepTimm)

	assert.True(t, second.Cached)
	assert.True(t, second.Detected)
	assert.Equal(t, "0.9.12", second.Version)
	assert.Empty(t, other.calls)
}

func TestDetect_CacheDisabled(t *testing.T) {
	cache, err := probecache.Open(probecache.DefaultConfig(filepath.Join(t.TempDir(), "probes.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	r := newFakeRunner()
	r.modules["timm"] = "0.9.12"
	newTestDetector(r, WithCache(cache, 0)).Detect(context.Background(), DepTimm)

	entries, err := cache.List()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDetectionResult_Satisfies(t *testing.T) {
	res := DetectionResult{Dependency: DepAccelerate, Detected: true, Version: "0.25.0"}

	ok, err := res.Satisfies(">= 0.20")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = res.Satisfies(">= 1.0")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = DetectionResult{Dependency: DepAccelerate}.Satisfies(">= 0.20")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = DetectionResult{Dependency: DepCUDA, Detected: true}.Satisfies(">= 11")
	assert.ErrorIs(t, err, ErrNoVersion)
}

func TestParseModuleOutput(t *testing.T) {
	missing, installed := parseModuleOutput([]byte("warning: noise\nversion:4.36.2\n"))
	assert.Empty(t, missing)
	assert.Equal(t, "4.36.2", installed)

	missing, installed = parseModuleOutput([]byte("missing:auto_gptq\n"))
	assert.Equal(t, "auto_gptq", missing)
	assert.Empty(t, installed)
}

func TestFailure(t *testing.T) {
	assert.Equal(t, "check failed (boom)", failure("check", nil, errors.New("boom")))
	assert.Equal(t, "check failed (boom: last line)", failure("check", []byte("first\nlast line\n"), errors.New("boom")))
}
