package testutil

import (
	"fmt"
	"sync"
	"testing"

	"github.com/asteroid-belt/testkit/internal/config"
	"github.com/asteroid-belt/testkit/internal/detect"
	"github.com/asteroid-belt/testkit/internal/log"
	"github.com/asteroid-belt/testkit/internal/probecache"
)

var (
	detectorMu sync.Mutex
	detector   *detect.Detector
)

// sharedDetector returns the process-wide detector, creating it on first use.
// Results are remembered for the life of the test binary.
func sharedDetector() *detect.Detector {
	detectorMu.Lock()
	defer detectorMu.Unlock()

	if detector != nil {
		return detector
	}

	cfg := loadConfig()
	var opts []detect.Option
	if cfg.Cache.Enabled() {
		cache, err := probecache.Open(probecache.DefaultConfig(config.GetPaths(cfg).ProbeCache))
		if err != nil {
			log.Debugf("probe cache unavailable: %v", err)
		} else {
			opts = append(opts, detect.WithCache(cache, cfg.Cache.TTL))
		}
	}
	detector = detect.New(cfg, opts...)
	return detector
}

// useDetector swaps the shared detector and returns a function restoring the old one.
func useDetector(d *detect.Detector) func() {
	detectorMu.Lock()
	defer detectorMu.Unlock()
	prev := detector
	detector = d
	return func() {
		detectorMu.Lock()
		defer detectorMu.Unlock()
		detector = prev
	}
}

func requireDependency(t testing.TB, dep detect.Dependency) detect.DetectionResult {
	t.Helper()
	res := sharedDetector().Detect(t.Context(), dep)
	if !res.Detected {
		t.Log(res.Reason)
		t.Skip(dep.Info().SkipReason)
	}
	return res
}

// RequireDependency skips the test unless the named dependency is available.
// Names are the identifiers printed by `testkit probe`, e.g. "timm" or "ort-training".
// An unknown name fails the test.
func RequireDependency(t testing.TB, name string) {
	t.Helper()
	dep, err := detect.ParseDependency(name)
	if err != nil {
		t.Fatalf("RequireDependency: %v", err)
		return
	}
	requireDependency(t, dep)
}

// RequireDependencyVersion skips the test unless the named dependency is installed
// at a version meeting constraint, e.g. ">= 0.20". Pre-releases only match constraints
// that mention one.
func RequireDependencyVersion(t testing.TB, name, constraint string) {
	t.Helper()
	dep, err := detect.ParseDependency(name)
	if err != nil {
		t.Fatalf("RequireDependencyVersion: %v", err)
		return
	}
	res := requireDependency(t, dep)
	if !res.Detected {
		return
	}

	ok, err := res.Satisfies(constraint)
	if err != nil {
		t.Fatalf("RequireDependencyVersion(%s, %q): %v", name, constraint, err)
		return
	}
	if !ok {
		t.Skip(fmt.Sprintf("test requires %s %s (found %s)", dep.Info().Name, constraint, res.Version))
	}
}

// RequireAccelerate skips the test unless accelerate is installed.
func RequireAccelerate(t testing.TB) {
	t.Helper()
	requireDependency(t, detect.DepAccelerate)
}

// RequireAutoGPTQ skips the test unless auto-gptq is installed.
func RequireAutoGPTQ(t testing.TB) {
	t.Helper()
	requireDependency(t, detect.DepAutoGPTQ)
}

// RequireTorchGPU skips the test unless PyTorch can see a CUDA device.
func RequireTorchGPU(t testing.TB) {
	t.Helper()
	requireDependency(t, detect.DepCUDA)
}

// RequireORTROCm skips the test unless ROCMExecutionProvider is ONNX Runtime's
// first available provider.
func RequireORTROCm(t testing.TB) {
	t.Helper()
	requireDependency(t, detect.DepORTROCm)
}

// RequireORTTraining skips the test unless onnxruntime-training and torch_ort are
// installed and `python -m torch_ort.configure` succeeds.
func RequireORTTraining(t testing.TB) {
	t.Helper()
	requireDependency(t, detect.DepORTTraining)
}

// RequireDiffusers skips the test unless diffusers is installed.
func RequireDiffusers(t testing.TB) {
	t.Helper()
	requireDependency(t, detect.DepDiffusers)
}

// RequireTimm skips the test unless timm is installed.
func RequireTimm(t testing.TB) {
	t.Helper()
	requireDependency(t, detect.DepTimm)
}

// RequireSentenceTransformers skips the test unless sentence-transformers is installed.
func RequireSentenceTransformers(t testing.TB) {
	t.Helper()
	requireDependency(t, detect.DepSentenceTransformers)
}

// RequireDatasets skips the test unless datasets is installed.
func RequireDatasets(t testing.TB) {
	t.Helper()
	requireDependency(t, detect.DepDatasets)
}
