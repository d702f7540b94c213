package detect

import (
	"fmt"
	"strings"
)

// Dependency identifies an optional dependency that tests can require.
type Dependency string

const (
	DepAccelerate           Dependency = "accelerate"
	DepAutoGPTQ             Dependency = "auto-gptq"
	DepDiffusers            Dependency = "diffusers"
	DepTimm                 Dependency = "timm"
	DepSentenceTransformers Dependency = "sentence-transformers"
	DepDatasets             Dependency = "datasets"
	DepTorch                Dependency = "torch"
	DepCUDA                 Dependency = "cuda"
	DepONNXRuntime          Dependency = "onnxruntime"
	DepORTROCm              Dependency = "ort-rocm"
	DepTorchORT             Dependency = "torch-ort"
	DepORTTraining          Dependency = "ort-training"
)

// DependencyInfo describes how a dependency is probed.
type DependencyInfo struct {
	// Human readable name
	Name string
	// Reason given when a test is skipped because the dependency is missing
	SkipReason string
	// Python modules that must be importable (checked with importlib.util.find_spec)
	Modules []string
	// Distribution names tried in order to read the installed version
	Distributions []string
	// Python source run with -c that must exit 0
	Script string
	// Interpreter arguments that must exit 0, e.g. -m torch_ort.configure
	PythonArgs []string
	// Dependencies probed first; any missing one makes this one missing too
	Requires []Dependency
}

// fingerprint identifies the probe definition, so cached results are dropped when
// the way a dependency is probed changes.
func (i DependencyInfo) fingerprint() string {
	return strings.Join([]string{
		strings.Join(i.Modules, ","),
		strings.Join(i.Distributions, ","),
		i.Script,
		strings.Join(i.PythonArgs, " "),
	}, "|")
}

const cudaScript = `import sys
import torch
sys.exit(0 if torch.cuda.is_available() else 1)`

const rocmScript = `import sys
import onnxruntime as ort
providers = ort.get_available_providers()
sys.exit(0 if providers and providers[0] == "ROCMExecutionProvider" else 1)`

var registry = map[Dependency]DependencyInfo{
	DepAccelerate: {
		Name:          "accelerate",
		SkipReason:    "test requires accelerate",
		Modules:       []string{"accelerate"},
		Distributions: []string{"accelerate"},
	},
	DepAutoGPTQ: {
		Name:          "auto-gptq",
		SkipReason:    "test requires auto-gptq",
		Modules:       []string{"auto_gptq"},
		Distributions: []string{"auto-gptq", "auto_gptq"},
	},
	DepDiffusers: {
		Name:          "diffusers",
		SkipReason:    "test requires diffusers",
		Modules:       []string{"diffusers"},
		Distributions: []string{"diffusers"},
	},
	DepTimm: {
		Name:          "timm",
		SkipReason:    "test requires timm",
		Modules:       []string{"timm"},
		Distributions: []string{"timm"},
	},
	DepSentenceTransformers: {
		Name:          "sentence-transformers",
		SkipReason:    "test requires sentence-transformers",
		Modules:       []string{"sentence_transformers"},
		Distributions: []string{"sentence-transformers"},
	},
	DepDatasets: {
		Name:          "datasets",
		SkipReason:    "test requires datasets",
		Modules:       []string{"datasets"},
		Distributions: []string{"datasets"},
	},
	DepTorch: {
		Name:          "PyTorch",
		SkipReason:    "test requires torch",
		Modules:       []string{"torch"},
		Distributions: []string{"torch"},
	},
	DepCUDA: {
		Name:       "CUDA",
		SkipReason: "test requires CUDA",
		Script:     cudaScript,
		Requires:   []Dependency{DepTorch},
	},
	DepONNXRuntime: {
		Name:          "ONNX Runtime",
		SkipReason:    "test requires onnxruntime",
		Modules:       []string{"onnxruntime"},
		Distributions: []string{"onnxruntime", "onnxruntime-gpu", "onnxruntime-training"},
	},
	DepORTROCm: {
		Name:       "ROCMExecutionProvider",
		SkipReason: "test requires ROCMExecutionProvider",
		Script:     rocmScript,
		Requires:   []Dependency{DepONNXRuntime},
	},
	DepTorchORT: {
		Name:          "torch_ort",
		SkipReason:    "test requires torch_ort correctly installed and configured",
		Modules:       []string{"torch_ort"},
		Distributions: []string{"torch-ort"},
		PythonArgs:    []string{"-m", "torch_ort.configure"},
	},
	DepORTTraining: {
		Name:          "ONNX Runtime training",
		SkipReason:    "test requires torch_ort correctly installed and configured",
		Modules:       []string{"onnxruntime.training"},
		Distributions: []string{"onnxruntime-training"},
		Requires:      []Dependency{DepTorchORT},
	},
}

// AllDependencies returns every known dependency in a stable order.
func AllDependencies() []Dependency {
	return []Dependency{
		DepAccelerate,
		DepAutoGPTQ,
		DepDiffusers,
		DepTimm,
		DepSentenceTransformers,
		DepDatasets,
		DepTorch,
		DepCUDA,
		DepONNXRuntime,
		DepORTROCm,
		DepTorchORT,
		DepORTTraining,
	}
}

// Info returns the probe definition of d. Unknown dependencies get a zero value.
func (d Dependency) Info() DependencyInfo {
	return registry[d]
}

// IsValid checks if d is a known dependency.
func (d Dependency) IsValid() bool {
	_, ok := registry[d]
	return ok
}

// String returns the dependency identifier.
func (d Dependency) String() string {
	return string(d)
}

// ParseDependency looks a dependency up by identifier, accepting "_" for "-".
func ParseDependency(name string) (Dependency, error) {
	d := Dependency(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-"))
	if !d.IsValid() {
		names := make([]string, 0, len(registry))
		for _, dep := range AllDependencies() {
			names = append(names, string(dep))
		}
		return "", fmt.Errorf("%w: %q (known: %s)", ErrUnknownDependency, name, strings.Join(names, ", "))
	}
	return d, nil
}
