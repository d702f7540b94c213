package detect

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hasCycle reports whether following Requires from d revisits a dependency.
func hasCycle(d Dependency, path []Dependency) bool {
	if slices.Contains(path, d) {
		return true
	}
	for _, req := range d.Info().Requires {
		if hasCycle(req, append(slices.Clone(path), d)) {
			return true
		}
	}
	return false
}

func TestRegistry_Complete(t *testing.T) {
	all := AllDependencies()
	assert.Len(t, all, len(registry), "AllDependencies lists every registry entry")

	seen := make(map[Dependency]bool)
	for _, dep := range all {
		assert.False(t, seen[dep], "%s listed twice", dep)
		seen[dep] = true

		info := dep.Info()
		assert.True(t, dep.IsValid())
		assert.NotEmpty(t, info.Name, "%s has a name", dep)
		assert.NotEmpty(t, info.SkipReason, "%s has a skip reason", dep)
		assert.True(t, len(info.Modules) > 0 || info.Script != "" || len(info.PythonArgs) > 0,
			"%s has something to probe", dep)
		for _, req := range info.Requires {
			assert.True(t, req.IsValid(), "%s requires unknown %s", dep, req)
		}
		assert.False(t, hasCycle(dep, nil), "%s has a dependency cycle", dep)
	}
}

func TestRegistry_SkipReasons(t *testing.T) {
	tests := map[Dependency]string{
		DepAccelerate:           "test requires accelerate",
		DepAutoGPTQ:             "test requires auto-gptq",
		DepDiffusers:            "test requires diffusers",
		DepTimm:                 "test requires timm",
		DepSentenceTransformers: "test requires sentence-transformers",
		DepDatasets:             "test requires datasets",
		DepCUDA:                 "test requires CUDA",
		DepORTROCm:              "test requires ROCMExecutionProvider",
		DepORTTraining:          "test requires torch_ort correctly installed and configured",
	}

	for dep, want := range tests {
		t.Run(string(dep), func(t *testing.T) {
			assert.Equal(t, want, dep.Info().SkipReason)
		})
	}
}

func TestParseDependency(t *testing.T) {
	tests := []struct {
		input string
		want  Dependency
	}{
		{"timm", DepTimm},
		{"auto_gptq", DepAutoGPTQ},
		{" Sentence_Transformers ", DepSentenceTransformers},
		{"ort-training", DepORTTraining},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDependency(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseDependency("tensorflow")
	assert.ErrorIs(t, err, ErrUnknownDependency)
	assert.Contains(t, err.Error(), "accelerate")
}

func TestDependencyInfo_Fingerprint(t *testing.T) {
	assert.NotEqual(t, DepTimm.Info().fingerprint(), DepDatasets.Info().fingerprint())
	assert.Equal(t, DepTimm.Info().fingerprint(), DepTimm.Info().fingerprint())
}
