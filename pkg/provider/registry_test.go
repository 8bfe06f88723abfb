package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Builtins(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"anthropic", "llama", "openai"}, r.Names())

	caller, err := r.Build("openai", Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "openai", caller.ID())
}

func TestRegistry_UnknownProvider(t *testing.T) {
	r := NewRegistry()
	_, err := r.Build("gemini", Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown provider "gemini"`)
}

func TestRegistry_CustomProvider(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("echo", func(cfg Config) (Caller, error) {
		return &fakeCaller{id: "echo", model: cfg.Model, fn: func(int) (*Result, error) {
			return &Result{Provider: "echo"}, nil
		}}, nil
	}))

	caller, err := r.Build("echo", Config{Model: "echo-1"})
	require.NoError(t, err)

	res, err := caller.Call(context.Background(), "p", "s", CallOptions{})
	require.NoError(t, err)
	assert.Equal(t, "echo", res.Provider)
}

func TestRegistry_DuplicateRejected(t *testing.T) {
	r := NewRegistry()
	err := r.Register("openai", func(cfg Config) (Caller, error) { return NewOpenAICaller(cfg) })
	assert.Error(t, err)
}

func TestRegistry_RejectsEmpty(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Register("", nil))
}
