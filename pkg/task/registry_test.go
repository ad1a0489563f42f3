package task_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grimoirelab-go/core/pkg/task"
)

type echoDescriptor struct{ queue string }

func (d *echoDescriptor) PrepareJobParameters(t *task.Task, lastJob *task.Job) (map[string]any, error) {
	return map[string]any{"echo": true}, nil
}
func (d *echoDescriptor) CanBeRetried(t *task.Task) bool { return true }
func (d *echoDescriptor) DefaultJobQueue() string        { return d.queue }
func (d *echoDescriptor) JobFunction(ctx context.Context, params map[string]any) (map[string]any, error) {
	return params, nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := task.NewRegistry()
	r.Register("echo", &echoDescriptor{queue: "default"})

	d, ok := r.Get("echo")
	require.True(t, ok)
	assert.Equal(t, "default", d.DefaultJobQueue())

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestRegistry_RegisterPanicsOnDuplicate(t *testing.T) {
	r := task.NewRegistry()
	r.Register("echo", &echoDescriptor{})
	assert.Panics(t, func() {
		r.Register("echo", &echoDescriptor{})
	})
}

func TestRegistry_MustGetPanicsOnUnknown(t *testing.T) {
	r := task.NewRegistry()
	assert.Panics(t, func() {
		r.MustGet("missing")
	})
}

func TestRegistry_Dispatch(t *testing.T) {
	r := task.NewRegistry()
	r.Register("echo", &echoDescriptor{queue: "default"})

	out, err := r.Dispatch(context.Background(), "echo", map[string]any{"x": 1})
	require.NoError(t, err)
	assert.Equal(t, 1, out["x"])
}

func TestRegistry_Types(t *testing.T) {
	r := task.NewRegistry()
	r.Register("b", &echoDescriptor{})
	r.Register("a", &echoDescriptor{})
	assert.Equal(t, []string{"a", "b"}, r.Types())
}
