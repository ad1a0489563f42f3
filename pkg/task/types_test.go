package task_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/grimoirelab-go/core/pkg/task"
)

func TestStatus_NonTerminal(t *testing.T) {
	nonTerminal := []task.Status{task.StatusEnqueued, task.StatusRunning, task.StatusRecovery}
	terminal := []task.Status{task.StatusNew, task.StatusCompleted, task.StatusFailed, task.StatusCanceled}

	for _, s := range nonTerminal {
		assert.True(t, s.NonTerminal(), "expected %s to be non-terminal", s)
	}
	for _, s := range terminal {
		assert.False(t, s.NonTerminal(), "expected %s to be terminal", s)
	}
}

func TestJobStatus_Terminal(t *testing.T) {
	terminal := []task.JobStatus{task.JobComplete, task.JobFailed, task.JobCanceled}
	nonTerminal := []task.JobStatus{task.JobEnqueued, task.JobRunning}

	for _, s := range terminal {
		assert.True(t, s.Terminal(), "expected %s to be terminal", s)
	}
	for _, s := range nonTerminal {
		assert.False(t, s.Terminal(), "expected %s to be non-terminal", s)
	}
}

func TestTask_BrokerKey(t *testing.T) {
	tk := &task.Task{}
	key := tk.BrokerKey()
	assert.Contains(t, key, "grimoire:task:")
}
