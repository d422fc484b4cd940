package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunRequiresQuestion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(nil, &stdout, &stderr)

	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr.String(), "requires at least 1 arg")
	assert.Empty(t, stdout.String())
}

func TestRunFailsFastWithoutCredentials(t *testing.T) {
	t.Setenv("COMPLETION_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "")

	var stdout, stderr bytes.Buffer
	code := run([]string{"What", "is", "photosynthesis?"}, &stdout, &stderr)

	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr.String(), "OPENAI_API_KEY")
	assert.Empty(t, stdout.String(), "no run may start")
}

func TestRunRejectsBadCounts(t *testing.T) {
	t.Setenv("COMPLETION_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("SEARCH_PROVIDER", "arxiv")

	var stdout, stderr bytes.Buffer
	code := run([]string{"--queries", "0", "q"}, &stdout, &stderr)

	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr.String(), "query count")
}
