package planerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRefError_IsReference(t *testing.T) {
	err := &RefError{Kind: "dependency", Task: "goals", Target: "brif"}
	assert.ErrorIs(t, err, ErrReference)
	assert.Contains(t, err.Error(), "goals")
	assert.Contains(t, err.Error(), "brif")
}

func TestRefError_NoTask(t *testing.T) {
	err := &RefError{Kind: "resource", Target: "Bob"}
	assert.Equal(t, `unknown resource "Bob"`, err.Error())
}

func TestWrapTask(t *testing.T) {
	inner := Shape("bad resources %v", 42)
	err := WrapTask("Test1", "goals", inner)

	var te *TaskError
	assert.True(t, errors.As(err, &te))
	assert.Equal(t, "goals", te.Task)
	assert.ErrorIs(t, err, ErrInputShape)
	assert.Contains(t, err.Error(), `project "Test1"`)

	// already wrapped errors keep their original context
	again := WrapTask("Other", "x", err)
	assert.Same(t, err, again)

	assert.NoError(t, WrapTask("p", "t", nil))
}

func TestDomain(t *testing.T) {
	err := Domain("resource %s needs a batch size", "Martin")
	assert.ErrorIs(t, err, ErrDomain)
	assert.NotErrorIs(t, err, ErrInputShape)
}
