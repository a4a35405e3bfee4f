package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUniqueTargets(t *testing.T) {
	assert.Nil(t, UniqueTargets(nil))
	assert.Equal(t, []string{}, UniqueTargets([]string{}))
	assert.Equal(t, []string{"b", "a", "c"}, UniqueTargets([]string{"b", "a", "b", "c", "a"}))
}

func TestRemoteTargets(t *testing.T) {
	c := RunConfiguration{Targets: []string{"a"}, RemoteUpdate: true}
	assert.Equal(t, []string{"a"}, c.RemoteTargets())
	c.RemoteUpdate = false
	assert.Nil(t, c.RemoteTargets())
}
