package image

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Valid(t *testing.T) {
	tests := []struct {
		input string
		name  string
		tag   string
	}{
		{"alpine:latest", "alpine", "latest"},
		{"busybox:1.36", "busybox", "1.36"},
		{"ubuntu:22.04", "ubuntu", "22.04"},
	}

	for _, tt := range tests {
		ref, err := Parse(tt.input)
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.name, ref.Name)
		assert.Equal(t, tt.tag, ref.Tag)
		assert.Equal(t, tt.input, ref.String())
	}
}

func TestParse_Repository(t *testing.T) {
	ref, err := Parse("alpine:latest")
	require.NoError(t, err)
	assert.Equal(t, "library/alpine", ref.Repository())
}

func TestParse_Invalid(t *testing.T) {
	inputs := []string{
		"",
		"alpine",         // no tag
		"alpine:",        // empty tag
		":latest",        // empty name
		"alpine:3:18",    // two colons
		"alp ine:latest", // invalid name characters
		"alpine:la test",
	}

	for _, input := range inputs {
		_, err := Parse(input)
		require.Error(t, err, "input %q", input)
		assert.ErrorIs(t, err, ErrInvalidReference, "input %q", input)
	}
}
