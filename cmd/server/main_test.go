package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "inkpost dev\n", out.String())
}

func TestRootCommand_InvalidConfigFails(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("INKPOST_AUTH_JWTSECRET", "")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--env-file", ""})

	assert.Error(t, cmd.Execute())
}
