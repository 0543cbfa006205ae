package main

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulateCommand_Flags(t *testing.T) {
	cmd := newSimulateCommand()
	require.NoError(t, cmd.ParseFlags([]string{
		"--url", "http://engine:9000",
		"--users", "5,6",
		"--duration", "3s",
		"--zipf", "1.5",
	}))

	url, _ := cmd.Flags().GetString("url")
	users, _ := cmd.Flags().GetIntSlice("users")
	duration, _ := cmd.Flags().GetDuration("duration")
	zipf, _ := cmd.Flags().GetFloat64("zipf")
	assert.Equal(t, "http://engine:9000", url)
	assert.Equal(t, []int{5, 6}, users)
	assert.Equal(t, 3*time.Second, duration)
	assert.Equal(t, 1.5, zipf)
}

func TestSimulateCommand_NeedsSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	cmd := newSimulateCommand()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--duration", "1ms"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}
