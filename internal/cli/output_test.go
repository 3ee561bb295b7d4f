package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitError(t *testing.T) {
	inner := errors.New("disk full")

	err := WrapExitError(ExitFatal, "export", inner)
	assert.Equal(t, "export: disk full", err.Error())
	assert.ErrorIs(t, err, inner)

	plain := NewExitError(ExitPartial, "1 source(s) skipped, 0 failed")
	assert.Equal(t, "1 source(s) skipped, 0 failed", plain.Error())
	assert.Nil(t, plain.Unwrap())
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"partial", NewExitError(ExitPartial, "x"), ExitPartial},
		{"fatal", NewExitError(ExitFatal, "x"), ExitFatal},
		{"wrapped", fmt.Errorf("outer: %w", NewExitError(ExitPartial, "x")), ExitPartial},
		{"plain error", errors.New("unknown flag"), ExitFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestIsReported(t *testing.T) {
	err := NewExitError(ExitFatal, "x")
	assert.False(t, isReported(err))
	err.Reported = true
	assert.True(t, isReported(err))
	assert.False(t, isReported(errors.New("x")))
}

func TestOutputFormatter_JSON(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, f.Success(map[string]int{"rows": 3}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)
	assert.Equal(t, map[string]any{"rows": float64(3)}, resp.Data)

	buf.Reset()
	require.NoError(t, f.Error("DB002", "Store unreachable", nil))
	resp = CLIResponse{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "DB002", resp.Error.Code)
	assert.Equal(t, "Store unreachable", resp.Error.Message)
}

func TestOutputFormatter_Text(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, f.Error("EXP001", "Export file could not be written", "details"))
	assert.Equal(t, "Error [EXP001]: Export file could not be written\n", buf.String())

	buf.Reset()
	f.Verbose = true
	require.NoError(t, f.Error("EXP001", "Export file could not be written", "permission denied"))
	assert.Contains(t, buf.String(), "Details: permission denied")
}

func TestOutputFormatter_Render(t *testing.T) {
	text := func(w io.Writer) error {
		_, err := io.WriteString(w, "human\n")
		return err
	}

	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}
	require.NoError(t, f.Render("data", text))
	assert.Equal(t, "human\n", buf.String())

	buf.Reset()
	f.Format = "json"
	require.NoError(t, f.Render("data", text))
	assert.JSONEq(t, `{"status":"ok","data":"data"}`, buf.String())
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut}

	f.VerboseLog("hidden %d", 1)
	assert.Empty(t, errOut.String())

	f.Verbose = true
	f.VerboseLog("shown %d", 2)
	assert.Equal(t, "shown 2\n", errOut.String())
	assert.Empty(t, out.String(), "diagnostics never reach the JSON stream")
}
