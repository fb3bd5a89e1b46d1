package pinctrl

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubRun(t *testing.T, fn func(args ...string) ([]byte, error)) {
	t.Helper()
	orig := Run
	Run = fn
	t.Cleanup(func() { Run = orig })
}

func TestParseGetAllOutput(t *testing.T) {
	sample := `
 0: ip    pu | hi // ID_SDA/GPIO0 = input
 1: ip    pu | hi // ID_SCL/GPIO1 = input
 2: no    pu | -- // GPIO2 = none
12: op dh pd | hi // GPIO12 = output
14: op dl pn | lo // GPIO14 = output
25: op dl pd | lo // GPIO25 = output
26: op dl pn | lo // GPIO26 = output
27: op dh pn | hi // GPIO27 = output
`

	states, err := parseGetOutput(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, states, 8)

	ps := states[27]
	assert.Equal(t, "hi", ps.Level)
	assert.Equal(t, "op", ps.Mode)
	assert.Equal(t, "pn", ps.Pull)
	assert.Equal(t, "dh", ps.Drive)

	assert.Equal(t, "--", states[2].Level)
	assert.Equal(t, "no", states[2].Mode)

	ps = states[12]
	assert.Equal(t, "pd", ps.Pull)
	assert.Equal(t, "dh", ps.Drive)
}

func TestParseLevelOutput(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"0", false},
		{"1", true},
		{"\n1\n", true},
		{"\n0\n", false},
	}
	for _, tc := range tests {
		result, err := parseLevelOutput(tc.input)
		require.NoError(t, err, "input %q", tc.input)
		assert.Equal(t, tc.expected, result, "input %q", tc.input)
	}

	_, err := parseLevelOutput("garbage")
	assert.Error(t, err)
}

func TestDriveOutputArgs(t *testing.T) {
	var calls [][]string
	stubRun(t, func(args ...string) ([]byte, error) {
		calls = append(calls, args)
		return nil, nil
	})

	require.NoError(t, DriveOutput(27, true))
	require.NoError(t, DriveOutput(12, false))

	assert.Equal(t, [][]string{
		{"set", "27", "op", "pn", "dh"},
		{"set", "12", "op", "pn", "dl"},
	}, calls)
}

func TestSetPinError(t *testing.T) {
	stubRun(t, func(args ...string) ([]byte, error) {
		return []byte("permission denied"), errors.New("exit status 1")
	})

	err := SetPin(27, "op")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestReadLevelAndPin(t *testing.T) {
	stubRun(t, func(args ...string) ([]byte, error) {
		switch args[0] {
		case "lev":
			return []byte("1\n"), nil
		case "get":
			return []byte("27: op dh pn | hi // GPIO27 = output\n"), nil
		}
		return nil, errors.New("unexpected")
	})

	level, err := ReadLevel(27)
	require.NoError(t, err)
	assert.True(t, level)

	ps, err := ReadPin(27)
	require.NoError(t, err)
	assert.Equal(t, "hi", ps.Level)

	_, err = ReadPin(5)
	assert.Error(t, err)
}
