package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adcs-fsw/rwnullspace/pkg/rwnullspace"
)

func writeModuleConfig(t *testing.T, thirdRow string) string {
	t.Helper()
	content := `
version: "1.0"
config_id: "cli-test"
rw_null_space:
  num_wheels: 4
  omega_gain: 0.5
  gs_matrix: [1, 0, 0, 0.57735,
              0, 1, 0, 0.57735,
              ` + thirdRow + `]
  input_rw_commands: "controlTorqueRaw"
  input_rw_speeds: "reactionwheel_speeds"
  output_control_name: "controlTorque"
`
	path := filepath.Join(t.TempDir(), "rw_null_space.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestPrintProjector(t *testing.T) {
	path := writeModuleConfig(t, "0, 0, 1, 0.57735")

	var out bytes.Buffer
	if err := printProjector(&out, path); err != nil {
		t.Fatalf("printProjector failed: %v", err)
	}
	for _, want := range []string{"config cli-test", "4 wheels", "P =", "cond(GGt)"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Output missing %q:\n%s", want, out.String())
		}
	}
}

func TestPrintProjectorDegenerate(t *testing.T) {
	path := writeModuleConfig(t, "0, 0, 0, 0")

	var out bytes.Buffer
	if err := printProjector(&out, path); !errors.Is(err, rwnullspace.ErrDegenerateGeometry) {
		t.Errorf("Expected ErrDegenerateGeometry, got %v", err)
	}
}

func TestRootCommandRequiresConfigFlag(t *testing.T) {
	root := newRootCommand()
	root.SetArgs([]string{"projector"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	if err := root.Execute(); err == nil {
		t.Error("Expected missing --config error")
	}
}
