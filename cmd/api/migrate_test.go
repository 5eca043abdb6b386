package main

import (
	"testing"

	"github.com/spf13/cobra"
)

func TestRollbackSteps(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    int
		wantErr bool
	}{
		{"default", nil, 1, false},
		{"long flag", []string{"--steps", "3"}, 3, false},
		{"short flag", []string{"-n", "2"}, 2, false},
		{"zero", []string{"--steps", "0"}, 0, true},
		{"negative", []string{"--steps", "-1"}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{Use: "down"}
			cmd.Flags().IntP("steps", "n", 1, "")
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatalf("ParseFlags() error = %v", err)
			}

			got, err := rollbackSteps(cmd)
			if (err != nil) != tt.wantErr {
				t.Fatalf("rollbackSteps() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("rollbackSteps() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRollbackSteps_UndefinedFlag(t *testing.T) {
	if _, err := rollbackSteps(&cobra.Command{Use: "down"}); err == nil {
		t.Fatal("expected error when --steps is not defined")
	}
}
