package config

import "testing"

func TestExpandEnv(t *testing.T) {
	t.Setenv("MSIVAL_TEST_KITS", `C:\Kits`)
	t.Setenv("MSIVAL_TEST_EMPTY", "")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"set var", "cube: ${MSIVAL_TEST_KITS}", `cube: C:\Kits`},
		{"unset var", "cube: ${MSIVAL_TEST_UNSET_12345}", "cube: "},
		{"default when unset", "cube: ${MSIVAL_TEST_UNSET_12345:-darice.cub}", "cube: darice.cub"},
		{"default ignored when set", "cube: ${MSIVAL_TEST_KITS:-darice.cub}", `cube: C:\Kits`},
		{"default when empty", "cube: ${MSIVAL_TEST_EMPTY:-darice.cub}", "cube: darice.cub"},
		{"empty default", "cube: ${MSIVAL_TEST_UNSET_12345:-}", "cube: "},
		{"multiple", "${MSIVAL_TEST_KITS}/${MSIVAL_TEST_UNSET_12345:-bin}", `C:\Kits/bin`},
		{"escape", "literal: $${MSIVAL_TEST_KITS}", "literal: ${MSIVAL_TEST_KITS}"},
		{"no vars", "verbose: true", "verbose: true"},
		{"bare dollar", "cost: $5", "cost: $5"},
		{"invalid name", "x: ${1BAD}", "x: ${1BAD}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpandEnv(tt.input); got != tt.want {
				t.Errorf("ExpandEnv(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExpandEnv_NestedInYAML(t *testing.T) {
	t.Setenv("MSIVAL_TEST_REDIS", "redis://cache:6379/0")

	input := "adapter:\n  type: redis\n  url: ${MSIVAL_TEST_REDIS}\n  channel: ${MSIVAL_TEST_CHANNEL:-ci:msival}\n"
	want := "adapter:\n  type: redis\n  url: redis://cache:6379/0\n  channel: ci:msival\n"
	if got := ExpandEnv(input); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
