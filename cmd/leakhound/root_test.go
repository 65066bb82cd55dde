package main

import (
	"testing"
)

// TestNewRootCmd tests the root command creation.
func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "leakhound" {
			t.Errorf("expected use 'leakhound', got %q", cmd.Use)
		}
	})

	t.Run("has short description", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" {
			t.Error("expected non-empty short description")
		}
	})

	t.Run("has long description", func(t *testing.T) {
		t.Parallel()
		if cmd.Long == "" {
			t.Error("expected non-empty long description")
		}
	})

	t.Run("has version", func(t *testing.T) {
		t.Parallel()
		if cmd.Version == "" {
			t.Error("expected non-empty version")
		}
	})

	t.Run("has verbose flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.PersistentFlags().Lookup("verbose")
		if flag == nil {
			t.Fatal("expected verbose flag")
		}
		if flag.Shorthand != "v" {
			t.Errorf("expected shorthand 'v', got %q", flag.Shorthand)
		}
		if flag.DefValue != "false" {
			t.Errorf("expected default 'false', got %q", flag.DefValue)
		}
	})

	t.Run("has config and data-dir flags", func(t *testing.T) {
		t.Parallel()
		if cmd.PersistentFlags().Lookup("config") == nil {
			t.Error("expected config flag")
		}
		if cmd.PersistentFlags().Lookup("data-dir") == nil {
			t.Error("expected data-dir flag")
		}
	})

	t.Run("has subcommands", func(t *testing.T) {
		t.Parallel()

		wanted := map[string]bool{
			"serve":                false,
			"run [target-name...]": false,
			"target":               false,
			"watch":                false,
			"search <query>":       false,
			"plugin":               false,
			"report":               false,
			"init":                 false,
			"version":              false,
		}
		for _, sub := range cmd.Commands() {
			if _, ok := wanted[sub.Use]; ok {
				wanted[sub.Use] = true
			}
		}
		for use, found := range wanted {
			if !found {
				t.Errorf("expected %q subcommand", use)
			}
		}
	})

	t.Run("silences usage and errors", func(t *testing.T) {
		t.Parallel()
		if !cmd.SilenceUsage {
			t.Error("expected SilenceUsage to be true")
		}
		if !cmd.SilenceErrors {
			t.Error("expected SilenceErrors to be true")
		}
	})
}
