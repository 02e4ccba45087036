package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"wasdeploy/internal/api"

	"github.com/spf13/cobra"
)

func TestSetVersion(t *testing.T) {
	testVersion := "1.2.3-test"
	SetVersion(testVersion)

	if GetVersion() != testVersion {
		t.Errorf("Expected version to be %s, got %s", testVersion, GetVersion())
	}
}

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "wasdeploy" {
		t.Errorf("Expected Use to be 'wasdeploy', got %s", rootCmd.Use)
	}

	if rootCmd.Short == "" {
		t.Error("Expected Short description to be set")
	}

	if rootCmd.Long == "" {
		t.Error("Expected Long description to be set")
	}

	if !rootCmd.SilenceUsage {
		t.Error("Expected SilenceUsage to be true")
	}

	flag := rootCmd.PersistentFlags().Lookup("config")
	if flag == nil || flag.DefValue != "wasdeploy.yaml" {
		t.Errorf("Expected --config flag defaulting to wasdeploy.yaml, got %v", flag)
	}
	if rootCmd.PersistentFlags().Lookup("debug") == nil {
		t.Error("Expected --debug flag to be registered")
	}
}

func TestVersionTemplate(t *testing.T) {
	testCmd := &cobra.Command{
		Use:     "test",
		Version: "1.0.0",
	}
	testCmd.SetVersionTemplate(`{{printf "wasdeploy version %s\n" .Version}}`)

	var buf bytes.Buffer
	testCmd.SetOut(&buf)
	testCmd.SetArgs([]string{"--version"})
	if err := testCmd.Execute(); err != nil {
		t.Fatalf("Error executing version command: %v", err)
	}

	expected := "wasdeploy version 1.0.0\n"
	if buf.String() != expected {
		t.Errorf("Expected version output %q, got %q", expected, buf.String())
	}
}

func TestSubcommands(t *testing.T) {
	expectedCommands := []string{"version", "self-update", "deploy", "undeploy", "check"}
	foundCommands := make(map[string]bool)

	for _, cmd := range rootCmd.Commands() {
		foundCommands[cmd.Name()] = true
	}

	for _, expected := range expectedCommands {
		if !foundCommands[expected] {
			t.Errorf("Expected subcommand %s to be registered", expected)
		}
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"lifecycle", &api.ContainerError{Op: api.OpLifecycle, Message: "Could not start container"}, ExitCodeLifecycle},
		{"deploy", &api.ContainerError{Op: api.OpDeploy, Message: "Could not deploy application"}, ExitCodeDeploy},
		{"undeploy", &api.ContainerError{Op: api.OpUndeploy, Message: "Could not undeploy shop.war"}, ExitCodeUndeploy},
		{"wrapped", fmt.Errorf("failed to set up container: %w", &api.ContainerError{Op: api.OpLifecycle}), ExitCodeLifecycle},
		{"joined", errors.Join(&api.ContainerError{Op: api.OpDeploy}, errors.New("stop failed")), ExitCodeDeploy},
		{"plain", errors.New("unsupported output format: xml"), ExitCodeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getExitCode(tt.err); got != tt.want {
				t.Errorf("getExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRootCommandHelp(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"--help"})
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	}()

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Error executing help command: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "wasdeploy") {
		t.Errorf("Help output should contain 'wasdeploy'. Got: %q", output)
	}
	if !strings.Contains(output, "deploys a WAR or EAR") {
		t.Errorf("Help output should contain the long description. Got: %q", output)
	}
}
