package jvm

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"wasdeploy/pkg/logging"
)

const subsystem = "JVM"

// execCommandContext is a variable to allow mocking in tests
var execCommandContext = exec.CommandContext

// Property names holding a JMX connector address.
const (
	LocalConnectorAddressProperty = "com.sun.management.jmxremote.localConnectorAddress"
)

// agent counters published by the management agent, e.g.
// sun.management.JMXConnectorServer.0.address
var agentAddressCounter = regexp.MustCompile(`^sun\.management\.JMXConnectorServer(\.\d+)?\.address$`)

// Descriptor is one running JVM as reported by jps.
type Descriptor struct {
	ID          string
	DisplayName string
}

// Tools runs the JDK diagnostic commands. An empty JavaHome uses the
// commands found on PATH.
type Tools struct {
	JavaHome string
}

func (t Tools) command(name string) string {
	if t.JavaHome == "" {
		return name
	}
	return filepath.Join(t.JavaHome, "bin", name)
}

// List enumerates the JVMs visible to the current user.
func (t Tools) List(ctx context.Context) ([]Descriptor, error) {
	cmd := execCommandContext(ctx, t.command("jps"), "-l", "-m")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list JVMs: %w", err)
	}
	return parseJPS(output), nil
}

func parseJPS(output []byte) []Descriptor {
	var vms []Descriptor
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		id, name, _ := strings.Cut(line, " ")
		vms = append(vms, Descriptor{ID: id, DisplayName: strings.TrimSpace(name)})
	}
	return vms
}

// SystemProperties attaches to the JVM and reads its system properties.
func (t Tools) SystemProperties(ctx context.Context, pid string) (map[string]string, error) {
	output, err := t.jcmd(ctx, pid, "VM.system_properties")
	if err != nil {
		return nil, err
	}
	return parseProperties(output), nil
}

// AgentProperties attaches to the JVM and reads the management agent's
// properties. Connector addresses are reported under
// LocalConnectorAddressProperty whatever counter published them.
func (t Tools) AgentProperties(ctx context.Context, pid string) (map[string]string, error) {
	output, err := t.jcmd(ctx, pid, "PerfCounter.print")
	if err != nil {
		return nil, err
	}
	props := map[string]string{}
	for key, value := range parseProperties(output) {
		value = strings.Trim(value, `"`)
		props[key] = value
		if agentAddressCounter.MatchString(key) {
			if _, ok := props[LocalConnectorAddressProperty]; !ok {
				props[LocalConnectorAddressProperty] = value
			}
		}
	}
	return props, nil
}

func (t Tools) jcmd(ctx context.Context, pid, command string) ([]byte, error) {
	cmd := execCommandContext(ctx, t.command("jcmd"), pid, command)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("failed to attach to JVM %s: %w\nOutput: %s", pid, err, strings.TrimSpace(string(output)))
	}
	logging.Debug(subsystem, "jcmd %s %s returned %d bytes", pid, command, len(output))
	return output, nil
}

// parseProperties reads java.util.Properties style output, skipping the
// "<pid>:" header jcmd prints and comment lines.
func parseProperties(output []byte) map[string]string {
	props := map[string]string{}
	scanner := bufio.NewScanner(bytes.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' || line[0] == '!' || isHeader(line) {
			continue
		}
		idx := separatorIndex(line)
		if idx <= 0 {
			continue
		}
		key := unescape(strings.TrimSpace(line[:idx]))
		props[key] = unescape(strings.TrimSpace(line[idx+1:]))
	}
	return props
}

func isHeader(line string) bool {
	pid, ok := strings.CutSuffix(line, ":")
	if !ok || pid == "" {
		return false
	}
	for _, r := range pid {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// separatorIndex finds the first unescaped '=' or ':'.
func separatorIndex(line string) int {
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '\\':
			i++
		case '=', ':':
			return i
		}
	}
	return -1
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
