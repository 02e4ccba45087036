package jvm

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockExecCommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	cs := []string{"-test.run=TestHelperProcess", "--", name}
	cs = append(cs, args...)
	cmd := exec.CommandContext(ctx, os.Args[0], cs...)
	cmd.Env = []string{"GO_WANT_HELPER_PROCESS=1"}
	return cmd
}

func withMockExec(t *testing.T) {
	old := execCommandContext
	execCommandContext = mockExecCommandContext
	t.Cleanup(func() { execCommandContext = old })
}

// TestHelperProcess is a helper process for mocking exec.Command
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	args := os.Args
	for i, arg := range args {
		if arg == "--" {
			args = args[i+1:]
			break
		}
	}
	cmd, args := filepath.Base(args[0]), args[1:]

	switch cmd {
	case "jps":
		fmt.Println("4711 /opt/wlp/lib/ws-launch.jar defaultServer")
		fmt.Println("4712 jdk.jcmd/sun.tools.jps.Jps -l -m")
		fmt.Println("")
		fmt.Println("4713")
		os.Exit(0)
	case "jcmd":
		if args[0] != "4711" {
			fmt.Println("com.sun.tools.attach.AttachNotSupportedException: Unable to open socket file")
			os.Exit(1)
		}
		fmt.Println("4711:")
		switch args[1] {
		case "VM.system_properties":
			fmt.Println("#Sun Oct 18 10:00:00 UTC 2026")
			fmt.Println("java.vm.vendor=IBM Corporation")
			fmt.Println(`wlp.install.dir=/opt/wlp/`)
			fmt.Println(`com.sun.management.jmxremote.localConnectorAddress=service\:jmx\:rest\://localhost\:9443/IBMJMXConnectorREST`)
		case "PerfCounter.print":
			fmt.Println(`sun.management.JMXConnectorServer.0.address="service:jmx:rmi://127.0.0.1/stub/rO0ABX"`)
			fmt.Println(`sun.rt.createVmBeginTime=1760781600000`)
		}
		os.Exit(0)
	}
	fmt.Fprintf(os.Stderr, "unknown command %s\n", cmd)
	os.Exit(2)
}

func TestTools_List(t *testing.T) {
	withMockExec(t)

	vms, err := Tools{JavaHome: "/opt/java"}.List(context.Background())
	require.NoError(t, err)
	require.Len(t, vms, 3)
	assert.Equal(t, Descriptor{ID: "4711", DisplayName: "/opt/wlp/lib/ws-launch.jar defaultServer"}, vms[0])
	assert.Equal(t, Descriptor{ID: "4713"}, vms[2])
}

func TestTools_SystemProperties(t *testing.T) {
	withMockExec(t)

	props, err := Tools{}.SystemProperties(context.Background(), "4711")
	require.NoError(t, err)
	assert.Equal(t, "IBM Corporation", props["java.vm.vendor"])
	assert.Equal(t, "service:jmx:rest://localhost:9443/IBMJMXConnectorREST", props[LocalConnectorAddressProperty])
	assert.NotContains(t, props, "4711")
}

func TestTools_AgentProperties(t *testing.T) {
	withMockExec(t)

	props, err := Tools{}.AgentProperties(context.Background(), "4711")
	require.NoError(t, err)
	assert.Equal(t, "service:jmx:rmi://127.0.0.1/stub/rO0ABX", props[LocalConnectorAddressProperty])
	assert.Equal(t, "1760781600000", props["sun.rt.createVmBeginTime"])
}

func TestTools_AttachFailure(t *testing.T) {
	withMockExec(t)

	_, err := Tools{}.SystemProperties(context.Background(), "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AttachNotSupportedException")
}

func TestParseProperties(t *testing.T) {
	props := parseProperties([]byte("a=1\n! comment\nb : two\nc\\=d=3\nline=x\\ty\n"))
	assert.Equal(t, map[string]string{"a": "1", "b": "two", "c=d": "3", "line": "x\ty"}, props)
}
