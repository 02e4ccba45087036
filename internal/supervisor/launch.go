package supervisor

import (
	"path/filepath"
	"strings"
)

// ParseJVMArgs splits a JVM argument string on spaces. A token that does
// not start with "-" continues the previous argument, so values holding
// spaces survive, e.g. "-Dname=a b -Xmx1g" yields "-Dname=a b" and "-Xmx1g".
func ParseJVMArgs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	tokens := strings.Split(s, " ")
	if len(tokens) == 1 {
		return tokens
	}

	var args []string
	for _, tok := range tokens {
		if strings.TrimSpace(tok) == "" {
			continue
		}
		if strings.HasPrefix(tok, "-") || len(args) == 0 {
			args = append(args, tok)
			continue
		}
		args[len(args)-1] += " " + tok
	}
	return args
}

// LibertyCommand builds the command that starts serverName from the
// installation wlpHome with the java launcher of javaHome.
func LibertyCommand(javaHome, wlpHome, serverName, jvmArgs string) Command {
	args := []string{"-Dcom.ibm.ws.logging.console.log.level=INFO"}
	args = append(args, ParseJVMArgs(jvmArgs)...)
	args = append(args,
		"-javaagent:lib/bootstrap-agent.jar",
		"-jar", "lib/ws-launch.jar",
		serverName)

	return Command{
		Path: filepath.Join(javaHome, "bin", "java"),
		Args: args,
		Dir:  wlpHome,
	}
}
