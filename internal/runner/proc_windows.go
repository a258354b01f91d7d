//go:build windows

package runner

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

var shellCmd = []string{"cmd", "/C"}

func parseSignal(name string) (os.Signal, error) {
	switch strings.ToUpper(name) {
	case "SIGTERM", "SIGKILL", "SIGINT", "TERM", "KILL", "INT":
		return os.Kill, nil
	}
	return nil, fmt.Errorf("unsupported signal %q", name)
}

func setProcessGroup(_ *exec.Cmd) {}

func signalProcess(cmd *exec.Cmd, _ os.Signal) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}

func exitCode(state *os.ProcessState) int {
	if state == nil {
		return -1
	}
	return state.ExitCode()
}
