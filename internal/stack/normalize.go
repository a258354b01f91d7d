package stack

import (
	"github.com/slok/stackrun/internal/model"
)

// Normalize converts the command specs into runner process descriptors.
// Specs without a command are dropped, names are truncated to the prefix length
// and the tunnel env is applied over the env only when tunneling is enabled.
func Normalize(specs []model.CommandSpec, tunnelEnabled bool, prefixLength int) []model.Process {
	procs := make([]model.Process, 0, len(specs))
	for _, spec := range specs {
		if !spec.HasCommand() {
			continue
		}

		p := model.Process{
			Index:   len(procs),
			Command: *spec.Command,
			Env:     effectiveEnv(spec, tunnelEnabled),
		}
		if spec.Name != nil {
			p.Name = Truncate(*spec.Name, prefixLength)
		}
		if spec.Cwd != nil {
			p.Cwd = *spec.Cwd
		}
		if spec.PrefixColor != nil {
			p.PrefixColor = *spec.PrefixColor
		}
		if spec.IPC != nil {
			p.IPC = *spec.IPC
		}

		procs = append(procs, p)
	}

	return procs
}

func effectiveEnv(spec model.CommandSpec, tunnelEnabled bool) model.Env {
	if !tunnelEnabled || len(spec.TunnelEnv) == 0 {
		return spec.Env.Clone()
	}
	return spec.Env.Merge(spec.TunnelEnv)
}

// Truncate returns the first n characters of a name. A non positive n doesn't truncate.
func Truncate(name string, n int) string {
	if n <= 0 {
		return name
	}

	r := []rune(name)
	if len(r) <= n {
		return name
	}
	return string(r[:n])
}
