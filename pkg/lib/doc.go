// Package lib provides a Go SDK for running stackrun stacks programmatically.
//
// This package allows applications to launch a stack of concurrent local
// processes, with their before and after hooks and the optional Cloudflare
// tunnel, without shelling out to the stackrun CLI binary. It is useful for
// dev tooling written in Go (e.g a `mage` target or a test harness) that
// wants typed stack definitions instead of config files.
//
// # Quick Start
//
// Create a client, define a stack and run it:
//
//	client, err := lib.New(ctx, lib.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	cfg := lib.DefineConfig(lib.StackConfig{
//	    BeforeCommands: []string{"docker compose up -d"},
//	    Commands: []lib.CommandSpec{
//	        {Name: lib.Ptr("API"), Command: lib.Ptr("go run ./cmd/api")},
//	        {Name: lib.Ptr("WEB"), Command: lib.Ptr("npm run dev"), Cwd: lib.Ptr("web")},
//	    },
//	    AfterCommands: []string{"docker compose down"},
//	})
//
//	record, err := client.Run(ctx, cfg, nil)
//
// Run blocks until all the processes end. Cancel the context to stop them,
// the after hooks still run and the run is stored in the history.
//
// # Config Files
//
// Load the same config files the CLI uses with [LoadConfig]:
//
//	cfg, err := lib.LoadConfig(ctx, "stack.config")
//
// # Tunneling
//
// Commands with `url` and `tunnelUrl` are exposed through a Cloudflare tunnel
// when tunneling is enabled in the config or with [RunOpts].Tunnel. The tunnel
// agent is the stackrun binary, set [Config].Executable when it's not in PATH.
// Use [Client.Plan] to check what would be launched without running anything.
//
// # History
//
// Every run is stored with its processes final states:
//
//	runs, err := client.ListRuns(ctx, 10)
//	last, err := client.GetRun(ctx, "latest")
//
// Set [Config].NoHistory to keep the history in memory only.
//
// # Error Handling
//
// All errors can be checked with [errors.Is] against the sentinel errors:
//
//   - [ErrNotFound]: Run or config file does not exist.
//   - [ErrAlreadyExists]: Run ID already stored.
//   - [ErrNotValid]: Invalid input (e.g unknown kill condition).
//   - [ErrEmptyConfig]: Config file without content.
//   - [ErrTunnelPrecondition]: Tunneling enabled without token or tunneled commands.
//   - [ErrProcessesFailed]: The processes didn't meet the success condition.
//
// # Logging
//
// By default the SDK is silent. To receive log output, provide a [log.Logger]
// implementation in [Config].Logger. See the log sub-package for details.
package lib
