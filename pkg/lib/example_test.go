package lib_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/slok/stackrun/pkg/lib"
)

// This example shows how to run a stack with hooks keeping the history in memory.
func Example_run() {
	ctx := context.Background()

	client, err := lib.New(ctx, lib.Config{
		NoHistory: true,
		NoColor:   true,
		Stdin:     strings.NewReader(""),
		Stdout:    os.Stdout,
		Stderr:    os.Stdout,
	})
	if err != nil {
		panic(err)
	}
	defer client.Close()

	cfg := lib.DefineConfig(lib.StackConfig{
		BeforeCommands: []string{"echo setting up"},
		Commands: []lib.CommandSpec{
			{Name: lib.Ptr("web"), Command: lib.Ptr("echo serving")},
		},
		AfterCommands: []string{"echo tearing down"},
	})

	record, err := client.Run(ctx, cfg, nil)
	if err != nil {
		panic(err)
	}

	fmt.Printf("Run %s with %d processes\n", record.Status, len(record.Processes))

	// Output:
	// setting up
	// [web] serving
	// [web] echo serving exited with code 0
	// tearing down
	// Run succeeded with 1 processes
}

// This example shows how to check what a stack would launch without running it.
func Example_plan() {
	ctx := context.Background()

	dir, err := os.MkdirTemp("", "stackrun-example-*")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)

	client, err := lib.New(ctx, lib.Config{
		DBPath: filepath.Join(dir, "stackrun.db"),
	})
	if err != nil {
		panic(err)
	}
	defer client.Close()

	plan, err := client.Plan(ctx, lib.StackConfig{
		Commands: []lib.CommandSpec{
			{Name: lib.Ptr("api"), Command: lib.Ptr("go run ./cmd/api")},
			{Command: lib.Ptr("npm run dev"), Cwd: lib.Ptr("web")},
		},
	}, nil)
	if err != nil {
		panic(err)
	}

	for _, p := range plan.Processes {
		fmt.Printf("%d %s: %s\n", p.Index, p.Name, p.Command)
	}

	// Output:
	// 0 api: go run ./cmd/api
	// 1 1: npm run dev
}

// This example shows how to handle errors using sentinel errors.
func Example_errorHandling() {
	ctx := context.Background()

	client, err := lib.New(ctx, lib.Config{NoHistory: true})
	if err != nil {
		panic(err)
	}
	defer client.Close()

	_, err = client.GetRun(ctx, "latest")
	if errors.Is(err, lib.ErrNotFound) {
		fmt.Println("No runs yet")
	}

	_, err = client.Plan(ctx, lib.StackConfig{
		TunnelEnabled: lib.Ptr(true),
		Commands:      []lib.CommandSpec{{Command: lib.Ptr("npm run dev")}},
	}, &lib.RunOpts{Env: noTokenEnv})
	if errors.Is(err, lib.ErrTunnelPrecondition) {
		fmt.Println("Tunnel can't be planned")
	}

	// Output:
	// No runs yet
	// Tunnel can't be planned
}
