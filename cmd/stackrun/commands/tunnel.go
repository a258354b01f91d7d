package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/stackrun/internal/conventions"
	"github.com/slok/stackrun/internal/model"
	"github.com/slok/stackrun/internal/tunnel"
	"github.com/slok/stackrun/internal/tunnel/cloudflared"
	"github.com/slok/stackrun/internal/utils/env"
)

type TunnelCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	binary string
}

// NewTunnelCommand returns the tunnel agent command, it's launched by the run command
// as the tunnel process and reads its configuration from the environment.
func NewTunnelCommand(rootCmd *RootCommand, app *kingpin.Application) *TunnelCommand {
	c := &TunnelCommand{rootCmd: rootCmd}

	c.Cmd = app.Command(conventions.TunnelCommandName, "Run the Cloudflare tunnel agent.").Hidden()
	c.Cmd.Flag("cloudflared", "cloudflared binary.").Default(cloudflared.DefaultBinary).StringVar(&c.binary)

	return c
}

func (c TunnelCommand) Name() string { return c.Cmd.FullCommand() }

func (c TunnelCommand) Run(ctx context.Context) error {
	raw := os.Getenv(conventions.EnvTunnelPayload)
	if raw == "" {
		return fmt.Errorf("missing %s, this command is launched by stackrun run", conventions.EnvTunnelPayload)
	}

	payload, err := tunnel.DecodePayload(raw)
	if err != nil {
		return fmt.Errorf("invalid tunnel payload: %w", err)
	}

	// cloudflared gets the tunnel token through its own variable, not the whole payload.
	baseEnv := env.Environ(os.Environ(), model.Env{conventions.EnvTunnelPayload: nil})

	agent, err := cloudflared.NewAgent(cloudflared.AgentConfig{
		Cmd:     cloudflared.NewExecCmd(c.binary, c.rootCmd.Stdout, c.rootCmd.Stderr),
		NewAPI:  cloudflared.NewCloudflareAPI,
		BaseEnv: baseEnv,
		Logger:  c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create tunnel agent: %w", err)
	}

	return agent.Run(ctx, payload)
}
