package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/stackrun/internal/conventions"
	"github.com/slok/stackrun/internal/log"
	"github.com/slok/stackrun/internal/model"
	storageio "github.com/slok/stackrun/internal/storage/io"
	"github.com/slok/stackrun/internal/utils/env"
)

// stackFlags are the flags of the commands that load a stack.
type stackFlags struct {
	configArg  string
	configFile string
	inlineJSON string
	tunnel     bool
}

func (f *stackFlags) register(cmd *kingpin.CmdClause) {
	cmd.Arg("config", "Stack config file (overrides --config).").StringVar(&f.configArg)
	cmd.Flag("config", "Stack config file, tried as is and with .yaml, .yml, .json and .toml extensions.").Short('c').Default(conventions.DefaultConfigFile).StringVar(&f.configFile)
	cmd.Flag("json", "Inline JSON stack config, used instead of the config file.").StringVar(&f.inlineJSON)
	cmd.Flag("tunnel", "Enable the Cloudflare tunnel regardless of the config.").Short('t').Envar(conventions.EnvTunnel).BoolVar(&f.tunnel)
}

// load exports the working dir dotenv variables and loads the stack config.
// It returns the config and the file it was loaded from.
// The tunnel flag env var is read again after the dotenv export, flags are parsed before it.
func (f *stackFlags) load(ctx context.Context, logger log.Logger) (model.StackConfig, string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return model.StackConfig{}, "", fmt.Errorf("could not get working dir: %w", err)
	}

	if err := exportDotenv(ctx, wd, logger); err != nil {
		return model.StackConfig{}, "", err
	}
	if !f.tunnel {
		f.tunnel, _ = strconv.ParseBool(os.Getenv(conventions.EnvTunnel))
	}

	if f.inlineJSON != "" {
		repo := storageio.NewConfigRepository(os.DirFS(wd), env.OSLookup)
		cfg, err := repo.DecodeConfig([]byte(f.inlineJSON), storageio.FormatJSON)
		if err != nil {
			return model.StackConfig{}, "", fmt.Errorf("invalid inline JSON config: %w", err)
		}
		return cfg, "", nil
	}

	path := f.configFile
	if f.configArg != "" {
		path = f.configArg
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(wd, path)
	}
	dir, base := filepath.Split(path)

	repo := storageio.NewConfigRepository(os.DirFS(dir), env.OSLookup)
	cfg, file, err := repo.GetConfig(ctx, base)
	if err != nil {
		return model.StackConfig{}, "", err
	}

	file = filepath.Join(dir, file)
	logger.Debugf("Loaded stack config from %s", file)

	return cfg, file, nil
}

// exportDotenv sets the dotenv variables that are not already set in the process environment.
func exportDotenv(ctx context.Context, wd string, logger log.Logger) error {
	repo := storageio.NewConfigRepository(os.DirFS(wd), nil)
	vars, err := repo.GetDotenv(ctx, conventions.DotenvFile)
	if err != nil {
		return fmt.Errorf("could not load dotenv: %w", err)
	}

	for k, v := range vars {
		if _, ok := os.LookupEnv(k); ok {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return fmt.Errorf("could not export %s: %w", k, err)
		}
	}
	if len(vars) > 0 {
		logger.Debugf("Loaded %d variables from %s", len(vars), conventions.DotenvFile)
	}

	return nil
}
