package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"devboxctl/awsd"
	"devboxctl/configuration"
	"devboxctl/errors"
	"devboxctl/lifecycle"
	"devboxctl/logger"
	"devboxctl/publicip"
)

const (
	appName = "devbox"
	version = "0.1.0"
)

// lifecycleService captures the controller operations the commands render.
type lifecycleService interface {
	Start(ctx context.Context, name, callerIP string) (string, string, error)
	Stop(ctx context.Context, name string) (string, error)
	Status(ctx context.Context, name string) (string, string, error)
	Reboot(ctx context.Context, name string) (string, error)
}

// ipLookup resolves the caller's public IP for the start command.
type ipLookup interface {
	Lookup(ctx context.Context) (string, error)
}

// deps bundles everything a command needs beyond its flags.
type deps struct {
	cfg *configuration.Config
	svc lifecycleService
	ip  ipLookup
}

// depsFunc builds deps lazily, once a command actually runs.
type depsFunc func() (*deps, error)

func main() {
	if err := logger.Initialize("info"); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("devbox starting", zap.String("version", version))

	if err := newRootCmd().Execute(); err != nil {
		logger.Error("command failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	return newRootCmdWithDeps(loadDeps)
}

func newRootCmdWithDeps(load depsFunc) *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "Start, stop, reboot, and inspect your EC2 dev box",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetVersionTemplate(fmt.Sprintf("%s v{{.Version}}\n", appName))

	root.AddCommand(startCmd(load))
	root.AddCommand(stopCmd(load))
	root.AddCommand(statusCmd(load))
	root.AddCommand(rebootCmd(load))

	return root
}

// loadDeps loads configuration and builds the lifecycle service over a real
// EC2 client.
func loadDeps() (*deps, error) {
	cfg, err := configuration.Initialize()
	if err != nil {
		return nil, err
	}
	if cfg.LogLevel != "info" {
		if err := logger.Initialize(cfg.LogLevel); err != nil {
			return nil, err
		}
	}

	client, err := awsd.NewEC2Client(cfg, zap.L())
	if err != nil {
		return nil, err
	}

	return &deps{
		cfg: cfg,
		svc: lifecycle.NewService(client, zap.L()),
		ip:  publicip.NewClient(cfg.IPLookupURL, zap.L()),
	}, nil
}

// resolveName prefers the flag value over the configured default.
func resolveName(flagValue string, cfg *configuration.Config) string {
	if flagValue != "" {
		return flagValue
	}
	return cfg.InstanceName
}

// renderError maps resolution failures to a caller-facing "no such
// instance" message; everything else passes through.
func renderError(name string, err error) error {
	if errors.IsResolution(err) {
		return fmt.Errorf("no such instance %q: %w", name, err)
	}
	return err
}

func bindInstanceNameFlag(cmd *cobra.Command, target *string, verb string) {
	cmd.Flags().StringVarP(target, "instance-name", "i", "",
		fmt.Sprintf("Name of the EC2 instance to %s. If not specified, the default instance will be used.", verb))
}
