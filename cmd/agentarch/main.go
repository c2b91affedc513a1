package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version information (set via ldflags)
var Version = "dev"

type globalOptions struct {
	model        string
	user         string
	sessionStore string
	sessionDir   string
	memory       string
	rps          float64
	burst        int
	debugErrors  bool
}

func main() {
	// a missing .env is fine
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "agentarch",
		Short:         "Run a catalog of agentic architectures",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `agentarch runs agent architectures built from YAML definitions.

An architecture is either a name from the built-in catalog (see "list") or
the path of a YAML or JSON definition file.`,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.model, "model", getEnv("AGENTARCH_MODEL", ""), "Override the model of every agent")
	flags.StringVarP(&opts.user, "user", "u", getEnv("AGENTARCH_USER", "user"), "User ID sessions are filed under")
	flags.StringVar(&opts.sessionStore, "session-store", "", "Session store: memory, file or redis (default $SESSION_STORE or memory)")
	flags.StringVar(&opts.sessionDir, "session-dir", "", "Directory for the file session store")
	flags.StringVar(&opts.memory, "memory", getEnv("MEMORY_STORE", "memory"), "Memory store: memory, redis://addr, sqlite:path or firestore:project")
	flags.Float64Var(&opts.rps, "rps", getEnvFloat("MODEL_RPS", 0), "Model calls per second; 0 disables limiting")
	flags.IntVar(&opts.burst, "burst", getEnvInt("MODEL_BURST", 1), "Model call burst size")

	root.AddCommand(
		listCmd(),
		showCmd(),
		runCmd(opts),
		chatCmd(opts),
		scheduleCmd(opts),
		serveCmd(opts),
		modelsCmd(),
	)
	return root
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
