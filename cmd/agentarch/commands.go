package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aixgo-dev/agentarch"
	"github.com/aixgo-dev/agentarch/agent"
	"github.com/aixgo-dev/agentarch/architectures"
	"github.com/aixgo-dev/agentarch/internal/llm/provider"
	"github.com/aixgo-dev/agentarch/pkg/config"
	"github.com/mudler/xlog"
	"github.com/peterh/liner"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the built-in architectures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range agentarch.Architectures() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <architecture>",
		Short: "Print the definition of a built-in architecture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := architectures.Source(args[0])
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

// eventPrinter writes every text event as "[author] text".
func eventPrinter(w io.Writer) agent.EventSink {
	return func(ev agent.Event) {
		if ev.HasText() {
			fmt.Fprintf(w, "[%s] %s\n", ev.Author, ev.Text())
		}
	}
}

func runCmd(opts *globalOptions) *cobra.Command {
	var message, sessionID string
	var events bool

	cmd := &cobra.Command{
		Use:   "run <architecture|file>",
		Short: "Run one turn of an architecture",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close(context.Background()) }()

			var sink agent.EventSink
			if events {
				sink = eventPrinter(cmd.OutOrStdout())
			}
			r, err := a.newRunner(refArg(args), sink)
			if err != nil {
				return err
			}

			res, err := r.Run(ctx, opts.user, sessionID, message)
			if err != nil {
				return err
			}
			if !events {
				fmt.Fprintln(cmd.OutOrStdout(), res.FinalText)
			}
			xlog.Debug("Turn complete", "session", res.SessionID, "events", len(res.Events))
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "User message")
	cmd.Flags().StringVar(&sessionID, "session", "", "Session ID to continue")
	cmd.Flags().BoolVar(&events, "events", false, "Print every event instead of the final response")
	return cmd
}

// refArg returns the architecture argument, falling back to AGENT_CONFIG
// and then the default catalog entry.
func refArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return config.ResolvePath(architectures.Default)
}

func chatCmd(opts *globalOptions) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "chat <architecture|file>",
		Short: "Chat with an architecture interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close(context.Background()) }()

			r, err := a.newRunner(refArg(args), nil)
			if err != nil {
				return err
			}
			return chatLoop(ctx, cmd.OutOrStdout(), func(ctx context.Context, text string) (string, error) {
				res, err := r.Run(ctx, opts.user, sessionID, text)
				if err != nil {
					return "", err
				}
				sessionID = res.SessionID
				return res.FinalText, nil
			}, func() { sessionID = "" })
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Session ID to continue")
	return cmd
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".agentarch_history")
}

func chatLoop(ctx context.Context, out io.Writer, turn func(context.Context, string) (string, error), reset func()) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	hist := historyPath()
	if f, err := os.Open(hist); err == nil {
		_, _ = line.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if hist == "" {
			return
		}
		if f, err := os.Create(hist); err == nil {
			_, _ = line.WriteHistory(f)
			_ = f.Close()
		}
	}()

	fmt.Fprintln(out, "Type /new to start a new session, /exit to quit.")
	for ctx.Err() == nil {
		input, err := line.Prompt("you> ")
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		input = strings.TrimSpace(input)
		switch input {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/new":
			reset()
			fmt.Fprintln(out, "Started a new session.")
			continue
		}
		line.AppendHistory(input)

		reply, err := turn(ctx, input)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		fmt.Fprintf(out, "agent> %s\n", reply)
	}
	return nil
}

func scheduleCmd(opts *globalOptions) *cobra.Command {
	var expr, message, sessionID string

	cmd := &cobra.Command{
		Use:   "schedule <architecture|file>",
		Short: "Run an architecture on a cron schedule",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := cron.ParseStandard(expr); err != nil {
				return fmt.Errorf("invalid cron expression: %w", err)
			}

			ctx := cmd.Context()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close(context.Background()) }()

			ref := refArg(args)
			r, err := a.newRunner(ref, nil)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			c := cron.New()
			if _, err := c.AddFunc(expr, func() {
				res, err := r.Run(ctx, opts.user, sessionID, message)
				if err != nil {
					xlog.Error("Scheduled run failed", "agent", ref, "error", err)
					return
				}
				fmt.Fprintf(out, "%s [%s] %s\n", time.Now().Format(time.RFC3339), res.SessionID, res.FinalText)
			}); err != nil {
				return err
			}

			xlog.Info("Scheduler started", "agent", ref, "cron", expr)
			c.Start()
			<-ctx.Done()
			<-c.Stop().Done()
			xlog.Info("Scheduler stopped", "agent", ref)
			return nil
		},
	}

	cmd.Flags().StringVar(&expr, "cron", "", "Cron expression, e.g. \"*/5 * * * *\"")
	cmd.Flags().StringVarP(&message, "message", "m", "", "User message sent on every run")
	cmd.Flags().StringVar(&sessionID, "session", "", "Session shared by every run (default: a new session per run)")
	_ = cmd.MarkFlagRequired("cron")
	return cmd
}

func modelsCmd() *cobra.Command {
	var providerName, region string

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the models a provider offers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if providerName != "bedrock" {
				return fmt.Errorf("listing models is not supported for provider %q", providerName)
			}
			ids, err := provider.ListBedrockModels(cmd.Context(), region)
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&providerName, "provider", "bedrock", "Provider to query")
	cmd.Flags().StringVar(&region, "region", getEnv("AWS_REGION", ""), "AWS region")
	return cmd
}
