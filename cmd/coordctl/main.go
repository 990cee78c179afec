package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Darlinghurst56/taskmaster/client"
	"github.com/Darlinghurst56/taskmaster/config"
	"github.com/Darlinghurst56/taskmaster/domain"
	"github.com/Darlinghurst56/taskmaster/workflow"
)

type ctlConfig struct {
	ServerURL string `yaml:"serverUrl"`
}

func loadCtlConfig() ctlConfig {
	cfg := ctlConfig{ServerURL: "http://127.0.0.1:3001"}

	data, err := os.ReadFile(filepath.Join(config.BaseDir(), "coordctl.yaml"))
	if err != nil {
		return cfg
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "warning: ignoring malformed coordctl.yaml: %v\n", err)
	}
	return cfg
}

var api *client.Client

func main() {
	cfg := loadCtlConfig()

	root := &cobra.Command{
		Use:   "coordctl",
		Short: "Control the TaskMaster coordination daemon",
	}

	var serverURL string
	root.PersistentFlags().StringVar(&serverURL, "server", cfg.ServerURL, "coordination daemon URL")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api = client.New(serverURL)
	}

	root.AddCommand(
		pendingCmd(),
		suggestionsCmd(),
		suggestCmd(),
		approveCmd(),
		rejectCmd(),
		statsCmd(),
		agentsCmd(),
		serversCmd(),
		healthCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func pendingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List suggestions awaiting a decision",
		RunE: func(cmd *cobra.Command, args []string) error {
			suggestions, err := api.Pending()
			if err != nil {
				return err
			}
			printSuggestions(suggestions)
			return nil
		},
	}
}

func suggestionsCmd() *cobra.Command {
	var status string
	var limit int
	cmd := &cobra.Command{
		Use:   "suggestions",
		Short: "List suggestions",
		RunE: func(cmd *cobra.Command, args []string) error {
			suggestions, err := api.Suggestions(status, limit)
			if err != nil {
				return err
			}
			printSuggestions(suggestions)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status (pending, approved, rejected)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of results")
	return cmd
}

func suggestCmd() *cobra.Command {
	var reasoning, by string
	cmd := &cobra.Command{
		Use:   "suggest <taskId> <targetAgent>",
		Short: "Create a task-assignment suggestion",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sug, err := api.CreateSuggestion(workflow.CreateRequest{
				TaskID:      args[0],
				TargetAgent: args[1],
				Reasoning:   reasoning,
				SuggestedBy: by,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Created %s (%s)\n", sug.ID, statusString(string(sug.Status)))
			return nil
		},
	}
	cmd.Flags().StringVar(&reasoning, "reasoning", "", "rationale for the assignment")
	cmd.Flags().StringVar(&by, "by", "", "originator (defaults to orchestrator)")
	return cmd
}

func approveCmd() *cobra.Command {
	var comment, by string
	cmd := &cobra.Command{
		Use:   "approve <suggestionId>",
		Short: "Approve a pending suggestion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sug, err := api.Approve(args[0], comment, by)
			if err != nil {
				return err
			}
			color.Green("Approved %s: task %s -> %s", sug.ID, sug.TaskID, sug.TargetAgent)
			return nil
		},
	}
	cmd.Flags().StringVar(&comment, "comment", "", "approval comment")
	cmd.Flags().StringVar(&by, "by", "", "approver identity")
	return cmd
}

func rejectCmd() *cobra.Command {
	var reason, by string
	cmd := &cobra.Command{
		Use:   "reject <suggestionId>",
		Short: "Reject a pending suggestion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if reason == "" {
				return fmt.Errorf("--reason is required")
			}
			sug, err := api.Reject(args[0], reason, by)
			if err != nil {
				return err
			}
			color.Yellow("Rejected %s: %s", sug.ID, reason)
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "rejection reason (required)")
	cmd.Flags().StringVar(&by, "by", "", "rejecter identity")
	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate suggestion counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := api.Stats()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "Total:\t%d\n", stats.Total)
			fmt.Fprintf(w, "Pending:\t%d\n", stats.Pending)
			fmt.Fprintf(w, "Approved:\t%d\n", stats.Approved)
			fmt.Fprintf(w, "Rejected:\t%d\n", stats.Rejected)
			fmt.Fprintf(w, "Approval rate:\t%.1f%%\n", stats.ApprovalRate)
			fmt.Fprintf(w, "Avg approval time:\t%.1fs\n", stats.AvgApprovalTimeSeconds)
			return w.Flush()
		},
	}
}

func agentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List registered agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			agents, err := api.Agents()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tROLE\tSTATUS\tTASK\tHEARTBEAT")
			for _, a := range agents {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					a.ID, a.Role, statusString(string(a.Status)), a.CurrentTask, heartbeatAge(a.LastHeartbeat))
			}
			return w.Flush()
		},
	}
}

func serversCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "servers",
		Short: "List tracked server processes",
		RunE: func(cmd *cobra.Command, args []string) error {
			servers, err := api.Servers()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPID\tPORT\tTYPE\tSTATUS\tCRASHES\tRESTARTS")
			for _, s := range servers {
				fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\t%d\t%d\n",
					s.ID, s.PID, s.Port, s.ServerType, statusString(string(s.Status)),
					s.Metrics.CrashCount, s.Metrics.RestartCount)
			}
			return w.Flush()
		},
	}
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check daemon liveness",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := api.Health()
			if err != nil {
				return err
			}
			color.Green("Daemon is %v", resp["status"])
			return nil
		},
	}
}

func printSuggestions(suggestions []domain.Suggestion) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTASK\tAGENT\tSTATUS\tBY\tAGE")
	for _, s := range suggestions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			s.ID, s.TaskID, s.TargetAgent, statusString(string(s.Status)),
			s.SuggestedBy, time.Since(s.Timestamp).Round(time.Second))
	}
	w.Flush()
}

func statusString(status string) string {
	switch status {
	case "approved", "running", "available":
		return color.GreenString(status)
	case "pending", "starting", "working":
		return color.YellowString(status)
	case "rejected", "crashed", "error", "offline":
		return color.RedString(status)
	default:
		return status
	}
}

func heartbeatAge(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return time.Since(*t).Round(time.Second).String() + " ago"
}
