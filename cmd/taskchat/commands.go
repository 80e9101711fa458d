package main

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/taskchat/internal/config"
	"github.com/kalambet/taskchat/internal/task"
)

// --- chat ---

type chatResponse struct {
	ID       int64  `json:"id"`
	Response string `json:"response"`
	TaskType string `json:"taskType"`
}

var chatCmd = &cobra.Command{
	Use:   "chat <input>",
	Short: "Send a task-typed request to the assistant",
	Long: `Send a task-typed request to the assistant.

The input must start with the bracket tag of the task type. Pass --auto-tag to
have the tag prepended when it is missing.

Examples:
  taskchat chat --type question "[question] What is a goroutine?"
  taskchat chat --type summary --auto-tag "Go is a statically typed language..."`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		typeName, _ := cmd.Flags().GetString("type")
		autoTag, _ := cmd.Flags().GetBool("auto-tag")

		tt, ok := task.Parse(typeName)
		if !ok {
			return fmt.Errorf("unknown task type %q (want one of %s)", typeName, taskTypeNames())
		}

		input := strings.Join(args, " ")
		if autoTag {
			input = withTag(input, tt)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		res, err := sendChat(cmd.Context(), client, input, tt)
		if err != nil {
			return err
		}

		fmt.Println(res.Response)
		printStatus("Query", "%d (rate it with: taskchat feedback %d --helpful)", res.ID, res.ID)
		return nil
	},
}

func init() {
	chatCmd.Flags().StringP("type", "t", string(task.Question), "task type: "+taskTypeNames())
	chatCmd.Flags().Bool("auto-tag", false, "prepend the task tag when the input lacks it")
}

func sendChat(ctx context.Context, client *apiClient, input string, tt task.Type) (chatResponse, error) {
	resp, err := client.post(ctx, "/api/ai/chat", map[string]any{
		"input":    input,
		"taskType": string(tt),
	})
	if err != nil {
		return chatResponse{}, err
	}

	var res chatResponse
	if err := decodeJSON(resp, &res); err != nil {
		return chatResponse{}, err
	}
	return res, nil
}

// withTag prefixes input with the tag of tt unless it already starts with it.
func withTag(input string, tt task.Type) string {
	trimmed := strings.TrimSpace(input)
	if strings.HasPrefix(trimmed, tt.Tag()) {
		return trimmed
	}
	return tt.Tag() + " " + trimmed
}

func taskTypeNames() string {
	names := make([]string, len(task.All))
	for i, t := range task.All {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

// --- feedback ---

var feedbackCmd = &cobra.Command{
	Use:   "feedback <id>",
	Short: "Mark a previous answer as helpful or not",
	Long: `Mark a previous answer as helpful or not.

Examples:
  taskchat feedback 3 --helpful
  taskchat feedback 3 --helpful=false`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid query id %q", args[0])
		}
		helpful, _ := cmd.Flags().GetBool("helpful")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/api/ai/feedback", map[string]any{
			"id":        id,
			"isHelpful": helpful,
		})
		if err != nil {
			return err
		}

		var res struct {
			Success   bool `json:"success"`
			IsHelpful bool `json:"isHelpful"`
		}
		if err := decodeJSON(resp, &res); err != nil {
			return err
		}

		printSuccess("Query %d marked helpful=%t", id, res.IsHelpful)
		return nil
	},
}

func init() {
	feedbackCmd.Flags().Bool("helpful", true, "whether the answer was helpful")
}

// --- stats ---

type statsSummary struct {
	QueriesCount int `json:"queriesCount"`
	HelpfulCount int `json:"helpfulCount"`
	SuccessRate  int `json:"successRate"`
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Read or write session counters",
}

var statsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show the counters of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), statsPath(args[0]))
		if err != nil {
			return err
		}

		var sum statsSummary
		if err := decodeJSON(resp, &sum); err != nil {
			return err
		}
		printSummary(args[0], sum)
		return nil
	},
}

var statsSetCmd = &cobra.Command{
	Use:   "set <session-id> <queries> <helpful>",
	Short: "Overwrite the counters of a session",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		queries, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid queries count %q", args[1])
		}
		helpful, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid helpful count %q", args[2])
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), statsPath(args[0]), map[string]int{
			"queriesCount": queries,
			"helpfulCount": helpful,
		})
		if err != nil {
			return err
		}

		var sum statsSummary
		if err := decodeJSON(resp, &sum); err != nil {
			return err
		}
		printSummary(args[0], sum)
		return nil
	},
}

func init() {
	statsCmd.AddCommand(statsShowCmd)
	statsCmd.AddCommand(statsSetCmd)
}

func statsPath(sessionID string) string {
	return "/api/stats/" + url.PathEscape(sessionID)
}

func printSummary(sessionID string, sum statsSummary) {
	printStatus("Session", "%s", sessionID)
	printStatus("Queries", "%d", sum.QueriesCount)
	printStatus("Helpful", "%d", sum.HelpfulCount)
	printStatus("Success rate", "%d%%", sum.SuccessRate)
}

// --- health ---

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the server is up",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/api/health")
		if err != nil {
			printStatus("Server", "stopped")
			return err
		}

		var res struct {
			Status    string `json:"status"`
			Timestamp string `json:"timestamp"`
		}
		if err := decodeJSON(resp, &res); err != nil {
			printStatus("Server", "error")
			return err
		}
		printStatus("Server", "%s at %s (%s)", res.Status, client.baseURL, res.Timestamp)
		return nil
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		printStatus("Config file", "%s", config.ConfigFilePath())
		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s  (%s)\n", colorize(colorBold, k.Key), k.Value, k.EnvVar)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value.\n\nValid keys: " + strings.Join(config.ValidKeys(), ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configSetSecretCmd = &cobra.Command{
	Use:   "set-secret <key> <value>",
	Short: "Store a secret (gateway.api_key) in the secrets file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetSecret(args[0], args[1]); err != nil {
			return err
		}
		printSuccess("Stored %s", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configSetSecretCmd)
}
