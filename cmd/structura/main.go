package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/zen-systems/structura/pkg/adapter"
	"github.com/zen-systems/structura/pkg/client"
	"github.com/zen-systems/structura/pkg/config"
	"github.com/zen-systems/structura/pkg/router"
	"github.com/zen-systems/structura/pkg/rules"
	"github.com/zen-systems/structura/pkg/schema"
	"github.com/zen-systems/structura/pkg/trigger"
)

var (
	configFile string
	debugFlag  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "structura",
		Short: "Paragraph structure classification with rule, remote and hybrid modes",
		Long: `Structura classifies document paragraphs into structural roles
(headings, body, captions, list items) using a deterministic rule
engine, a remote language model, or a hybrid of both. Remote failures
always degrade to rule labels, so a label set is produced for every
input.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			initLogger()
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to config YAML file")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")

	rootCmd.AddCommand(classifyCmd())
	rootCmd.AddCommand(triggersCmd())
	rootCmd.AddCommand(modelsCmd())
	rootCmd.AddCommand(validateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initLogger() {
	level := slog.LevelInfo
	if debugFlag {
		level = slog.LevelDebug
	}
	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	})
	slog.SetDefault(slog.New(handler))
}

func classifyCmd() *cobra.Command {
	var modeFlag string
	var outputPath string

	cmd := &cobra.Command{
		Use:   "classify [input.json]",
		Short: "Classify paragraphs and print the final label set",
		Long: `Reads paragraphs from a JSON file (or stdin when the argument is "-")
and prints the final label set as JSON.

Input is either an array of strings (raw paragraph text, labeled by
the built-in rule engine first) or an array of objects with index,
text, label and confidence fields (deterministic labels produced
upstream).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if modeFlag != "" {
				cfg.Mode = modeFlag
			}

			paragraphs, err := readParagraphs(args[0])
			if err != nil {
				return err
			}

			r, err := buildRouter(cfg)
			if err != nil {
				return err
			}

			result := r.Route(context.Background(), paragraphs)
			return writeJSON(outputPath, result)
		},
	}

	cmd.Flags().StringVar(&modeFlag, "mode", "", "classification mode: rule, remote or hybrid (default from config)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "write the label set to a file instead of stdout")
	return cmd
}

func triggersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "triggers [input.json]",
		Short: "Evaluate the hybrid trigger conditions without calling the remote model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			paragraphs, err := readParagraphs(args[0])
			if err != nil {
				return err
			}

			report, indices := trigger.Evaluate(paragraphs, cfg.TriggerThresholds())
			out := struct {
				schema.TriggerReport
				Indices []int `json:"indices,omitempty"`
			}{report, indices}
			return writeJSON("", out)
		},
	}
	return cmd
}

func modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List available adapters and their models",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			httpClient := adapter.NewHTTPClient(cfg.ConnectTimeout())
			for _, name := range []string{"openai", "anthropic", "google"} {
				if !cfg.HasAdapter(name) {
					fmt.Printf("%s: (no API key)\n", name)
					continue
				}
				a, err := buildAdapter(cfg, name, httpClient)
				if err != nil {
					fmt.Printf("%s: %v\n", name, err)
					continue
				}
				fmt.Printf("%s:\n", a.Name())
				for _, model := range a.Models() {
					fmt.Printf("  %s\n", model)
				}
			}
			return nil
		},
	}
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and report the effective settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			fmt.Printf("mode: %s\n", cfg.Mode)
			fmt.Printf("adapter: %s (model %s)\n", cfg.Remote.Adapter, cfg.Remote.Model)
			fmt.Printf("timeouts: base=%gs connect=%gs max=%gs\n", cfg.Timeouts.BaseS, cfg.Timeouts.ConnectS, cfg.Timeouts.MaxS)
			fmt.Printf("retry: attempts=%d backoff=%gs\n", cfg.Retry.MaxAttempts, cfg.Retry.BackoffBaseS)
			fmt.Printf("thresholds: heading=%d short_body=%d accept=%.2f\n",
				cfg.Thresholds.HeadingLength, cfg.Thresholds.ShortBody, cfg.Thresholds.AcceptConfidence)
			fmt.Println("config ok")
			return nil
		},
	}
}

// buildRouter wires the configured adapter, policies and orchestrator.
// Rule mode skips the remote client entirely, so it works without any
// API key.
func buildRouter(cfg *config.Config) (*router.Router, error) {
	mode := router.ParseMode(cfg.Mode)

	var c *client.Client
	if mode != router.ModeRule {
		httpClient := adapter.NewHTTPClient(cfg.ConnectTimeout())
		a, err := buildAdapter(cfg, cfg.Remote.Adapter, httpClient)
		if err != nil {
			return nil, err
		}
		c, err = client.New(a, cfg.Remote.Model, cfg.TimeoutPolicy(), cfg.RetryPolicy())
		if err != nil {
			return nil, err
		}
	}

	return router.New(mode, c, cfg.TriggerThresholds(), cfg.Thresholds.AcceptConfidence,
		router.WithLogger(slog.Default()))
}

func buildAdapter(cfg *config.Config, name string, httpClient *http.Client) (adapter.Adapter, error) {
	switch name {
	case "openai":
		return adapter.NewOpenAIAdapter(cfg.Remote.OpenAIAPIKey, cfg.Remote.BaseURL, httpClient)
	case "anthropic":
		return adapter.NewAnthropicAdapter(cfg.Remote.AnthropicAPIKey, httpClient)
	case "google":
		return adapter.NewGoogleAdapter(cfg.Remote.GoogleAPIKey, httpClient)
	default:
		return nil, fmt.Errorf("unknown adapter %q", name)
	}
}

// readParagraphs accepts either raw text arrays or labeled paragraph
// arrays; raw text runs through the rule classifier first.
func readParagraphs(path string) ([]schema.Paragraph, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	var texts []string
	if err := json.Unmarshal(data, &texts); err == nil {
		return rules.Classify(texts), nil
	}

	var paragraphs []schema.Paragraph
	if err := json.Unmarshal(data, &paragraphs); err != nil {
		return nil, fmt.Errorf("input must be a JSON array of strings or paragraph objects: %w", err)
	}
	for i, p := range paragraphs {
		if p.Index != i {
			return nil, fmt.Errorf("paragraph %d has index %d; input must be ordered 0..N-1", i, p.Index)
		}
	}
	return paragraphs, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0644)
}
