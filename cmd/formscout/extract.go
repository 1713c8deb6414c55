package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/formscout/formscout/internal/blocks"
	"github.com/formscout/formscout/internal/config"
	"github.com/formscout/formscout/internal/engine"
	"github.com/formscout/formscout/internal/oracle"
	"github.com/formscout/formscout/pkg/formatting"
)

func extractCmd() *cobra.Command {
	var (
		inputPath  string
		configPath string
		outputPath string
		modeFlag   string
		maxInput   string
	)

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Run template-region extraction over a parsed block file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd.Context(), inputPath, configPath, outputPath, modeFlag, maxInput)
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "path to the blocks JSON file (required)")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config.toml")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "path to write the extraction result (default stdout)")
	cmd.Flags().StringVarP(&modeFlag, "mode", "m", "normal", "extraction mode: normal or enhanced")
	cmd.Flags().StringVar(&maxInput, "max-input", "50MB", "largest accepted blocks file, e.g. 50MB")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runExtract(ctx context.Context, inputPath, configPath, outputPath, modeFlag, maxInput string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	mode, err := parseMode(modeFlag)
	if err != nil {
		return err
	}

	maxBytes, err := formatting.ParseBytes(maxInput)
	if err != nil {
		return fmt.Errorf("invalid --max-input: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	logger.Info(
		"formscout starting",
		"version", cfg.Version,
		"env", cfg.Env(),
		"oracle_provider", cfg.Oracle.Provider,
		"mode", mode,
	)

	blks, err := loadBlocks(inputPath, maxBytes, logger)
	if err != nil {
		return fmt.Errorf("load blocks: %w", err)
	}

	client, err := buildOracle(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build oracle: %w", err)
	}

	result := engine.New(&cfg.Engine, client, logger).Extract(ctx, blks, mode)

	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	payload = append(payload, '\n')

	if outputPath == "" {
		_, err = os.Stdout.Write(payload)
		return err
	}
	if err := os.WriteFile(outputPath, payload, 0644); err != nil {
		return fmt.Errorf("write result: %w", err)
	}

	logger.Info(
		"extraction complete",
		"status", result.Status,
		"span_count", len(result.Spans),
		"output", outputPath,
	)
	return nil
}

func parseMode(raw string) (engine.Mode, error) {
	switch strings.ToLower(raw) {
	case "normal":
		return engine.ModeNormal, nil
	case "enhanced":
		return engine.ModeEnhanced, nil
	default:
		return "", fmt.Errorf("unknown mode %q: use normal or enhanced", raw)
	}
}

func loadBlocks(path string, maxBytes int64, logger *slog.Logger) ([]blocks.Block, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > maxBytes {
		return nil, fmt.Errorf(
			"blocks file is %s, larger than the %s limit",
			formatting.FormatBytes(info.Size(), 1), formatting.FormatBytes(maxBytes, 1),
		)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var blks []blocks.Block
	if err := json.Unmarshal(data, &blks); err != nil {
		return nil, fmt.Errorf("parse blocks: %w", err)
	}

	logger.Info(
		"blocks loaded",
		"path", path,
		"size", formatting.FormatBytes(info.Size(), 1),
		"block_count", len(blks),
	)
	return blks, nil
}

func buildOracle(ctx context.Context, cfg *config.Config) (oracle.Client, error) {
	budget := oracle.Budget{
		PerBlock: cfg.Engine.Classifier.PerBlockChars,
		Total:    cfg.Engine.Classifier.TotalChars,
	}

	switch cfg.Oracle.Provider {
	case config.ProviderGemini:
		return oracle.NewGemini(ctx, cfg.Oracle.APIKey(), cfg.Oracle.Model, budget)
	case config.ProviderOpenAI:
		return oracle.NewOpenAI(oracle.OpenAIOptions{
			BaseURL: cfg.Oracle.BaseURL,
			Model:   cfg.Oracle.Model,
			APIKey:  cfg.Oracle.APIKey(),
			Timeout: cfg.Oracle.TimeoutDuration(),
		}, budget)
	default:
		return nil, fmt.Errorf("unknown oracle provider %q", cfg.Oracle.Provider)
	}
}
