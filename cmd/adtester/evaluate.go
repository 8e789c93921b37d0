package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rishi-narain/ad-tester/internal/config"
	"github.com/rishi-narain/ad-tester/internal/llm"
	"github.com/rishi-narain/ad-tester/internal/metrics"
	"github.com/rishi-narain/ad-tester/internal/models"
	"github.com/rishi-narain/ad-tester/internal/prompt"
	"github.com/rishi-narain/ad-tester/internal/providers"
	"github.com/rishi-narain/ad-tester/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	personaID   string
	adText      string
	imagePath   string
	allPersonas bool

	// newProvider is swapped in tests.
	newProvider = func(cfg *config.Config, log *zap.Logger) (llm.Provider, error) {
		return providers.New(cfg.Providers, cfg.MaxFailuresBeforeSwitch, metrics.Default(), log)
	}
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate an ad for one persona, or for all with --all",
	Long: `Evaluates ad text or an image file and prints the result as JSON.

Examples:
  adtester evaluate --persona busy-professional --text "Meal kits in 10 minutes"
  adtester evaluate --all --image banner.png`,
	Args: cobra.NoArgs,
	RunE: runEvaluate,
}

func init() {
	evaluateCmd.Flags().StringVarP(&personaID, "persona", "p", "", "Persona ID to evaluate against")
	evaluateCmd.Flags().StringVarP(&adText, "text", "t", "", "Ad copy to evaluate")
	evaluateCmd.Flags().StringVarP(&imagePath, "image", "i", "", "Ad image file to evaluate")
	evaluateCmd.Flags().BoolVarP(&allPersonas, "all", "a", false, "Evaluate against every persona and report the best match")
	evaluateCmd.MarkFlagsMutuallyExclusive("text", "image")
	evaluateCmd.MarkFlagsOneRequired("text", "image")
	evaluateCmd.MarkFlagsMutuallyExclusive("persona", "all")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	req, err := buildRequest()
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	catalog, closeCatalog, err := openCatalog(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeCatalog()

	provider, err := newProvider(cfg, logger)
	if err != nil {
		return err
	}
	defer provider.Close()

	evaluator := service.NewEvaluator(
		catalog,
		provider,
		config.NewSettingsStore(cfg, "", logger),
		nil,
		nil,
		service.EvaluatorConfig{
			RequestTimeout: cfg.LLM.RequestTimeout,
			MaxConcurrency: cfg.LLM.MaxConcurrency,
			IncludeQuote:   cfg.LLM.IncludeQuote,
		},
		logger,
	)

	outcome, err := evaluator.Evaluate(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("evaluation failed (%s): %w", service.Category(err), err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(outcome)
}

func buildRequest() (models.EvaluationRequest, error) {
	req := models.EvaluationRequest{
		PersonaID:   personaID,
		ReverseMode: allPersonas,
		Content:     adText,
		ContentType: models.ContentText,
	}
	if !allPersonas && strings.TrimSpace(personaID) == "" {
		return req, errors.New("either --persona or --all is required")
	}

	if imagePath != "" {
		data, err := os.ReadFile(imagePath)
		if err != nil {
			return req, fmt.Errorf("failed to read image: %w", err)
		}
		uri, err := prompt.EncodeDataURI(data)
		if err != nil {
			return req, err
		}
		req.Content = uri
		req.ContentType = models.ContentImage
	}
	return req, nil
}
