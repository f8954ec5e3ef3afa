package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
	"github.com/custodia-labs/docrag/internal/core/services"
)

var configCmd = &cobra.Command{
	Use:     "config",
	Aliases: []string{"settings"},
	Short:   "Show and change configuration",
	Long: `Configuration is stored in config.toml under the configuration directory.
DOCRAG_* environment variables and .env files override stored values.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store a configuration value",
	Long: `Stores a single configuration value. Use - as the value of an api_key
setting to type it without echo.

Keys:
  ` + strings.Join(services.SettingKeys(), "\n  "),
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration and reach the AI providers",
	Args:  cobra.NoArgs,
	RunE:  runConfigCheck,
}

var configWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Configure the watch folder and AI providers interactively",
	Args:  cobra.NoArgs,
	RunE:  runConfigWizard,
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd, configCheckCmd, configWizardCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	svc, err := settingsService()
	if err != nil {
		return err
	}
	s, err := svc.Get()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	cmd.Printf("Config file: %s\n\n", svc.Path())

	cmd.Println("Watch")
	cmd.Printf("  folder:     %s\n", s.Watch.Folder)
	cmd.Printf("  pattern:    %s\n", s.Watch.Pattern)
	cmd.Printf("  debounce:   %s\n", s.Watch.Debounce)

	cmd.Println("Chunker")
	cmd.Printf("  size:       %d\n", s.Chunker.Size)
	cmd.Printf("  overlap:    %d\n", s.Chunker.Overlap)

	cmd.Println("Store")
	cmd.Printf("  backend:    %s\n", s.Store.Backend)
	cmd.Printf("  dir:        %s\n", s.Store.Dir)
	cmd.Printf("  page size:  %d\n", s.Store.PageSize)

	cmd.Println("Ingest")
	cmd.Printf("  batch size: %d\n", s.Ingest.BatchSize)
	cmd.Printf("  queue size: %d\n", s.Ingest.QueueSize)

	cmd.Println("Embedding")
	cmd.Printf("  provider:   %s\n", s.Embedding.Provider.Description())
	cmd.Printf("  model:      %s\n", s.Embedding.Model)
	if s.Embedding.BaseURL != "" {
		cmd.Printf("  base url:   %s\n", s.Embedding.BaseURL)
	}
	if s.Embedding.Provider.RequiresAPIKey() {
		cmd.Printf("  api key:    %s\n", maskAPIKey(s.Embedding.APIKey))
	}
	if s.Embedding.Dimensions > 0 {
		cmd.Printf("  dimensions: %d\n", s.Embedding.Dimensions)
	}
	if s.Embedding.RequestsPerSecond > 0 {
		cmd.Printf("  rate limit: %g/s\n", s.Embedding.RequestsPerSecond)
	}

	cmd.Println("LLM")
	if s.LLM.Provider == "" {
		cmd.Println("  not configured")
	} else {
		cmd.Printf("  provider:   %s\n", s.LLM.Provider.Description())
		cmd.Printf("  model:      %s\n", s.LLM.Model)
		if s.LLM.BaseURL != "" {
			cmd.Printf("  base url:   %s\n", s.LLM.BaseURL)
		}
		if s.LLM.Provider.RequiresAPIKey() {
			cmd.Printf("  api key:    %s\n", maskAPIKey(s.LLM.APIKey))
		}
	}

	cmd.Println("Query")
	cmd.Printf("  top k:      %d\n", s.Query.TopK)
	cmd.Println("Server")
	cmd.Printf("  addr:       %s\n", s.Server.Addr)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	svc, err := settingsService()
	if err != nil {
		return err
	}

	key, value := args[0], args[1]
	if value == "-" && strings.HasSuffix(key, ".api_key") {
		cmd.Print("Enter API key: ")
		value = readPassword(cmd.InOrStdin(), bufio.NewReader(cmd.InOrStdin()))
		cmd.Println()
	}

	if err := svc.Set(key, value); err != nil {
		return err
	}
	if strings.HasSuffix(key, ".api_key") {
		value = maskAPIKey(value)
	}
	cmd.Printf("%s = %s\n", key, value)
	return nil
}

func runConfigCheck(cmd *cobra.Command, _ []string) error {
	svc, err := settingsService()
	if err != nil {
		return err
	}
	s, err := svc.Get()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	var failed int
	check := func(name string, fn func() error) {
		cmd.Printf("%-10s ", name)
		if err := fn(); err != nil {
			failed++
			cmd.Printf("FAILED: %v\n", err)
			return
		}
		cmd.Println("OK")
	}

	check("settings", s.Validate)
	check("embedding", svc.ValidateEmbeddingConfig)
	if s.LLM.Provider != "" {
		check("llm", svc.ValidateLLMConfig)
	} else {
		cmd.Printf("%-10s skipped (no provider)\n", "llm")
	}

	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	return nil
}

func runConfigWizard(cmd *cobra.Command, _ []string) error {
	svc, err := settingsService()
	if err != nil {
		return err
	}
	current, err := svc.Get()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Println("docrag configuration")
	cmd.Println("====================")
	cmd.Println()

	cmd.Println("Step 1: Watch folder")
	cmd.Printf("Folder to watch [%s]: ", current.Watch.Folder)
	if folder := readLine(reader); folder != "" {
		if err := svc.Set("watch.folder", folder); err != nil {
			return err
		}
	}
	cmd.Println()

	cmd.Println("Step 2: Embedding provider")
	if err := configureProvider(cmd, svc, reader, "embedding",
		domain.AllEmbeddingProviders(), domain.DefaultEmbeddingModels()); err != nil {
		return err
	}

	cmd.Println("Step 3: LLM provider")
	if err := configureProvider(cmd, svc, reader, "llm",
		domain.AllLLMProviders(), domain.DefaultLLMModels()); err != nil {
		return err
	}

	s, err := svc.Get()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		return nil
	}
	cmd.Printf("Configuration saved to %s\n", svc.Path())
	return nil
}

// configureProvider asks for a provider, model and API key and stores
// them under the section prefix ("embedding" or "llm").
func configureProvider(
	cmd *cobra.Command,
	svc driving.SettingsService,
	reader *bufio.Reader,
	section string,
	providers []domain.AIProvider,
	models map[domain.AIProvider]string,
) error {
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	provider := providers[parseChoice(readLine(reader), len(providers), 1)-1]

	defaultModel := models[provider]
	cmd.Printf("Model [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if provider.RequiresAPIKey() {
		cmd.Print("API key: ")
		apiKey = readPassword(cmd.InOrStdin(), reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	values := [][2]any{
		{section + ".provider", string(provider)},
		{section + ".model", model},
	}
	if apiKey != "" {
		values = append(values, [2]any{section + ".api_key", apiKey})
	}
	if section == "embedding" {
		if dims, ok := domain.EmbeddingDimensions()[model]; ok {
			values = append(values, [2]any{"embedding.dimensions", dims})
		}
	}
	for _, kv := range values {
		if err := svc.Set(kv[0].(string), kv[1]); err != nil {
			return err
		}
	}

	validate := svc.ValidateEmbeddingConfig
	if section == "llm" {
		validate = svc.ValidateLLMConfig
	}
	cmd.Print("Validating configuration... ")
	if err := validate(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("%s configuration: %w", section, err)
	}
	cmd.Println("OK")
	cmd.Printf("%s provider configured: %s (%s)\n\n", section, provider.Description(), model)
	return nil
}

func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n') //nolint:errcheck // EOF yields the partial line
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo when in is a terminal, otherwise a
// plain line from reader.
func readPassword(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if password, err := term.ReadPassword(int(f.Fd())); err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
