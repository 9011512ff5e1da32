package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/quasar/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the dataset source, embedding provider, index backend
and context defaults. Settings are stored in config.toml in the config
directory; QUASAR_* environment variables override them at read time.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long: `Configure the embedding provider for semantic retrieval.

Without --provider the provider is chosen interactively. The OpenAI API key is
taken from --api-key, or from QUASAR_EMBEDDING_API_KEY / OPENAI_API_KEY at
runtime when not stored.`,
	RunE: runSettingsEmbedding,
}

var settingsDatasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Configure dataset source",
	RunE:  runSettingsDataset,
}

var settingsIndexCmd = &cobra.Command{
	Use:   "index",
	Short: "Configure index backend",
	RunE:  runSettingsIndex,
}

func init() {
	settingsEmbeddingCmd.Flags().String("provider", "", "embedding provider (hashing, ollama, openai)")
	settingsEmbeddingCmd.Flags().String("model", "", "embedding model (default per provider)")
	settingsEmbeddingCmd.Flags().String("api-key", "", "API key for openai")

	settingsDatasetCmd.Flags().String("provider", "", "dataset provider (csv, sheets)")
	settingsDatasetCmd.Flags().String("dir", "", "directory of *.csv files")
	settingsDatasetCmd.Flags().StringSlice("sheet-ids", nil, "Google spreadsheet IDs")
	settingsDatasetCmd.Flags().String("range", "", "A1 range read from every worksheet")
	settingsDatasetCmd.Flags().String("credentials", "", "service-account key file")

	settingsIndexCmd.Flags().String("backend", "", "index backend (sqlite, memory, pgvector)")
	settingsIndexCmd.Flags().String("data-dir", "", "directory for the sqlite index")
	settingsIndexCmd.Flags().String("dsn", "", "PostgreSQL connection string for pgvector")

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsDatasetCmd)
	settingsCmd.AddCommand(settingsIndexCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Dataset]")
	cmd.Printf("  Provider: %s\n", settings.Dataset.Provider)
	switch settings.Dataset.Provider {
	case domain.DatasetProviderCSV:
		cmd.Printf("  Directory: %s\n", settings.Dataset.CSVDir)
	case domain.DatasetProviderSheets:
		cmd.Printf("  Spreadsheets: %s\n", strings.Join(settings.Dataset.SheetIDs, ", "))
		cmd.Printf("  Range: %s\n", settings.Dataset.SheetRange)
		cmd.Printf("  Credentials: %s\n", valueOrUnset(settings.Dataset.CredentialsFile))
	}
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	if settings.Embedding.Dimensions > 0 {
		cmd.Printf("  Dimensions: %d\n", settings.Embedding.Dimensions)
	}
	if settings.Embedding.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	if settings.Embedding.Provider.RequiresAPIKey() {
		if settings.Embedding.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(settings.Embedding.APIKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	cmd.Println()

	cmd.Println("[Index]")
	cmd.Printf("  Backend: %s\n", settings.Index.Backend)
	switch settings.Index.Backend {
	case domain.IndexBackendSQLite:
		cmd.Printf("  Data dir: %s\n", valueOrUnset(settings.Index.DataDir))
	case domain.IndexBackendPgvector:
		cmd.Printf("  DSN: %s\n", maskDSN(settings.Index.PgvectorDSN))
	}
	cmd.Println()

	cmd.Println("[Context]")
	cmd.Printf("  Max chars: %d\n", settings.Context.MaxChars)
	cmd.Printf("  Top K: %d\n", settings.Context.TopK)
	cmd.Printf("  Default top N: %d\n", settings.Context.DefaultTopN)
	cmd.Printf("  Latest period default: %t\n", settings.Context.LatestPeriodDefault)
	cmd.Println()

	cmd.Println("[Indexing]")
	cmd.Printf("  Batch size: %d\n", settings.Indexing.BatchSize)
	cmd.Printf("  Concurrency: %d\n", settings.Indexing.Concurrency)
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	providerFlag, _ := cmd.Flags().GetString("provider") //nolint:errcheck // flag is registered
	model, _ := cmd.Flags().GetString("model")           //nolint:errcheck // flag is registered
	apiKey, _ := cmd.Flags().GetString("api-key")        //nolint:errcheck // flag is registered

	provider := domain.EmbeddingProvider(strings.ToLower(providerFlag))
	if providerFlag == "" {
		provider = chooseEmbeddingProvider(cmd, bufio.NewReader(cmd.InOrStdin()))
	}
	if !provider.IsValid() {
		return fmt.Errorf("unknown embedding provider %q: %w", providerFlag, domain.ErrUnsupportedType)
	}

	if provider.RequiresAPIKey() && apiKey == "" {
		// An environment key satisfies the provider at runtime without being stored.
		if current, err := settingsService.Get(); err == nil && current.Embedding.APIKey != "" {
			apiKey = current.Embedding.APIKey
		}
	}

	if err := settingsService.SetEmbeddingProvider(provider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	cmd.Printf("Embedding provider configured: %s (%s)\n", provider.Description(), settings.Embedding.Model)

	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateEmbeddingConfig(commandContext(cmd)); err != nil {
		cmd.Println("FAILED")
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("The setting was saved; check the provider before reindexing.")
		return nil
	}
	cmd.Println("OK")
	cmd.Println("Run 'quasar reindex --force' to rebuild the index with the new model.")
	return nil
}

func runSettingsDataset(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("provider") {
		v, _ := flags.GetString("provider") //nolint:errcheck // flag is registered
		p := domain.DatasetProviderType(strings.ToLower(v))
		if !p.IsValid() {
			return fmt.Errorf("unknown dataset provider %q: %w", v, domain.ErrUnsupportedType)
		}
		settings.Dataset.Provider = p
	}
	if flags.Changed("dir") {
		settings.Dataset.CSVDir, _ = flags.GetString("dir") //nolint:errcheck // flag is registered
	}
	if flags.Changed("sheet-ids") {
		settings.Dataset.SheetIDs, _ = flags.GetStringSlice("sheet-ids") //nolint:errcheck // flag is registered
	}
	if flags.Changed("range") {
		settings.Dataset.SheetRange, _ = flags.GetString("range") //nolint:errcheck // flag is registered
	}
	if flags.Changed("credentials") {
		settings.Dataset.CredentialsFile, _ = flags.GetString("credentials") //nolint:errcheck // flag is registered
	}

	if err := settingsService.Save(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	cmd.Printf("Dataset provider set to: %s\n", settings.Dataset.Provider)
	return nil
}

func runSettingsIndex(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		v, _ := flags.GetString("backend") //nolint:errcheck // flag is registered
		b := domain.IndexBackend(strings.ToLower(v))
		if !b.IsValid() {
			return fmt.Errorf("unknown index backend %q: %w", v, domain.ErrUnsupportedType)
		}
		settings.Index.Backend = b
	}
	if flags.Changed("data-dir") {
		settings.Index.DataDir, _ = flags.GetString("data-dir") //nolint:errcheck // flag is registered
	}
	if flags.Changed("dsn") {
		settings.Index.PgvectorDSN, _ = flags.GetString("dsn") //nolint:errcheck // flag is registered
	}

	if err := settingsService.Save(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	cmd.Printf("Index backend set to: %s\n", settings.Index.Backend)
	return nil
}

func chooseEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) domain.EmbeddingProvider {
	cmd.Println("Select Embedding Provider")
	providers := domain.AllEmbeddingProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	cmd.Println()
	return providers[idx-1]
}

// Helper functions.

func readLine(reader *bufio.Reader) string {
	input, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return ""
	}
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

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// maskDSN hides the password of a postgres URL.
func maskDSN(dsn string) string {
	if dsn == "" {
		return "(not set)"
	}
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	creds := dsn[scheme+3 : at]
	if colon := strings.Index(creds, ":"); colon >= 0 {
		creds = creds[:colon] + ":****"
	}
	return dsn[:scheme+3] + creds + dsn[at:]
}

func valueOrUnset(v string) string {
	if v == "" {
		return "(not set)"
	}
	return v
}
