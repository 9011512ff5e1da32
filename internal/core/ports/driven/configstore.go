package driven

// ConfigStore holds quasar's settings as a flat set of dotted keys such as
// "embedding.provider", "context.max_chars" or "index.backend".
//
// Reads may be overridden by the environment: the file-backed store checks
// QUASAR_<KEY> (dots and dashes become underscores, so "context.max_chars"
// is QUASAR_CONTEXT_MAX_CHARS) on every read, then the stored value, then a
// conventional variable for a few secrets (OPENAI_API_KEY, DATABASE_URL).
// Overrides are never written back by Set or Save.
type ConfigStore interface {
	// Get returns the effective value for key and whether any source set it.
	Get(key string) (any, bool)

	// GetString returns "" when key is unset or not a string.
	GetString(key string) string

	// GetInt parses environment strings; it returns 0 when key is unset or
	// not an integer, which callers treat as "use the default".
	GetInt(key string) int

	// GetBool parses environment strings with strconv.ParseBool.
	GetBool(key string) bool

	// GetStringSlice accepts a comma-separated environment value.
	GetStringSlice(key string) []string

	// Set stores value under key and persists it.
	Set(key string, value any) error

	// Save writes the stored values, nested by key segment, to Path.
	Save() error

	// Load replaces the stored values with the contents of Path.
	// A missing file is an empty configuration.
	Load() error

	// Path is the backing file. The in-memory store reports ":memory:".
	Path() string
}
