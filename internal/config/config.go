package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

//go:embed engines.yaml
var enginesYAML []byte

// appName is used for xdg directory resolution.
const appName = "facetrace"

type Config struct {
	Embedding EmbeddingConfig
	OpenAI    OpenAIConfig
	Gemini    GeminiConfig
	SerpAPI   SerpAPIConfig
	Registry  RegistryConfig
	Publish   PublishConfig
	Session   SessionConfig
	Engines   EnginesConfig
}

type EmbeddingConfig struct {
	URL     string // face embedding server, defaults to http://localhost:8000
	FaceDim int    // expected face embedding dimension (model-defined)
}

type OpenAIConfig struct {
	Token string
}

type GeminiConfig struct {
	APIKey string
}

type SerpAPIConfig struct {
	Key string // metered reverse-image API; engine is skipped when empty
}

type RegistryConfig struct {
	URL string // postgres://, mysql:// or a sqlite file path
}

type PublishConfig struct {
	Strategy      string // self-host | anonhost | auto
	PublicBaseURL string // externally reachable base URL for self-hosted publications
	AnonHostURL   string // anonymous upload endpoint for the fallback publisher
	SpoolDir      string // where self-hosted publications are spooled on disk
}

type SessionConfig struct {
	Budget            time.Duration // overall per-session time budget
	EngineTimeout     time.Duration // per-engine search timeout
	MinFreeResults    int           // metered engine runs only below this unique-result count
	VerifyConcurrency int           // candidate verification worker cap
	MaxDownloadBytes  int64         // per-candidate download size cap
}

// EnginesConfig comes from the embedded engines.yaml.
type EnginesConfig struct {
	Engines []EngineSpec `yaml:"engines"`
}

// EngineSpec describes one reverse-image-search backend.
type EngineSpec struct {
	Name    string `yaml:"name"`
	Enabled bool   `yaml:"enabled"`
	Metered bool   `yaml:"metered"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envDuration reads an environment variable and parses it as a duration.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

// envString reads an environment variable with a default.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// DataDir returns the xdg data directory for facetrace.
func DataDir() string {
	return filepath.Join(xdg.DataHome, appName)
}

// CacheDir returns the xdg cache directory for facetrace.
func CacheDir() string {
	return filepath.Join(xdg.CacheHome, appName)
}

func Load() *Config {
	var engines EnginesConfig
	if err := yaml.Unmarshal(enginesYAML, &engines); err != nil {
		// Embedded file, so a parse failure is a build defect.
		panic("failed to unmarshal embedded engines.yaml: " + err.Error())
	}

	return &Config{
		Embedding: EmbeddingConfig{
			URL:     envString("EMBEDDING_URL", "http://localhost:8000"),
			FaceDim: envInt("FACE_EMBEDDING_DIM", 2622),
		},
		OpenAI: OpenAIConfig{
			Token: os.Getenv("OPENAI_TOKEN"),
		},
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
		},
		SerpAPI: SerpAPIConfig{
			Key: os.Getenv("SERPAPI_KEY"),
		},
		Registry: RegistryConfig{
			URL: envString("REGISTRY_URL", filepath.Join(DataDir(), "threat_domains.db")),
		},
		Publish: PublishConfig{
			Strategy:      envString("PUBLISH_STRATEGY", "self-host"),
			PublicBaseURL: os.Getenv("PUBLIC_BASE_URL"),
			AnonHostURL:   envString("ANONHOST_URL", "https://0x0.st"),
			SpoolDir:      envString("PUBLISH_SPOOL_DIR", filepath.Join(CacheDir(), "spool")),
		},
		Session: SessionConfig{
			Budget:            envDuration("SESSION_BUDGET", 90*time.Second),
			EngineTimeout:     envDuration("ENGINE_TIMEOUT", 20*time.Second),
			MinFreeResults:    envInt("MIN_FREE_RESULTS", 5),
			VerifyConcurrency: envInt("VERIFY_CONCURRENCY", 4),
			MaxDownloadBytes:  int64(envInt("MAX_DOWNLOAD_BYTES", 10*1024*1024)),
		},
		Engines: engines,
	}
}
