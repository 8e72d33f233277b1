package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	DataDir   string
	Store     StoreConfig
	Assets    AssetsConfig
	Extractor ExtractorConfig
	Cache     CacheConfig
	Defaults  Defaults
}

type StoreConfig struct {
	Driver string // file, sqlite, postgres or mysql
	DSN    string // connection string for SQL drivers; file path for sqlite
	Dir    string // directory for the file driver
}

type AssetsConfig struct {
	Driver string // dir or s3
	Dir    string
	S3     S3Config
}

type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string // optional, for MinIO and other S3-compatible services
	Prefix    string // key prefix inside the bucket
	PathStyle bool
}

type ExtractorConfig struct {
	URL string // defaults to http://localhost:8000
}

type CacheConfig struct {
	Driver string // none, file or postgres
	Path   string // gob file for the file driver
}

// Defaults holds tunables shipped in defaults.yaml. Environment variables override
// selected fields in Load.
type Defaults struct {
	Matching  MatchingConfig  `yaml:"matching"`
	Images    ImagesConfig    `yaml:"images"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Admin     AdminConfig     `yaml:"admin"`
}

type MatchingConfig struct {
	Tolerance      float64 `yaml:"tolerance"`
	Index          string  `yaml:"index"` // linear or hnsw
	HNSWCandidates int     `yaml:"hnsw_candidates"`
}

type ImagesConfig struct {
	Extensions        []string `yaml:"extensions"`
	FallbackExtension string   `yaml:"fallback_extension"`
	MaxProbeSize      int      `yaml:"max_probe_size"`
}

type AnalyticsConfig struct {
	TopStudents   int `yaml:"top_students"`
	RecentRecords int `yaml:"recent_records"`
}

// AdminConfig is the credential seeded into an empty credentials collection.
type AdminConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
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

// envFloat reads a positive float from the environment, falling back to defaultVal.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func parseDefaults() Defaults {
	var d Defaults
	if err := yaml.Unmarshal(defaultsYAML, &d); err != nil {
		// Embedded file, so this only fails on a broken build.
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return d
}

func Load() *Config {
	defaults := parseDefaults()
	defaults.Matching.Tolerance = envFloat("MATCH_TOLERANCE", defaults.Matching.Tolerance)
	defaults.Matching.Index = strings.ToLower(envString("INDEX_BACKEND", defaults.Matching.Index))
	defaults.Matching.HNSWCandidates = envInt("HNSW_CANDIDATES", defaults.Matching.HNSWCandidates)
	defaults.Images.MaxProbeSize = envInt("MAX_PROBE_SIZE", defaults.Images.MaxProbeSize)
	defaults.Admin.Username = envString("ADMIN_USERNAME", defaults.Admin.Username)
	defaults.Admin.Password = envString("ADMIN_PASSWORD", defaults.Admin.Password)

	dataDir := envString("DATA_DIR", "data")
	storeDriver := strings.ToLower(envString("STORE_DRIVER", "file"))
	storeDSN := os.Getenv("STORE_DSN")
	if storeDSN == "" && storeDriver == "sqlite" {
		storeDSN = filepath.Join(dataDir, "attendance.db")
	}

	return &Config{
		DataDir: dataDir,
		Store: StoreConfig{
			Driver: storeDriver,
			DSN:    storeDSN,
			Dir:    dataDir,
		},
		Assets: AssetsConfig{
			Driver: strings.ToLower(envString("ASSETS_DRIVER", "dir")),
			Dir:    envString("ASSETS_DIR", filepath.Join(dataDir, "known_faces")),
			S3: S3Config{
				Bucket:    os.Getenv("ASSETS_S3_BUCKET"),
				Region:    envString("ASSETS_S3_REGION", "us-east-1"),
				Endpoint:  os.Getenv("ASSETS_S3_ENDPOINT"),
				Prefix:    os.Getenv("ASSETS_S3_PREFIX"),
				PathStyle: strings.EqualFold(os.Getenv("ASSETS_S3_PATH_STYLE"), "true"),
			},
		},
		Extractor: ExtractorConfig{
			URL: os.Getenv("EMBEDDING_URL"),
		},
		Cache: CacheConfig{
			Driver: strings.ToLower(envString("EMBEDDING_CACHE", "none")),
			Path:   envString("EMBEDDING_CACHE_PATH", filepath.Join(dataDir, "embeddings.gob")),
		},
		Defaults: defaults,
	}
}

// IsAllowedExtension reports whether ext (with leading dot, any case) is an accepted image extension.
func (c *ImagesConfig) IsAllowedExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range c.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// NormalizeExtension lower-cases ext and coerces anything not accepted to the fallback extension.
func (c *ImagesConfig) NormalizeExtension(ext string) string {
	ext = strings.ToLower(ext)
	if c.IsAllowedExtension(ext) {
		return ext
	}
	return c.FallbackExtension
}
