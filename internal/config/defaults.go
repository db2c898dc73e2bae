package config

// Default values applied when the config file leaves fields unset.
const (
	// DefaultMaxLength is the tokenizer sequence cap used when none is configured.
	DefaultMaxLength = 512
	// DefaultEndpoint is the artifact hub queried for model files.
	DefaultEndpoint = "https://huggingface.co"
	// DefaultMemoryCacheSize is the embedding LRU capacity.
	DefaultMemoryCacheSize = 1024
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Model.MaxLength == 0 {
		cfg.Model.MaxLength = DefaultMaxLength
	}
	if cfg.Model.Endpoint == "" {
		cfg.Model.Endpoint = DefaultEndpoint
	}
	if cfg.Model.CacheDir == "" {
		cfg.Model.CacheDir = ".cache/semblance/models"
	}
	if cfg.Cache.MemorySize == 0 {
		cfg.Cache.MemorySize = DefaultMemoryCacheSize
	}
}
