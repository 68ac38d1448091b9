package filecenter

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gobeaver/beaver-kit/config"
)

// DefaultBufferThreshold is the largest payload, in bytes, handed out as an
// in-memory buffer. Bigger files are streamed.
const DefaultBufferThreshold = 261120

// MaxBufferThreshold bounds the buffer threshold. Every upload allocates a
// buffer of that size to decide whether the file fits inline.
const MaxBufferThreshold = 16 << 20

// DefaultLocalBasePath is the local driver's root when none is configured.
const DefaultLocalBasePath = "./storage"

type Config struct {
	// Blob driver to use (memory, local, s3)
	Driver string `env:"FILECENTER_DRIVER,default:memory" validate:"required,oneof=memory local s3"`

	// Local driver configuration
	LocalBasePath string `env:"FILECENTER_LOCAL_BASE_PATH,default:./storage" validate:"required_if=Driver local"`

	// S3 driver configuration
	S3Region          string `env:"FILECENTER_S3_REGION,default:us-east-1"`
	S3Bucket          string `env:"FILECENTER_S3_BUCKET" validate:"required_if=Driver s3"`
	S3Prefix          string `env:"FILECENTER_S3_PREFIX"`
	S3Endpoint        string `env:"FILECENTER_S3_ENDPOINT"`
	S3AccessKeyID     string `env:"FILECENTER_S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"FILECENTER_S3_SECRET_ACCESS_KEY"`
	S3ForcePathStyle  bool   `env:"FILECENTER_S3_FORCE_PATH_STYLE,default:false"`

	// Metadata index (memory, badger)
	Index     string `env:"FILECENTER_INDEX,default:memory" validate:"required,oneof=memory badger"`
	IndexPath string `env:"FILECENTER_INDEX_PATH" validate:"required_if=Index badger"`

	// Payload handling
	BufferThreshold int64 `env:"FILECENTER_BUFFER_THRESHOLD,default:261120" validate:"gte=0,lte=16777216"`
	MaxFileSize     int64 `env:"FILECENTER_MAX_FILE_SIZE,default:0" validate:"gte=0"` // 0 = unlimited

	// Base64 encoded 32 byte key; empty stores blobs in the clear
	EncryptionKey string `env:"FILECENTER_ENCRYPTION_KEY" validate:"omitempty,base64"`

	// Secret the id-token key is derived from
	IDTokenSecret string `env:"FILECENTER_ID_TOKEN_SECRET" validate:"required,min=16"`

	// Durations use time.ParseDuration syntax
	TemporaryLifetime string `env:"FILECENTER_TEMPORARY_LIFETIME,default:1h" validate:"required"`
	SweepInterval     string `env:"FILECENTER_SWEEP_INTERVAL,default:1m"`
	CacheTTL          string `env:"FILECENTER_CACHE_TTL"` // empty disables the index cache
}

// GetConfig returns config loaded from environment
func GetConfig() (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks configuration validity
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	for name, value := range map[string]string{
		"temporary lifetime": c.TemporaryLifetime,
		"sweep interval":     c.SweepInterval,
		"cache ttl":          c.CacheTTL,
	} {
		if _, err := parseDuration(value); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if _, err := c.encryptionKey(); err != nil {
		return err
	}
	return nil
}

// encryptionKey decodes EncryptionKey, nil when unset.
func (c *Config) encryptionKey() ([]byte, error) {
	if c.EncryptionKey == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(c.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("encryption key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key: must decode to 32 bytes (got %d)", len(key))
	}
	return key, nil
}

// parseDuration treats the empty string as zero
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return d, nil
}
