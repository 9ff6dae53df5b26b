package config

import "github.com/kelseyhightower/envconfig"

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port     int    `envconfig:"PORT" default:"8888"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Version  string `envconfig:"VERSION" default:"dev"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// MaxUploadSize bounds the whole publish body, metadata block included.
	MaxUploadSize int64 `envconfig:"MAX_UPLOAD_SIZE" default:"10485760"`

	// IndexPath is a git checkout of the registry index with a remote
	// named "origin" configured for push.
	IndexPath   string `envconfig:"INDEX_PATH" required:"true"`
	IndexBranch string `envconfig:"INDEX_BRANCH" default:"master"`

	// StorageBackend selects "s3" or "local".
	StorageBackend string `envconfig:"STORAGE_BACKEND" default:"local"`
	StorageDir     string `envconfig:"STORAGE_DIR" default:"./dist/storage"`
	S3Bucket       string `envconfig:"S3_BUCKET" default:""`
	S3Region       string `envconfig:"S3_REGION" default:""`
	S3AccessKey    string `envconfig:"S3_ACCESS_KEY" default:""`
	S3SecretKey    string `envconfig:"S3_SECRET_KEY" default:""`

	GithubClientID     string `envconfig:"GH_CLIENT_ID" default:""`
	GithubClientSecret string `envconfig:"GH_CLIENT_SECRET" default:""`

	BcryptCost int `envconfig:"BCRYPT_COST" default:"12"`
}

// Load reads configuration from environment variables into a Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
