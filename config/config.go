package config

import (
	"github.com/IGLOU-EU/go-wildcard/v2"
)

type Config struct {
	Address string `json:"address" env:"APP_ADDRESS"`
	Prefork bool   `json:"prefork" env:"APP_PREFORK"`
	Metrics *bool  `json:"metrics" env:"APP_METRICS"`

	// FunctionName identifies the deployed hook; it decides the bucket.
	FunctionName     string `json:"functionName" env:"APP_FUNCTION_NAME"`
	StagingPattern   string `json:"stagingPattern" env:"APP_STAGING_PATTERN" envDefault:"*staging*"`
	StagingBucket    string `json:"stagingBucket" env:"APP_STAGING_BUCKET"`
	ProductionBucket string `json:"productionBucket" env:"APP_PRODUCTION_BUCKET"`

	S3Endpoint  string `json:"s3Endpoint" env:"APP_S3_ENDPOINT" envDefault:"s3.amazonaws.com"`
	S3AccessKey string `json:"s3AccessKey" env:"APP_S3_ACCESS_KEY"`
	S3SecretKey string `json:"s3SecretKey" env:"APP_S3_SECRET_KEY"`
	S3Region    string `json:"s3Region" env:"APP_S3_REGION" envDefault:"us-east-1"`
	S3UseSSL    bool   `json:"s3UseSsl" env:"APP_S3_USE_SSL" envDefault:"true"`

	// InlineLimit is the largest encoded size, in bytes, served inline.
	InlineLimit int `json:"inlineLimit" env:"APP_INLINE_LIMIT" envDefault:"1048576"`
	Quality     int `json:"quality" env:"APP_QUALITY" envDefault:"95"`
}

// Bucket picks the staging bucket when the function name matches the
// staging pattern and the production bucket otherwise.
func (c *Config) Bucket() string {
	if c.StagingPattern != "" && wildcard.Match(c.StagingPattern, c.FunctionName) {
		return c.StagingBucket
	}

	return c.ProductionBucket
}
