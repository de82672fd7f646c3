package config

import "github.com/aws/aws-sdk-go-v2/service/s3"

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type S3Config struct {
	Bucket   string `yaml:"bucket"`
	Client   *s3.Client
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
	Local    bool   `yaml:"local"`
}

type JWTConfig struct {
	SecretKey      string `yaml:"secret_key"`
	AccessTokenTTL string `yaml:"access_token_ttl"`
}

// LimitsConfig : ограничения на вложения, проверяются на клиенте и повторно на сервере
type LimitsConfig struct {
	MaxFilesPerOwner int   `yaml:"max_files_per_owner"`
	MaxSizeMB        int64 `yaml:"max_size_mb"`
}

// MaxSizeBytes : лимит размера одного файла в байтах
func (l *LimitsConfig) MaxSizeBytes() int64 {
	return l.MaxSizeMB * 1024 * 1024
}

type TTL struct {
	S3AndRedis int `yaml:"s3_and_redis"`
}
