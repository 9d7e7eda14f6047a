package config

import (
	"encoding/base64"
	"fmt"
)

type Config struct {
	ServerAddr     string
	MongoURI       string
	DatabaseName   string
	SigningKey     []byte
	AllowedOrigins []string
	// RedisAddr enables the cross-instance broadcast bridge when set.
	RedisAddr string
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(base64Secret)
}

func NewConfig(serverAddr, mongoURI, databaseName, base64Secret string, allowedOrigins []string, redisAddr string) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if mongoURI == "" {
		return nil, fmt.Errorf("mongo URI cannot be empty")
	}
	if databaseName == "" {
		return nil, fmt.Errorf("database name cannot be empty")
	}
	if base64Secret == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}

	signingKey, err := decodeSigningSecret(base64Secret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}

	return &Config{
		ServerAddr:     serverAddr,
		MongoURI:       mongoURI,
		DatabaseName:   databaseName,
		SigningKey:     signingKey,
		AllowedOrigins: allowedOrigins,
		RedisAddr:      redisAddr,
	}, nil
}
