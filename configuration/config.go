package configuration

import (
	"os"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"devboxctl/errors"
)

const (
	packageName = "configuration"
)

// Config holds the application configuration
type Config struct {
	InstanceName string
	AWSRegion    string
	AcessKeyID   string
	AccessSecret string
	EndpointURL  string
	LogLevel     string
	IPLookupURL  string
	SSHPort      int
}

// Initialize sets up the configuration system
func Initialize() (*Config, error) {
	logger := zap.L().With(
		zap.String("package", packageName),
		zap.String("function", "Initialize"),
	)

	// Set default values
	viper.SetDefault("EC2_INSTANCE_NAME", "devbox")
	viper.SetDefault("AWS_REGION", "us-east-1")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("IP_LOOKUP_URL", "https://api.ipify.org")
	viper.SetDefault("SSH_PORT", 22)

	// Configure Viper to read from environment
	viper.AutomaticEnv()

	// Read from .env file. Viper reports a missing explicit file as a
	// plain path error, not ConfigFileNotFoundError.
	viper.SetConfigFile(".env")
	if err := viper.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !notFound && !os.IsNotExist(err) {
			return nil, errors.New(errors.ErrConfigParse, "error reading config file",
				map[string]interface{}{
					"config_file": ".env",
				}, err)
		}
		logger.Info("No .env file found, using environment variables and defaults",
			zap.String("operation", "config_loading"),
		)
	}

	// Validate instance name
	instanceName := viper.GetString("EC2_INSTANCE_NAME")
	if instanceName == "" {
		return nil, errors.New(errors.ErrConfigInvalid, "invalid EC2_INSTANCE_NAME",
			map[string]interface{}{
				"config_key": "EC2_INSTANCE_NAME",
			}, nil)
	}

	// Validate region
	region := viper.GetString("AWS_REGION")
	if region == "" {
		return nil, errors.New(errors.ErrConfigInvalid, "invalid AWS_REGION",
			map[string]interface{}{
				"config_key": "AWS_REGION",
			}, nil)
	}

	// Validate the IP lookup endpoint
	ipLookupURL := viper.GetString("IP_LOOKUP_URL")
	if ipLookupURL == "" {
		return nil, errors.New(errors.ErrConfigInvalid, "invalid IP_LOOKUP_URL",
			map[string]interface{}{
				"config_key": "IP_LOOKUP_URL",
			}, nil)
	}

	// Validate SSH port
	sshPort := viper.GetInt("SSH_PORT")
	if sshPort <= 0 || sshPort > 65535 {
		return nil, errors.New(errors.ErrConfigInvalid, "invalid SSH_PORT",
			map[string]interface{}{
				"config_key": "SSH_PORT",
				"value":      sshPort,
			}, nil)
	}

	config := &Config{
		InstanceName: instanceName,
		AWSRegion:    region,
		AccessSecret: viper.GetString("AWS_SECRET_ACCESS_KEY"),
		AcessKeyID:   viper.GetString("AWS_ACCESS_KEY_ID"),
		EndpointURL:  viper.GetString("AWS_ENDPOINT_URL"),
		LogLevel:     viper.GetString("LOG_LEVEL"),
		IPLookupURL:  ipLookupURL,
		SSHPort:      sshPort,
	}

	logger.Info("Configuration loaded successfully",
		zap.String("operation", "config_complete"),
		zap.String("instance_name", instanceName),
		zap.String("region", region),
	)
	return config, nil
}
