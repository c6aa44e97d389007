package configuration_test

import (
	"os"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"

	"devboxctl/configuration"
	"devboxctl/errors"
)

func TestInitialize_TableDriven(t *testing.T) {
	tests := []struct {
		name       string
		env        map[string]string
		expectErr  bool
		errType    errors.ErrorType
		assertions func(*testing.T, *configuration.Config)
	}{
		{
			name: "Defaults with empty environment",
			env:  map[string]string{},
			assertions: func(t *testing.T, cfg *configuration.Config) {
				assert.Equal(t, "devbox", cfg.InstanceName)
				assert.Equal(t, "us-east-1", cfg.AWSRegion)
				assert.Equal(t, "info", cfg.LogLevel)
				assert.Equal(t, "https://api.ipify.org", cfg.IPLookupURL)
				assert.Equal(t, 22, cfg.SSHPort)
			},
		},
		{
			name: "Valid configuration from environment variables",
			env: map[string]string{
				"EC2_INSTANCE_NAME":     "workbench",
				"AWS_REGION":            "eu-west-1",
				"AWS_ACCESS_KEY_ID":     "AKIAEXAMPLE",
				"AWS_SECRET_ACCESS_KEY": "secret123",
				"AWS_ENDPOINT_URL":      "http://localhost:4566",
				"LOG_LEVEL":             "debug",
				"IP_LOOKUP_URL":         "https://checkip.example.com",
				"SSH_PORT":              "2222",
			},
			assertions: func(t *testing.T, cfg *configuration.Config) {
				assert.Equal(t, "workbench", cfg.InstanceName)
				assert.Equal(t, "eu-west-1", cfg.AWSRegion)
				assert.Equal(t, "AKIAEXAMPLE", cfg.AcessKeyID)
				assert.Equal(t, "secret123", cfg.AccessSecret)
				assert.Equal(t, "http://localhost:4566", cfg.EndpointURL)
				assert.Equal(t, "debug", cfg.LogLevel)
				assert.Equal(t, "https://checkip.example.com", cfg.IPLookupURL)
				assert.Equal(t, 2222, cfg.SSHPort)
			},
		},
		{
			name: "Invalid SSH_PORT",
			env: map[string]string{
				"SSH_PORT": "-5",
			},
			expectErr: true,
			errType:   errors.ErrConfigInvalid,
		},
		{
			name: "SSH_PORT above range",
			env: map[string]string{
				"SSH_PORT": "70000",
			},
			expectErr: true,
			errType:   errors.ErrConfigInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()

			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := configuration.Initialize()
			if tt.expectErr {
				assert.Error(t, err)
				if tt.errType != "" {
					assert.True(t, errors.Is(err, tt.errType))
				}
			} else {
				assert.NoError(t, err)
				if tt.assertions != nil {
					tt.assertions(t, cfg)
				}
			}
		})
	}
}

func TestInitialize_MissingEnvFileIsNotFatal(t *testing.T) {
	viper.Reset()

	dir := t.TempDir()
	wd, err := os.Getwd()
	assert.NoError(t, err)
	assert.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(wd) }()

	cfg, err := configuration.Initialize()
	assert.NoError(t, err)
	assert.Equal(t, "devbox", cfg.InstanceName)
}
