package codegen

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Options)
		argument string
		value    string
	}{
		{name: "defaults"},
		{name: "alphanumeric model suffix", mutate: func(o *Options) { o.ModelSuffix = "Model2" }},
		{name: "file suffix with dot and dash", mutate: func(o *Options) { o.ModelFileSuffix = ".model-v1" }},
		{name: "kebab case", mutate: func(o *Options) { o.FileNaming = FileNamingKebabCase }},
		{
			name:     "model suffix with underscore",
			mutate:   func(o *Options) { o.ModelSuffix = "Model_2" },
			argument: "modelSuffix",
			value:    "Model_2",
		},
		{
			name:     "file suffix with slash",
			mutate:   func(o *Options) { o.ModelFileSuffix = "/model" },
			argument: "modelFileSuffix",
			value:    "/model",
		},
		{
			name:     "name prefix with dash",
			mutate:   func(o *Options) { o.ModelNamePrefix = "my-api" },
			argument: "modelNamePrefix",
			value:    "my-api",
		},
		{
			name:     "unknown file naming",
			mutate:   func(o *Options) { o.FileNaming = "snake_case" },
			argument: "fileNaming",
			value:    "snake_case",
		},
		{
			name:     "empty model package",
			mutate:   func(o *Options) { o.ModelPackage = "" },
			argument: "modelPackage",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			if tt.mutate != nil {
				tt.mutate(&opts)
			}
			err := opts.Validate()
			if tt.argument == "" {
				assert.NoError(t, err)
				return
			}
			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr), "expected ConfigError, got %v", err)
			assert.Equal(t, tt.argument, cfgErr.Argument)
			assert.Equal(t, tt.value, cfgErr.Value)
			assert.Contains(t, err.Error(), tt.argument)
		})
	}
}

func TestNew_RejectsInvalidOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.ModelSuffix = "Model_2"
	p, err := New(opts)
	assert.Nil(t, p)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Message, "alphanumeric")
}

func TestOptions_EnumSeparator(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, ".", opts.EnumSeparator())
	opts.StringEnums = true
	assert.Equal(t, "", opts.EnumSeparator())
}
