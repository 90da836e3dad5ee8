package codegen

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	FileNamingCamelCase = "camelCase"
	FileNamingKebabCase = "kebab-case"

	DefaultK6Version = "0.48.0"
)

var (
	classSuffixPattern = regexp.MustCompile(`^[a-zA-Z0-9]*$`)
	fileSuffixPattern  = regexp.MustCompile(`^[a-zA-Z0-9.-]*$`)
)

// Options is the process-wide generator configuration. It is fixed before the
// pass runs and never mutated by it.
type Options struct {
	FileNaming      string            `yaml:"fileNaming" env:"FILE_NAMING" validate:"oneof=camelCase kebab-case"`
	TaggedUnions    bool              `yaml:"taggedUnions" env:"TAGGED_UNIONS"`
	StringEnums     bool              `yaml:"stringEnums" env:"STRING_ENUMS"`
	UseJslib        bool              `yaml:"useJslib" env:"USE_JSLIB"`
	K6Version       string            `yaml:"k6Version" env:"K6_VERSION"`
	ModelSuffix     string            `yaml:"modelSuffix" env:"MODEL_SUFFIX" validate:"classsuffix"`
	ModelFileSuffix string            `yaml:"modelFileSuffix" env:"MODEL_FILE_SUFFIX" validate:"filesuffix"`
	ModelNamePrefix string            `yaml:"modelNamePrefix" env:"MODEL_NAME_PREFIX" validate:"classsuffix"`
	ModelNameSuffix string            `yaml:"modelNameSuffix" env:"MODEL_NAME_SUFFIX" validate:"classsuffix"`
	ImportMapping   map[string]string `yaml:"importMapping" env:"IMPORT_MAPPING" envKeyValSeparator:"="`
	ModelPackage    string            `yaml:"modelPackage" env:"MODEL_PACKAGE" validate:"required"`
	APIPackage      string            `yaml:"apiPackage" env:"API_PACKAGE" validate:"required"`
}

// DefaultOptions mirrors the generator's documented defaults.
func DefaultOptions() Options {
	return Options{
		FileNaming:   FileNamingCamelCase,
		UseJslib:     true,
		K6Version:    DefaultK6Version,
		ModelPackage: "model",
		APIPackage:   "api",
	}
}

// EnumSeparator joins a model name and an inline enum name when referencing
// the enum type. String enums are emitted at the top level, so no separator.
func (o Options) EnumSeparator() string {
	if o.StringEnums {
		return ""
	}
	return "."
}

// ConfigError reports a configuration value the generator cannot run with.
type ConfigError struct {
	Argument string
	Value    string
	Message  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Argument, e.Value, e.Message)
}

var optionsValidator = newOptionsValidator()

func newOptionsValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	mustRegister(v, "classsuffix", classSuffixPattern)
	mustRegister(v, "filesuffix", fileSuffixPattern)
	return v
}

func mustRegister(v *validator.Validate, tag string, re *regexp.Regexp) {
	err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	})
	if err != nil {
		panic(err)
	}
}

// Validate checks the options and returns a *ConfigError for the first
// offending value.
func (o Options) Validate() error {
	err := optionsValidator.Struct(o)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	return &ConfigError{
		Argument: fe.Field(),
		Value:    fmt.Sprint(fe.Value()),
		Message:  validationMessage(fe),
	}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "classsuffix":
		return "class suffix only allows alphanumeric characters"
	case "filesuffix":
		return "file suffix only allows '.', '-' and alphanumeric characters"
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(fe.Param()), ", ")
	case "required":
		return "must not be empty"
	}
	return "failed " + fe.Tag() + " validation"
}
