package cmd

import (
	"os"
	"time"

	"github.com/shieldsec/shield-cli/internal/domain/assessment"
	consts "github.com/shieldsec/shield-cli/internal/shared/constants"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultAPITimeoutSeconds    = int(consts.DefaultHTTPTimeout / time.Second)
	defaultSubmitTimeoutSeconds = int(consts.DefaultSubmitTimeout / time.Second)
	defaultAPIRateLimit         = 0
)

// CLIConfig captures runtime configuration shared across commands.
type CLIConfig struct {
	API      APIConfig
	Defaults DefaultValues
}

// APIConfig describes how to reach the SHIELD backend.
type APIConfig struct {
	BaseURL     string
	TimeoutSecs int
	RateLimit   int
	Token       string
}

// DefaultValues represent operator-level defaults, typically derived from env/config.
type DefaultValues struct {
	Operator          string
	AssessmentType    string
	SubmitTimeoutSecs int
	Output            string
	DataDir           string
}

func (c *CLIConfig) apiTimeout() time.Duration {
	return time.Duration(c.API.TimeoutSecs) * time.Second
}

func (c *CLIConfig) submitTimeout() time.Duration {
	return time.Duration(c.Defaults.SubmitTimeoutSecs) * time.Second
}

type defaultOverrides struct {
	BaseURL           string
	TimeoutSecs       *int
	RateLimit         *int
	Token             string
	Operator          string
	AssessmentType    string
	SubmitTimeoutSecs *int
	Output            string
	DataDir           string
}

var cliConfig = newCLIConfig()

func newCLIConfig() *CLIConfig {
	return &CLIConfig{
		API: APIConfig{
			BaseURL:     consts.DefaultAPIBaseURL,
			TimeoutSecs: defaultAPITimeoutSeconds,
			RateLimit:   defaultAPIRateLimit,
		},
		Defaults: DefaultValues{
			Operator:          detectOperatorFromEnv(),
			AssessmentType:    assessment.DefaultType.String(),
			SubmitTimeoutSecs: defaultSubmitTimeoutSeconds,
			Output:            string(outputTable),
		},
	}
}

func detectOperatorFromEnv() string {
	if env := os.Getenv("USER"); env != "" {
		return env
	}
	if env := os.Getenv("LOGNAME"); env != "" {
		return env
	}
	return ""
}

// bindEnv maps the documented SHIELD_* variables onto config keys.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("SHIELD")
	_ = v.BindEnv("api.base_url", "SHIELD_API_URL")
	_ = v.BindEnv("api.token", "SHIELD_TOKEN")
	_ = v.BindEnv("api.timeout_secs", "SHIELD_API_TIMEOUT")
	_ = v.BindEnv("api.rate_limit", "SHIELD_API_RATE_LIMIT")
	_ = v.BindEnv("defaults.assessment_type", "SHIELD_ASSESSMENT_TYPE")
	_ = v.BindEnv("defaults.submit_timeout_secs", "SHIELD_SUBMIT_TIMEOUT")
	_ = v.BindEnv("defaults.operator", "SHIELD_OPERATOR")
	_ = v.BindEnv("defaults.output", "SHIELD_OUTPUT")
	_ = v.BindEnv("data_dir", dataDirEnvVar)
}

func loadDefaultOverrides(v *viper.Viper) defaultOverrides {
	overrides := defaultOverrides{}

	if v.IsSet("api.base_url") {
		overrides.BaseURL = v.GetString("api.base_url")
	}

	if v.IsSet("api.timeout_secs") {
		val := v.GetInt("api.timeout_secs")
		overrides.TimeoutSecs = &val
	}

	if v.IsSet("api.rate_limit") {
		val := v.GetInt("api.rate_limit")
		overrides.RateLimit = &val
	}

	if v.IsSet("api.token") {
		overrides.Token = v.GetString("api.token")
	}

	if v.IsSet("defaults.operator") {
		overrides.Operator = v.GetString("defaults.operator")
	}

	if v.IsSet("defaults.assessment_type") {
		overrides.AssessmentType = v.GetString("defaults.assessment_type")
	}

	if v.IsSet("defaults.submit_timeout_secs") {
		val := v.GetInt("defaults.submit_timeout_secs")
		overrides.SubmitTimeoutSecs = &val
	}

	if v.IsSet("defaults.output") {
		overrides.Output = v.GetString("defaults.output")
	}

	if v.IsSet("data_dir") {
		overrides.DataDir = v.GetString("data_dir")
	}

	return overrides
}

// applyConfigDefaults merges config file and environment values into the
// runtime config when the user did not explicitly set the corresponding flag.
func applyConfigDefaults(cmd *cobra.Command, v *viper.Viper) {
	overrides := loadDefaultOverrides(v)
	flags := cmd.Flags()

	if overrides.BaseURL != "" {
		applyStringDefault(flags, "api-url", overrides.BaseURL, func(s string) {
			cliConfig.API.BaseURL = s
		})
	}

	if overrides.TimeoutSecs != nil && *overrides.TimeoutSecs > 0 {
		applyIntDefault(flags, "timeout", *overrides.TimeoutSecs, func(n int) {
			cliConfig.API.TimeoutSecs = n
		})
	}

	if overrides.RateLimit != nil && *overrides.RateLimit >= 0 {
		applyIntDefault(flags, "rate-limit", *overrides.RateLimit, func(n int) {
			cliConfig.API.RateLimit = n
		})
	}

	if overrides.Token != "" {
		applyStringDefault(flags, "token", overrides.Token, func(s string) {
			cliConfig.API.Token = s
		})
	}

	if overrides.Operator != "" {
		applyStringDefault(flags, "operator", overrides.Operator, func(s string) {
			cliConfig.Defaults.Operator = s
		})
	}

	if overrides.AssessmentType != "" {
		if t, err := assessment.ParseType(overrides.AssessmentType); err == nil {
			applyStringDefault(flags, "type", t.String(), func(s string) {
				cliConfig.Defaults.AssessmentType = s
			})
		}
	}

	if overrides.SubmitTimeoutSecs != nil && *overrides.SubmitTimeoutSecs > 0 {
		applyIntDefault(flags, "submit-timeout", *overrides.SubmitTimeoutSecs, func(n int) {
			cliConfig.Defaults.SubmitTimeoutSecs = n
		})
	}

	if overrides.Output != "" {
		if f, err := parseOutputFormat(overrides.Output); err == nil {
			applyStringDefault(flags, "output", string(f), func(s string) {
				cliConfig.Defaults.Output = s
			})
		}
	}

	if overrides.DataDir != "" {
		cliConfig.Defaults.DataDir = overrides.DataDir
	}
}

func applyIntDefault(flags *pflag.FlagSet, name string, value int, setter func(int)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func applyStringDefault(flags *pflag.FlagSet, name, value string, setter func(string)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}
