// Package config merges cobra command-line flags, environment variables,
// and an optional ompc.toml file into a single Options value the build
// driver runs with. Never panics; every failure comes back as an error.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// Options is the fully-merged configuration for one ompc invocation.
type Options struct {
	ModelName    string
	SourceDir    string
	OutputDir    string
	Providers    []string
	Languages    []string
	EventTrace   bool
	IndexErrors  bool
	LogLevel     string
	LogDir       string
	MessageIniIn string
}

// fileOptions is the ompc.toml decode target; same one-struct-per-table
// idiom as the teacher's TOML schema parser.
type fileOptions struct {
	Model struct {
		Name      string   `toml:"name"`
		SourceDir string   `toml:"source_dir"`
		OutputDir string   `toml:"output_dir"`
		Providers []string `toml:"providers"`
		Languages []string `toml:"languages"`
	} `toml:"model"`
	Build struct {
		EventTrace  string `toml:"event_trace"`
		IndexErrors string `toml:"index_errors"`
	} `toml:"build"`
	Log struct {
		Level string `toml:"level"`
		Dir   string `toml:"dir"`
	} `toml:"log"`
	I18n struct {
		MessageIniIn string `toml:"message_ini_in"`
	} `toml:"i18n"`
}

// Flags mirrors the subset of cobra flag values config.Load needs;
// callers populate it from *cobra.Command's own flag lookups before
// calling Load, keeping this package independent of cobra's own types.
type Flags struct {
	ModelName    string
	SourceDir    string
	OutputDir    string
	Providers    []string
	Languages    []string
	EventTrace   *bool
	IndexErrors  *bool
	LogLevel     string
	LogDir       string
	MessageIniIn string
	TOMLPath     string
}

// Load merges flags (highest precedence), then OMPC_*-prefixed
// environment variables via viper, then the TOML file named by
// flags.TOMLPath (defaults to "ompc.toml", missing file is not an
// error), into a complete Options.
func Load(flags Flags) (Options, error) {
	v := viper.New()
	v.SetEnvPrefix("OMPC")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	tomlPath := flags.TOMLPath
	if tomlPath == "" {
		tomlPath = "ompc.toml"
	}

	var fo fileOptions
	if data, err := os.ReadFile(tomlPath); err == nil {
		if _, err := toml.Decode(string(data), &fo); err != nil {
			return Options{}, fmt.Errorf("config: decode %s: %w", tomlPath, err)
		}
	} else if !os.IsNotExist(err) {
		return Options{}, fmt.Errorf("config: read %s: %w", tomlPath, err)
	}

	opts := Options{
		ModelName:    firstNonEmpty(flags.ModelName, v.GetString("model_name"), fo.Model.Name),
		SourceDir:    firstNonEmpty(flags.SourceDir, v.GetString("source_dir"), fo.Model.SourceDir),
		OutputDir:    firstNonEmpty(flags.OutputDir, v.GetString("output_dir"), fo.Model.OutputDir, "."),
		Providers:    firstNonEmptySlice(flags.Providers, fo.Model.Providers),
		Languages:    firstNonEmptySlice(flags.Languages, fo.Model.Languages),
		LogLevel:     firstNonEmpty(flags.LogLevel, v.GetString("log_level"), fo.Log.Level, "info"),
		LogDir:       firstNonEmpty(flags.LogDir, v.GetString("log_dir"), fo.Log.Dir),
		MessageIniIn: firstNonEmpty(flags.MessageIniIn, v.GetString("message_ini_in"), fo.I18n.MessageIniIn),
	}

	eventTrace, err := resolveBool(flags.EventTrace, v, "event_trace", fo.Build.EventTrace, false)
	if err != nil {
		return Options{}, err
	}
	opts.EventTrace = eventTrace

	indexErrors, err := resolveBool(flags.IndexErrors, v, "index_errors", fo.Build.IndexErrors, true)
	if err != nil {
		return Options{}, err
	}
	opts.IndexErrors = indexErrors

	if opts.ModelName == "" {
		return Options{}, fmt.Errorf("config: model name is required (flag, OMPC_MODEL_NAME, or [model].name in %s)", tomlPath)
	}
	return opts, nil
}

// resolveBool picks the flag value if the caller set one, else an
// OMPC_<key> env var if set, else the TOML string (parsed with
// ParseBool's rules), else def.
func resolveBool(flagVal *bool, v *viper.Viper, envKey, tomlVal string, def bool) (bool, error) {
	if flagVal != nil {
		return *flagVal, nil
	}
	if v.IsSet(envKey) {
		return ParseBool(v.GetString(envKey))
	}
	if tomlVal != "" {
		return ParseBool(tomlVal)
	}
	return def, nil
}

// ParseBool accepts the same vocabulary the original argument/ini reader
// does: empty, "1", "yes", "true" (case-insensitive) are true; "0",
// "no", "false" are false; anything else is an error.
func ParseBool(s string) (bool, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || strings.EqualFold(trimmed, "1") || strings.EqualFold(trimmed, "yes") || strings.EqualFold(trimmed, "true") {
		return true, nil
	}
	if strings.EqualFold(trimmed, "0") || strings.EqualFold(trimmed, "no") || strings.EqualFold(trimmed, "false") {
		return false, nil
	}
	return false, fmt.Errorf("config: %q is not a valid boolean (want 1/0, yes/no, true/false)", s)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonEmptySlice(values ...[]string) []string {
	for _, v := range values {
		if len(v) > 0 {
			return v
		}
	}
	return nil
}
