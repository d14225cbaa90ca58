package config

import "flag"

// Flags are the config overrides shared by every pmxtool command.
type Flags struct {
	Config    *string
	Debug     *bool
	LogLevel  *string
	LogFile   *string
	Overwrite *bool
}

// RegisterFlags adds the shared flags to fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		Config:    fs.String("config", "", "Path to config file"),
		Debug:     fs.Bool("debug", false, "Enable debug logging"),
		LogLevel:  fs.String("log-level", "", "Log level (debug, info, warn, error)"),
		LogFile:   fs.String("log-file", "", "Also write logs to this file"),
		Overwrite: fs.Bool("overwrite", false, "Write edits back to the input file when -o is not given"),
	}
}

// ConfigPath returns the explicit config path if provided via -config.
func (f *Flags) ConfigPath() string {
	if f == nil || f.Config == nil {
		return ""
	}
	return *f.Config
}

// apply copies the flags that were set onto cfg.
func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}
	if f.LogLevel != nil && *f.LogLevel != "" {
		cfg.Logging.Level = *f.LogLevel
	}
	if f.Debug != nil && *f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.LogFile != nil && *f.LogFile != "" {
		cfg.Logging.LogFile = *f.LogFile
	}
	if f.Overwrite != nil && *f.Overwrite {
		cfg.Output.Overwrite = true
	}
}
