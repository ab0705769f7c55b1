package config

import "os"

// ConfigPath is the default config file location; DOCUCHAT_CONFIG overrides
// it without a flag.
var ConfigPath = defaultConfigPath()

func defaultConfigPath() string {
	if v := os.Getenv("DOCUCHAT_CONFIG"); v != "" {
		return v
	}
	return "config.yaml"
}
