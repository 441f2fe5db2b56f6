/*
Package config provides typed access to module settings and loads runtime
configuration.

# Settings Access

Config wraps a settings map (dotted path to value) with accessors that fall
back to a default when the key is missing or holds the wrong type:

	cfg := manager.Config()
	interval := cfg.Duration("ping.interval", 5*time.Second)
	enabled := cfg.Bool("enabled", true)

Numbers decoded from JSON or HCL arrive as float64; Int accepts them when
they have no fractional part.

# Files

FromFile picks a parser by extension: .yaml and .yml (gopkg.in/yaml.v3),
.json, and .hcl. HCL files hold top-level attributes only:

	enabled = true
	"ping.interval" = "10s"

# Runtime

Runtime is read from MODKIT_* environment variables with LoadRuntime and
selects log level and format, the settings store and telemetry toggles.
*/
package config
