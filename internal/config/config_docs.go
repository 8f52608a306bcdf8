package config

// ///////////////////////////////////////////////
// Documentation Types
// ///////////////////////////////////////////////

// FieldDoc holds documentation and alternative examples for a single config field.
// The genconfig tool uses [FieldDoc] values to annotate the generated config.default.toml.
type FieldDoc struct {
	// Comment is shown as a header comment above the field in the example config.
	Comment string

	// Alternatives are shown as commented-out lines below the active value.
	Alternatives []string
}

// ///////////////////////////////////////////////
// Field Documentation Map
// ///////////////////////////////////////////////

// ConfigDocs maps TOML field paths (dot-separated, e.g. "log.level") to their
// [FieldDoc] entries.
var ConfigDocs = map[string]FieldDoc{
	"version": {
		Comment: "Config schema version. Do not edit.",
	},

	// ── Lock ─────────────────────────────────────────────────────
	"lock": {
		Comment: "Command-line flags always win over these values.",
	},
	"lock.address": {
		Comment: "Default bind address used when --address is not given.\nEmpty means 127.<uid high byte>.<uid low byte>.1, private to your user.",
		Alternatives: []string{
			`address = "127.0.0.1"`,
		},
	},

	// ── Log ──────────────────────────────────────────────────────
	"log.verbose": {
		Comment: "Print diagnostics to stderr as if --verbose were always given.",
	},
	"log.level": {
		Comment: "Minimum level written to the log file: trace, debug, info, warn, error",
		Alternatives: []string{
			`level = "debug"`,
		},
	},
	"log.file": {
		Comment: "Rotating log file recording every lock decision. Empty disables it.\nRelative paths are resolved against this file's directory.",
		Alternatives: []string{
			`file = "rolo.log"`,
		},
	},
	"log.max_size_mb": {
		Comment: "Rotate the log file once it reaches this size.",
	},
}
