// Package confloader loads the gateway configuration.
//
// Sources are layered with koanf; later sources override earlier ones:
//
//  1. Default values (pre-filled into the target struct)
//  2. Configuration file (YAML, or JSON which YAML accepts)
//  3. Environment variables (KKMGATE_SECTION_KEY)
//  4. Overrides given on the command line (--set section.key=value)
//
// The loaded snapshot is read once at startup. Watcher reports later edits
// of the file; only the log level is applied live (see LevelReloader).
package confloader
