// flags.go defines constants for plugin CLI flag names.
//
// Naming convention: Flag<PascalCaseName> where name matches the kebab-case
// CLI flag (e.g., "dry-run" -> FlagDryRun).

package plugin

// Flag name constants for CLI commands.
const (
	// Boolean flags

	FlagCheck   = "check"   // Compare instead of writing
	FlagLocal   = "local"   // Use local scope
	FlagMetrics = "metrics" // Print loader metrics on exit

	// String flags

	FlagFile = "file" // Input Go source file
	FlagKey  = "key"  // Parameter holding an activation list
	FlagOut  = "out"  // Output file
	FlagType = "type" // Interface type name
)
