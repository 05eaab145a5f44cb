// config-archiver backs up a fixed list of configuration files and
// directories from the home directory into timestamped zip archives and
// keeps only the most recent ones.
//
// Usage:
//
//	# Create one archive and prune old ones (default command)
//	config-archiver
//
//	# Use a custom configuration file
//	config-archiver run --config /path/to/config.yaml
//
//	# Show what retention would delete
//	config-archiver prune --dry-run
//
//	# Run on a schedule and reload on config changes
//	config-archiver daemon
package main

func main() {
	Execute()
}
