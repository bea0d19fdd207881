// Package main hosts the waxcrate CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into HTTP
// calls against the waxcrated daemon: uploading record photos, reviewing
// and enriching previews, committing archives, browsing the durable
// catalog, and configuration scaffolding. It centralizes configuration
// resolution, server discovery, and owner identity so subcommands can
// focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags
// here.
package main
