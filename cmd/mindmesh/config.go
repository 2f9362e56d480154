package main

// Flag names for Viper binding
const (
	// Global flags
	FlagVerbose      = "verbose"
	FlagConfig       = "config"
	FlagLogFile      = "log-file"
	FlagStateFile    = "state-file"
	FlagActivityFile = "activity-file"

	// Document flags (edit, new, convert)
	FlagFormat = "format"
	FlagSample = "sample"
	FlagSeed   = "seed"
	FlagForce  = "force"

	// Edit command flags
	FlagAutosave      = "autosave"
	FlagNoWatch       = "no-watch"
	FlagJitter        = "jitter"
	FlagChildDistance = "child-distance"
	FlagHelp          = "show-help"

	// Tree command flags
	FlagPositions = "positions"

	// Log command flags
	FlagFollow = "follow"
	FlagCount  = "count"
)
