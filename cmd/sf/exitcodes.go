package main

// Exit codes
const (
	ExitSuccess       = 0 // Success
	ExitError         = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError   = 2 // Missing repository, config, index, or cluster table
	ExitDataError     = 3 // Malformed input or embedding service unavailable
	ExitNotFound      = 4 // Paper or cluster not found
	ExitModelNotFound = 5 // Embedding model not found
	ExitIndexStale    = 6 // Semantic index is stale
)
