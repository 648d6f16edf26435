package types

// ContextKey keys values the root command plants in the command context.
type ContextKey string

// ClientAppKey holds the wired *client.App for subcommands.
const ClientAppKey ContextKey = "clientApp"
