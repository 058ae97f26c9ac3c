package utils

// EmptyString represents a reusable empty string constant.
const EmptyString = ""

// GitDirectoryName is the name of the Git repository directory.
const GitDirectoryName = ".git"

// DefaultLogLevel is the logger level used when none is configured.
const DefaultLogLevel = "info"

// LogLevelEnvironmentVariable selects the logger level at startup.
const LogLevelEnvironmentVariable = "VAULTCTX_LOG_LEVEL"

// LoggerInitializationFailedMessageFormat reports a logger that could not be built.
const LoggerInitializationFailedMessageFormat = "failed to initialize logger: %w"

// ApplicationExecutionFailedMessage prefixes fatal command errors.
const ApplicationExecutionFailedMessage = "application execution failed"
