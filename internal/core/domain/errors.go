package domain

import "go.trai.ch/zerr"

var (
	// ErrConfiguration is returned when the build configuration is invalid.
	// It is always raised before any transform runs.
	ErrConfiguration = zerr.New("invalid build configuration")

	// ErrUnknownPackagingMode is returned when the packaging mode is neither lazy nor bundle.
	ErrUnknownPackagingMode = zerr.New("unknown packaging mode, expected 'lazy' or 'bundle'")

	// ErrUnknownEnvironment is returned when the environment is neither development nor production.
	ErrUnknownEnvironment = zerr.New("unknown environment, expected 'development' or 'production'")

	// ErrOverlappingDestinations is returned when two tasks scheduled together write the same output.
	ErrOverlappingDestinations = zerr.New("concurrently scheduled tasks write overlapping destinations")

	// ErrMissingSetting is returned when a required configuration setting is empty.
	ErrMissingSetting = zerr.New("missing required setting")

	// ErrUnknownTask is returned when a task name does not match any known task.
	ErrUnknownTask = zerr.New("unknown task")

	// ErrUnknownCommand is returned when a build command name is not recognized.
	ErrUnknownCommand = zerr.New("unknown build command")

	// ErrNotStreamable is returned when a pipeline is requested for a task that is not a stream of transforms.
	ErrNotStreamable = zerr.New("task has no transform pipeline")

	// ErrNoTransformer is returned when the registry holds no transformer for a step kind.
	ErrNoTransformer = zerr.New("no transformer registered for step")

	// ErrTransformFailed is returned when a pipeline step fails.
	ErrTransformFailed = zerr.New("transform failed")

	// ErrLintWarning marks a failed advisory lint run. It never aborts a build.
	ErrLintWarning = zerr.New("lint reported problems")

	// ErrTaskFailed is returned when a non-stream task (clean, copy, lint) fails.
	ErrTaskFailed = zerr.New("task failed")

	// ErrBuildExecutionFailed is returned when a build command fails.
	ErrBuildExecutionFailed = zerr.New("build execution failed")

	// ErrConfigNotFound is returned when no configuration file is found.
	ErrConfigNotFound = zerr.New("could not find weave.yaml")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrEnvFileFailed is returned when the .env file next to the config cannot be loaded.
	ErrEnvFileFailed = zerr.New("failed to load .env file")

	// ErrSelectionFailed is returned when a source selection cannot be read.
	ErrSelectionFailed = zerr.New("failed to read source selection")

	// ErrWriteFailed is returned when an artifact cannot be written to its destination.
	ErrWriteFailed = zerr.New("failed to write artifact")

	// ErrCleanFailed is returned when removing build output fails.
	ErrCleanFailed = zerr.New("failed to clean build output")

	// ErrCopyFailed is returned when copying a tree into the output fails.
	ErrCopyFailed = zerr.New("failed to copy files")

	// ErrCommandFailed is returned when an external tool exits unsuccessfully.
	ErrCommandFailed = zerr.New("command failed")

	// ErrEmptyCommand is returned when an external tool is configured without arguments.
	ErrEmptyCommand = zerr.New("empty command")

	// ErrServerFailed is returned when the development server cannot serve.
	ErrServerFailed = zerr.New("development server failed")

	// ErrWatchFailed is returned when the file watcher cannot start.
	ErrWatchFailed = zerr.New("failed to watch sources")
)
