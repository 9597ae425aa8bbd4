package domain

import "maps"

// BuildConfig is the immutable input of one build: the environment chosen by
// the command, the packaging mode and the project description.
type BuildConfig struct {
	Environment Environment
	Mode        PackagingMode
	Project     *Project
}

// NewBuildConfig validates env and the project's packaging mode.
// It never falls back to a default mode.
func NewBuildConfig(project *Project, env Environment) (BuildConfig, error) {
	if project == nil {
		return BuildConfig{}, ConfigError(ErrMissingSetting, "setting", "project")
	}
	if _, err := ParseEnvironment(string(env)); err != nil {
		return BuildConfig{}, err
	}
	mode, err := ParsePackagingMode(project.Mode)
	if err != nil {
		return BuildConfig{}, err
	}
	return BuildConfig{Environment: env, Mode: mode, Project: project}, nil
}

// Sourcemaps reports whether sourcemaps are emitted. They are emitted in development only.
func (c BuildConfig) Sourcemaps() bool {
	return c.Environment == EnvDevelopment
}

// PreprocessContext returns the variables visible to preprocess directives.
func (c BuildConfig) PreprocessContext() map[string]string {
	ctx := make(map[string]string, len(c.Project.Context)+1)
	maps.Copy(ctx, c.Project.Context)
	ctx["NODE_ENV"] = c.Environment.String()
	return ctx
}
