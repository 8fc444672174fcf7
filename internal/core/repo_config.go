package core

// RepoConfig represents the structure of the .ci-warden.yml file.
type RepoConfig struct {
	// Shell command run in the workspace root. Empty means the server default.
	TestCommand string `yaml:"test_command"`

	// Regular expressions matched against each output line; any match fails the build.
	// Empty means the server defaults.
	FailureMarkers []string `yaml:"failure_markers"`
}

// DefaultRepoConfig returns a config with default values.
func DefaultRepoConfig() *RepoConfig {
	return &RepoConfig{
		FailureMarkers: []string{},
	}
}
