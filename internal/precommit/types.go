package precommit

// Source is one hook repository entry from .pre-commit-config.yaml.
// The repository is pinned to Rev; the runner never re-resolves it.
type Source struct {
	Repo  string `yaml:"repo"`
	Rev   string `yaml:"rev"`
	Hooks []Hook `yaml:"hooks"`
}

// Hook is a single hook invocation provided by a Source. The ID is an
// opaque string resolved against the source repository's own hook
// registry by the runner.
type Hook struct {
	ID      string   `yaml:"id"`
	Name    string   `yaml:"name,omitempty"`
	Args    []string `yaml:"args,omitempty"`
	Exclude string   `yaml:"exclude,omitempty"`
}

// ConfigFileName is the conventional name of the pre-commit configuration file.
const ConfigFileName = ".pre-commit-config.yaml"
