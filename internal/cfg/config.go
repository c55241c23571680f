package cfg

import (
	"io"

	"github.com/pelletier/go-toml"
)

type Config struct {
	HTTPListenAddr  string    `toml:"http_server_listen_addr"`
	HTTPSListenAddr string    `toml:"https_server_listen_addr"`
	HTTPSCertFile   string    `toml:"https_ssl_cert_file"`
	HTTPSKeyFile    string    `toml:"https_ssl_key_file"`
	StatusEndpoint  string    `toml:"status_endpoint" default:"/"`
	TriggerEndpoint string    `toml:"trigger_endpoint" default:"/trigger"`
	MetricsEndpoint string    `toml:"metrics_endpoint" default:"/metrics"`
	GithubAPIToken  string    `toml:"github_api_token"`
	SnapStoreURL    string    `toml:"snap_store_url"`
	LogFormat       string    `toml:"log_format" default:"logfmt"`
	LogTimeKey      string    `toml:"log_time_key" default:"time"`
	LogLevel        string    `toml:"log_level" default:"info"`
	Updater         Updater   `toml:"updater"`
	Targets         []*Target `toml:"target"`
}

type Updater struct {
	RunInterval      string `toml:"run_interval" default:"6h"`
	LookupTimeout    string `toml:"lookup_timeout" default:"2m"`
	Workers          int    `toml:"workers" default:"4"`
	DryRun           bool   `toml:"dry_run"`
	PRLabel          string `toml:"pr_label"`
	HeadBranchPrefix string `toml:"head_branch_prefix" default:"snapbump"`
	PRTitleTemplate  string `toml:"pr_title_template"`
	PRBodyTemplate   string `toml:"pr_body_template"`
}

type Target struct {
	Owner          string   `toml:"owner"`
	RepositoryName string   `toml:"repository"`
	Snap           string   `toml:"snap"`
	ManifestPath   string   `toml:"manifest_path"`
	Architectures  []string `toml:"architectures"`
	TrackSuffix    string   `toml:"track_suffix"`
	Risk           string   `toml:"risk" default:"stable"`
}

func Load(reader io.Reader) (*Config, error) {
	var result Config

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	if err := toml.Unmarshal(data, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *Config) Marshal(writer io.Writer) error {
	return toml.NewEncoder(writer).Encode(r)
}
