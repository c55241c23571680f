package bump

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/simplesurance/snapbump/internal/cfg"
	"github.com/simplesurance/snapbump/internal/logfields"
	"github.com/simplesurance/snapbump/internal/snapstoreclt"
)

// Target describes a manifest in a GitHub repository that pins revisions of
// a snap and the store channel properties the pins are updated from.
type Target struct {
	RepositoryOwner string
	Repository      string
	Snap            string
	ManifestPath    string
	Architectures   []string
	TrackSuffix     string
	Risk            string

	Logfields []zap.Field
}

func NewTarget(owner, repo, snap, manifestPath string, architectures []string, trackSuffix, risk string) (*Target, error) {
	if owner == "" {
		return nil, errors.New("owner is empty")
	}

	if repo == "" {
		return nil, errors.New("repository is empty")
	}

	if snap == "" {
		return nil, errors.New("snap is empty")
	}

	if manifestPath == "" {
		return nil, errors.New("manifest_path is empty")
	}

	if len(architectures) == 0 {
		return nil, errors.New("architectures is empty")
	}

	seen := make(map[string]struct{}, len(architectures))
	for _, arch := range architectures {
		if arch == "" {
			return nil, errors.New("architectures contains an empty element")
		}

		if _, exists := seen[arch]; exists {
			return nil, fmt.Errorf("architecture %q is listed multiple times", arch)
		}

		seen[arch] = struct{}{}
	}

	if risk == "" {
		risk = snapstoreclt.RiskStable
	}

	if !validRisk(risk) {
		return nil, fmt.Errorf("risk %q is not one of %v", risk, snapstoreclt.Risks)
	}

	return &Target{
		RepositoryOwner: owner,
		Repository:      repo,
		Snap:            snap,
		ManifestPath:    manifestPath,
		Architectures:   architectures,
		TrackSuffix:     trackSuffix,
		Risk:            risk,
		Logfields: []zap.Field{
			logfields.RepositoryOwner(owner),
			logfields.Repository(repo),
			logfields.Snap(snap),
		},
	}, nil
}

func validRisk(risk string) bool {
	for _, r := range snapstoreclt.Risks {
		if r == risk {
			return true
		}
	}

	return false
}

func (t *Target) String() string {
	return fmt.Sprintf("%s/%s %s %s", t.RepositoryOwner, t.Repository, t.Snap, t.ManifestPath)
}

// TargetsFromCfg converts and validates the target sections of the
// configuration file.
func TargetsFromCfg(config *cfg.Config) ([]*Target, error) {
	if len(config.Targets) == 0 {
		return nil, errors.New("configuration defines no targets")
	}

	result := make([]*Target, 0, len(config.Targets))

	for i, t := range config.Targets {
		target, err := NewTarget(
			t.Owner,
			t.RepositoryName,
			t.Snap,
			t.ManifestPath,
			t.Architectures,
			t.TrackSuffix,
			t.Risk,
		)
		if err != nil {
			return nil, fmt.Errorf("target %d (%s/%s): %w", i+1, t.Owner, t.RepositoryName, err)
		}

		result = append(result, target)
	}

	return result, nil
}
