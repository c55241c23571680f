package bump

import (
	"fmt"
	"strings"
	"text/template"
)

const defProposalTitleTemplate = `Update {{.Snap}} snap revisions for {{.Branch}}`

const defProposalBodyTemplate = `Updates the pinned revisions of the ` + "`{{.Snap}}`" + ` snap in ` + "`{{.ManifestPath}}`" + ` to the newest revisions published in the {{.Channel}} channel.

Changed revisions:
{{range .Changes}}* {{.Architecture}}: {{.OldRevision}} -> {{.NewRevision}}
{{end}}`

// RevisionChange is an outdated revision pin of one architecture and the
// store revision that replaces it.
type RevisionChange struct {
	Architecture string
	OldRevision  string
	NewRevision  string
}

func (c *RevisionChange) String() string {
	return fmt.Sprintf("%s: %s -> %s", c.Architecture, c.OldRevision, c.NewRevision)
}

// proposalInput is the data that pull request title and body templates are
// rendered with.
type proposalInput struct {
	Snap         string
	Branch       string
	Track        string
	Channel      string
	ManifestPath string
	Changes      []*RevisionChange
}

func renderProposalText(tmpl *template.Template, in *proposalInput) (string, error) {
	var result strings.Builder

	if err := tmpl.Execute(&result, in); err != nil {
		return "", fmt.Errorf("rendering %s template: %w", tmpl.Name(), err)
	}

	return strings.TrimSpace(result.String()), nil
}
