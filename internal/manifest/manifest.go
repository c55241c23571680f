// Package manifest reads and patches the per-architecture snap
// installation manifest of a release branch.
//
// The manifest is a YAML mapping of architecture names to lists of snap
// entries. Patching replaces only the bytes of the targeted revision
// scalar, everything else in the file, including comments, key order and
// formatting, is preserved unchanged so that the resulting diff stays
// minimal and auditable.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Install types of manifest entries.
const (
	InstallTypeStore = "store"
	InstallTypeFile  = "file"
)

var (
	// ErrArchNotFound is returned when the manifest has no entry list
	// for an architecture. It signals a structural drift between the
	// automation's configuration and the file, processing of the
	// affected branch must stop instead of guessing.
	ErrArchNotFound = errors.New("architecture not found in manifest")
	// ErrEntryNotFound is returned when an architecture exists but has
	// no entry for the requested snap name.
	ErrEntryNotFound = errors.New("snap entry not found in manifest")
)

var revisionRe = regexp.MustCompile(`^\d+$`)

// File is a parsed manifest.
// Patch operations work on the raw file content, the parsed node tree is
// only used to locate values.
type File struct {
	data []byte
	root *yaml.Node
}

// Entry is a snapshot of one snap entry of the manifest.
// It becomes stale when the file is patched afterwards.
type Entry struct {
	InstallType string
	Name        string
	Channel     string
	// Revision is the pinned store revision, empty when the entry is
	// pinned to a channel instead.
	Revision string
	Classic  bool

	revisionNode *yaml.Node
}

// Pinned returns true when the entry pins a specific store revision.
// Entries without a revision field follow a channel and are never patched.
func (e *Entry) Pinned() bool {
	return e.revisionNode != nil
}

// Parse validates that data is a YAML mapping of architectures to snap
// entry lists and returns the file.
func Parse(data []byte) (*File, error) {
	var doc yaml.Node

	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing manifest failed: %w", err)
	}

	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 {
		return nil, errors.New("manifest is empty or contains multiple yaml documents")
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.New("manifest root is not a mapping of architectures")
	}

	return &File{data: data, root: root}, nil
}

// Architectures returns the architecture keys of the manifest in file
// order.
func (f *File) Architectures() []string {
	result := make([]string, 0, len(f.root.Content)/2)

	for i := 0; i+1 < len(f.root.Content); i += 2 {
		result = append(result, f.root.Content[i].Value)
	}

	return result
}

// Entry returns the snap entry for the architecture and snap name.
// A missing architecture key is reported as ErrArchNotFound, a missing
// snap entry as ErrEntryNotFound.
func (f *File) Entry(arch, snapName string) (*Entry, error) {
	seq, err := f.archSequence(arch)
	if err != nil {
		return nil, err
	}

	var result *Entry

	for _, item := range seq.Content {
		entry, err := decodeEntry(item)
		if err != nil {
			return nil, fmt.Errorf("architecture %q: %w", arch, err)
		}

		if entry.Name != snapName {
			continue
		}

		if result != nil {
			return nil, fmt.Errorf("architecture %q has multiple entries for snap %q", arch, snapName)
		}

		result = entry
	}

	if result == nil {
		return nil, fmt.Errorf("%w: architecture %q, snap %q", ErrEntryNotFound, arch, snapName)
	}

	return result, nil
}

// SetRevision replaces the pinned revision of the (arch, snapName) entry.
// Only the bytes of the revision scalar change, the remainder of the file
// is left untouched. Setting the already pinned revision is a no-op and
// returns changed == false.
func (f *File) SetRevision(arch, snapName, revision string) (changed bool, err error) {
	if !revisionRe.MatchString(revision) {
		return false, fmt.Errorf("revision %q is not a positive number", revision)
	}

	entry, err := f.Entry(arch, snapName)
	if err != nil {
		return false, err
	}

	if !entry.Pinned() {
		return false, fmt.Errorf(
			"entry for architecture %q, snap %q pins a channel, not a revision",
			arch, snapName,
		)
	}

	if entry.Revision == revision {
		return false, nil
	}

	node := entry.revisionNode

	oldToken, err := renderScalar(node, entry.Revision)
	if err != nil {
		return false, err
	}

	newToken, err := renderScalar(node, revision)
	if err != nil {
		return false, err
	}

	offset, err := byteOffset(f.data, node.Line, node.Column)
	if err != nil {
		return false, err
	}

	// guards against patching the wrong bytes when the parsed position
	// and the raw content disagree
	if !bytes.HasPrefix(f.data[offset:], oldToken) {
		return false, fmt.Errorf(
			"manifest content at line %d, column %d does not match the parsed revision value %q",
			node.Line, node.Column, entry.Revision,
		)
	}

	patched := make([]byte, 0, len(f.data)-len(oldToken)+len(newToken))
	patched = append(patched, f.data[:offset]...)
	patched = append(patched, newToken...)
	patched = append(patched, f.data[offset+len(oldToken):]...)

	reparsed, err := Parse(patched)
	if err != nil {
		return false, fmt.Errorf("manifest is invalid after patching revision: %w", err)
	}

	*f = *reparsed

	return true, nil
}

// Bytes returns the current file content.
func (f *File) Bytes() []byte {
	return f.data
}

func (f *File) archSequence(arch string) (*yaml.Node, error) {
	var result *yaml.Node

	for i := 0; i+1 < len(f.root.Content); i += 2 {
		key := f.root.Content[i]
		if key.Value != arch {
			continue
		}

		if result != nil {
			return nil, fmt.Errorf("manifest contains architecture %q multiple times", arch)
		}

		result = f.root.Content[i+1]
	}

	if result == nil {
		return nil, fmt.Errorf("%w: %q", ErrArchNotFound, arch)
	}

	if result.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("value of architecture %q is not a list of snap entries", arch)
	}

	return result, nil
}

func decodeEntry(item *yaml.Node) (*Entry, error) {
	if item.Kind != yaml.MappingNode {
		return nil, errors.New("snap entry is not a mapping")
	}

	var entry Entry

	for i := 0; i+1 < len(item.Content); i += 2 {
		key := item.Content[i]
		val := item.Content[i+1]

		switch key.Value {
		case "install-type":
			entry.InstallType = val.Value
		case "name":
			entry.Name = val.Value
		case "channel":
			entry.Channel = val.Value
		case "revision":
			entry.Revision = val.Value
			entry.revisionNode = val
		case "classic":
			classic, err := strconv.ParseBool(val.Value)
			if err != nil {
				return nil, fmt.Errorf("classic value %q is not a boolean", val.Value)
			}

			entry.Classic = classic
		}
	}

	if entry.Name == "" {
		return nil, errors.New("snap entry has no name")
	}

	if entry.InstallType != InstallTypeStore && entry.InstallType != InstallTypeFile {
		return nil, fmt.Errorf(
			"snap entry %q has unsupported install-type %q, expecting %q or %q",
			entry.Name, entry.InstallType, InstallTypeStore, InstallTypeFile,
		)
	}

	if entry.revisionNode != nil && !revisionRe.MatchString(entry.Revision) {
		return nil, fmt.Errorf(
			"snap entry %q has non-numeric revision %q",
			entry.Name, entry.Revision,
		)
	}

	return &entry, nil
}

// renderScalar returns the raw bytes of val in the same scalar style as
// node uses in the file.
func renderScalar(node *yaml.Node, val string) ([]byte, error) {
	switch node.Style {
	case 0:
		return []byte(val), nil
	case yaml.DoubleQuotedStyle:
		return []byte(`"` + val + `"`), nil
	case yaml.SingleQuotedStyle:
		return []byte(`'` + val + `'`), nil
	default:
		return nil, fmt.Errorf("revision scalar at line %d uses an unsupported yaml style", node.Line)
	}
}

// byteOffset translates a 1-based line and column node position into a
// byte offset. Columns count runes.
func byteOffset(data []byte, line, column int) (int, error) {
	offset := 0

	for l := 1; l < line; l++ {
		idx := bytes.IndexByte(data[offset:], '\n')
		if idx < 0 {
			return 0, fmt.Errorf("manifest has no line %d", line)
		}

		offset += idx + 1
	}

	for c := 1; c < column; c++ {
		r, size := utf8.DecodeRune(data[offset:])
		if r == utf8.RuneError && size <= 1 || r == '\n' {
			return 0, fmt.Errorf("manifest line %d has no column %d", line, column)
		}

		offset += size
	}

	return offset, nil
}
