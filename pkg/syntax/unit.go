package syntax

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a tree document.
type Format string

const (
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatMsgpack Format = "msgpack"
)

// ErrUnknownFormat is returned for paths that are not tree documents.
var ErrUnknownFormat = errors.New("unknown tree document format")

var suffixes = []struct {
	suffix string
	format Format
}{
	{".jast.json", FormatJSON},
	{".jast.yaml", FormatYAML},
	{".jast.yml", FormatYAML},
	{".jast.msgpack", FormatMsgpack},
}

// FormatOf returns the tree document format implied by path.
func FormatOf(path string) (Format, bool) {
	for _, s := range suffixes {
		if strings.HasSuffix(path, s.suffix) {
			return s.format, true
		}
	}
	return "", false
}

// IsTreeFile reports whether path names a tree document.
func IsTreeFile(path string) bool {
	_, ok := FormatOf(path)
	return ok
}

// Unit is one compilation unit: the tree of a single Java source file
// together with the document it was loaded from.
type Unit struct {
	// Path of the tree document.
	Path string
	// Source is the Java file the tree describes, as recorded by the parser.
	Source string
	Format Format
	Root   *Node
}

// Filename returns the name violations are reported against.
func (u *Unit) Filename() string {
	if u.Source != "" {
		return u.Source
	}
	return u.Path
}

// Clone returns a deep copy of the unit and the original -> copy node map.
func (u *Unit) Clone() (*Unit, map[*Node]*Node) {
	m := make(map[*Node]*Node)
	c := *u
	c.Root = u.Root.CloneMapped(m)
	return &c, m
}

type document struct {
	Source string `json:"source" yaml:"source" msgpack:"source"`
	Root   *Node  `json:"root" yaml:"root" msgpack:"root"`
}

// Decode parses a tree document, links parents and validates the result.
func Decode(data []byte, format Format) (*Unit, error) {
	var doc document
	var err error

	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &doc)
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	case FormatMsgpack:
		err = msgpack.Unmarshal(data, &doc)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s tree: %w", format, err)
	}
	if doc.Root == nil {
		return nil, fmt.Errorf("%w: document has no root", ErrInvalid)
	}

	doc.Root.Link()
	if err := Validate(doc.Root); err != nil {
		return nil, err
	}

	return &Unit{Source: doc.Source, Format: format, Root: doc.Root}, nil
}

// Encode serializes the unit in its format.
func Encode(u *Unit) ([]byte, error) {
	doc := document{Source: u.Source, Root: u.Root}

	switch u.Format {
	case FormatJSON:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding json tree: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("encoding yaml tree: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encoding yaml tree: %w", err)
		}
		return buf.Bytes(), nil
	case FormatMsgpack:
		data, err := msgpack.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("encoding msgpack tree: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, u.Format)
	}
}

// ReadFile loads the tree document at path.
func ReadFile(path string) (*Unit, error) {
	format, ok := FormatOf(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	u, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	u.Path = path
	return u, nil
}

// WriteFile writes the unit back to its document path.
func WriteFile(u *Unit) error {
	data, err := Encode(u)
	if err != nil {
		return err
	}
	if err := os.WriteFile(u.Path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", u.Path, err)
	}
	return nil
}
