// Package config reads the connectionStrings section of an application
// configuration file.
package config

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/schemabounce/kolumn/dbwizard/types"
)

// Document is the parsed connectionStrings section of an App.config or
// Web.config file. It is read-only once parsed.
type Document struct {
	entries      []types.ConnectionStringEntry
	hasSection   bool
	configSource string
}

type xmlConfiguration struct {
	XMLName           xml.Name              `xml:"configuration"`
	ConnectionStrings *xmlConnectionStrings `xml:"connectionStrings"`
}

type xmlConnectionStrings struct {
	XMLName      xml.Name     `xml:"connectionStrings"`
	ConfigSource string       `xml:"configSource,attr"`
	Items        []xmlElement `xml:",any"`
}

type xmlElement struct {
	XMLName          xml.Name
	Name             string `xml:"name,attr"`
	ConnectionString string `xml:"connectionString,attr"`
	ProviderName     string `xml:"providerName,attr"`
}

// Parse reads a full configuration document.
func Parse(r io.Reader) (*Document, error) {
	var cfg xmlConfiguration
	if err := newDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	doc := &Document{}
	if cfg.ConnectionStrings != nil {
		doc.apply(cfg.ConnectionStrings)
	}
	return doc, nil
}

// ParseString is Parse over a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// ParseSection reads a standalone connectionStrings file, as referenced by
// the configSource attribute.
func ParseSection(r io.Reader) (*Document, error) {
	var section xmlConnectionStrings
	if err := newDecoder(r).Decode(&section); err != nil {
		return nil, fmt.Errorf("failed to parse connectionStrings section: %w", err)
	}
	doc := &Document{}
	doc.apply(&section)
	return doc, nil
}

// newDecoder skips the UTF-8 byte order mark Visual Studio writes,
// transcodes files that start with a UTF-16 byte order mark, and decodes the
// legacy charsets an encoding declaration may name (windows-1252 and so on).
func newDecoder(r io.Reader) *xml.Decoder {
	br := bufio.NewReader(r)
	var src io.Reader = br
	transcoded := false

	if head, err := br.Peek(3); err == nil && bytes.Equal(head, utf8BOM) {
		br.Discard(len(utf8BOM))
	} else if head, err := br.Peek(2); err == nil && (bytes.Equal(head, utf16LEBOM) || bytes.Equal(head, utf16BEBOM)) {
		src = transform.NewReader(br, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
		transcoded = true
	}

	decoder := xml.NewDecoder(src)
	decoder.CharsetReader = func(label string, input io.Reader) (io.Reader, error) {
		if transcoded {
			// already UTF-8; the declaration still says utf-16
			return input, nil
		}
		return charset.NewReaderLabel(label, input)
	}
	return decoder
}

var (
	utf8BOM    = []byte{0xEF, 0xBB, 0xBF}
	utf16LEBOM = []byte{0xFF, 0xFE}
	utf16BEBOM = []byte{0xFE, 0xFF}
)

// NewDocument builds a document from entries, as if each were an <add/>.
func NewDocument(entries ...types.ConnectionStringEntry) *Document {
	doc := &Document{hasSection: true}
	for _, e := range entries {
		doc.add(e)
	}
	return doc
}

// apply replays the section's elements in order: add, remove and clear.
func (d *Document) apply(section *xmlConnectionStrings) {
	d.hasSection = true
	d.configSource = section.ConfigSource
	for _, item := range section.Items {
		switch item.XMLName.Local {
		case "add":
			d.add(types.ConnectionStringEntry{
				Name:             item.Name,
				ConnectionString: item.ConnectionString,
				ProviderName:     item.ProviderName,
			})
		case "remove":
			d.remove(item.Name)
		case "clear":
			d.entries = nil
		}
	}
}

// add replaces an existing entry of the same name in place.
func (d *Document) add(entry types.ConnectionStringEntry) {
	for i := range d.entries {
		if d.entries[i].Name == entry.Name {
			d.entries[i] = entry
			return
		}
	}
	d.entries = append(d.entries, entry)
}

func (d *Document) remove(name string) {
	for i := range d.entries {
		if d.entries[i].Name == name {
			d.entries = append(d.entries[:i], d.entries[i+1:]...)
			return
		}
	}
}

// HasConnectionStrings reports whether the document declares a
// connectionStrings section at all.
func (d *Document) HasConnectionStrings() bool {
	return d != nil && d.hasSection
}

// ConfigSource returns the configSource attribute of the section, if any.
func (d *Document) ConfigSource() string {
	if d == nil {
		return ""
	}
	return d.configSource
}

// Len returns the number of declared connection strings.
func (d *Document) Len() int {
	if d == nil {
		return 0
	}
	return len(d.entries)
}

// Entries returns a copy of the declared connection strings in document order.
func (d *Document) Entries() []types.ConnectionStringEntry {
	if d == nil {
		return nil
	}
	return append([]types.ConnectionStringEntry(nil), d.entries...)
}

// Lookup returns the entry named name. Names are case-sensitive.
func (d *Document) Lookup(name string) (types.ConnectionStringEntry, bool) {
	if d != nil {
		for _, e := range d.entries {
			if e.Name == name {
				return e, true
			}
		}
	}
	return types.ConnectionStringEntry{}, false
}

// ConnectionStringNames returns the declared names exactly as written.
func (d *Document) ConnectionStringNames() []string {
	if d == nil {
		return nil
	}
	out := make([]string, 0, len(d.entries))
	for _, e := range d.entries {
		out = append(out, e.Name)
	}
	return out
}
