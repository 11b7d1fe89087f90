// Package types provides the data model shared by the wizard packages
package types

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ProviderIdentity names a registered data provider.
type ProviderIdentity = uuid.UUID

// ProviderInvariantName is the stable driver identifier of a provider,
// such as "System.Data.SqlClient".
type ProviderInvariantName string

// GenerationMode selects the modeling workflow of a wizard session and
// determines the shape of the connection string the wizard produces.
type GenerationMode int

const (
	// DatabaseFirstFromEdmx compiles the model from an .edmx model file.
	DatabaseFirstFromEdmx GenerationMode = iota
	// CodeFirstFromDatabase generates code directly against the database.
	CodeFirstFromDatabase
)

// String returns the string representation of the mode
func (m GenerationMode) String() string {
	switch m {
	case DatabaseFirstFromEdmx:
		return "database-first"
	case CodeFirstFromDatabase:
		return "code-first"
	default:
		return fmt.Sprintf("GenerationMode(%d)", int(m))
	}
}

// ParseGenerationMode parses a mode name as accepted on the command line.
func ParseGenerationMode(s string) (GenerationMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "database-first", "databasefirst", "edmx":
		return DatabaseFirstFromEdmx, nil
	case "code-first", "codefirst":
		return CodeFirstFromDatabase, nil
	default:
		return 0, fmt.Errorf("unknown generation mode: %q (expected database-first or code-first)", s)
	}
}

// ModelLocation identifies the model file of a database-first session.
type ModelLocation struct {
	// ModelPath is the absolute path of the model file.
	ModelPath string `json:"model_path"`
	// ProjectRoot is the absolute path of the enclosing project. It is carried
	// for hosts and never used to derive resource names; nested models need
	// QualifiedName.
	ProjectRoot string `json:"project_root,omitempty"`
	// QualifiedName is the resource-qualified model name computed by the
	// project system, e.g. "Folder.myModel". Empty for root-level models.
	QualifiedName string `json:"qualified_name,omitempty"`
}

// ModelName returns the name used in the metadata resource paths.
func (l ModelLocation) ModelName() string {
	if l.QualifiedName != "" {
		return l.QualifiedName
	}
	// model paths come from Windows hosts as often as not
	base := l.ModelPath
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ConnectionStringEntry is a single <add/> element of a connectionStrings section.
type ConnectionStringEntry struct {
	Name             string `json:"name" xml:"name,attr"`
	ConnectionString string `json:"connection_string" xml:"connectionString,attr"`
	ProviderName     string `json:"provider_name,omitempty" xml:"providerName,attr,omitempty"`
}
