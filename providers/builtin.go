package providers

import (
	"github.com/google/uuid"

	"github.com/schemabounce/kolumn/dbwizard/types"
)

// Namespace seeds the identities of the builtin providers.
var Namespace = uuid.MustParse("5d0c6a4e-4f3b-4c1e-9a57-2b7f1e0c9d11")

// Well-known invariant names.
const (
	SQLClient    types.ProviderInvariantName = "System.Data.SqlClient"
	SQLServerCe  types.ProviderInvariantName = "System.Data.SqlServerCe.4.0"
	EntityClient types.ProviderInvariantName = "System.Data.EntityClient"
	Npgsql       types.ProviderInvariantName = "Npgsql"
	MySQL        types.ProviderInvariantName = "MySql.Data.MySqlClient"
	SQLite       types.ProviderInvariantName = "System.Data.SQLite.EF6"
)

// IdentityFor derives the deterministic identity of a builtin provider.
func IdentityFor(invariantName types.ProviderInvariantName) types.ProviderIdentity {
	return uuid.NewSHA1(Namespace, []byte(invariantName))
}

// NewBuiltinRegistry returns a registry holding the common ADO.NET providers.
func NewBuiltinRegistry() *MemoryRegistry {
	reg := NewMemoryRegistry()
	for _, name := range []types.ProviderInvariantName{SQLClient, SQLServerCe, Npgsql, MySQL, SQLite} {
		if err := reg.RegisterInvariant(IdentityFor(name), name); err != nil {
			panic(err)
		}
	}
	return reg
}
