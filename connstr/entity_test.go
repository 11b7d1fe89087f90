package connstr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemabounce/kolumn/dbwizard/providers"
)

func TestMetadataResources(t *testing.T) {
	assert.Equal(t,
		[]string{"res://*/myModel.csdl", "res://*/myModel.ssdl", "res://*/myModel.msl"},
		MetadataResources("myModel"))
}

func TestParseEntityConnectionString(t *testing.T) {
	original := EntityConnectionString{
		Metadata:                 MetadataResources("Folder.myModel"),
		Provider:                 providers.SQLClient,
		ProviderConnectionString: "Data Source=.;Integrated Security=SSPI",
	}

	parsed, err := ParseEntityConnectionString(original.String())
	require.NoError(t, err)
	assert.Equal(t, original, *parsed)
	assert.True(t, IsEntityConnectionString(original.String()))
}

func TestParseEntityConnectionString_NotEntity(t *testing.T) {
	_, err := ParseEntityConnectionString("Data Source=.;Integrated Security=SSPI")
	assert.Error(t, err)
	assert.False(t, IsEntityConnectionString("Data Source=."))
	assert.False(t, IsEntityConnectionString("metadata"))
}
