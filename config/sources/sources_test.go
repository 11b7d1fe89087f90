package sources

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemabounce/kolumn/dbwizard/config"
)

const appConfig = `<?xml version="1.0" encoding="utf-8"?>
<configuration>
  <connectionStrings>
    <add name="myModel" connectionString="Data Source=.;Integrated Security=SSPI" providerName="System.Data.SqlClient" />
  </connectionStrings>
</configuration>`

func TestFactoryListsAllSources(t *testing.T) {
	factory := NewSourceFactory()
	assert.Equal(t,
		[]SourceType{SourceTypeLocal, SourceTypeMemory, SourceTypePostgres, SourceTypeS3},
		factory.ListAvailableSources())

	for _, sourceType := range factory.ListAvailableSources() {
		source, err := factory.CreateSource(sourceType)
		require.NoError(t, err)
		assert.NotNil(t, source)
	}

	_, err := factory.CreateSource("ftp")
	assert.Error(t, err)
}

func TestFactoryRejectsNilCreator(t *testing.T) {
	factory := NewSourceFactory()
	factory.RegisterSource("broken", func() Source { return nil })
	_, err := factory.CreateSource("broken")
	assert.Error(t, err)
}

func TestParseSourceType(t *testing.T) {
	tests := map[string]SourceType{
		"memory":     SourceTypeMemory,
		" File ":     SourceTypeLocal,
		"postgresql": SourceTypePostgres,
		"pg":         SourceTypePostgres,
		"AWS":        SourceTypeS3,
	}
	for input, want := range tests {
		got, err := ParseSourceType(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got)
	}

	_, err := ParseSourceType("redis")
	assert.Error(t, err)
}

func TestMemorySource(t *testing.T) {
	ctx := context.Background()
	source, err := DefaultSourceFactory.CreateAndConfigureSource(ctx, SourceTypeMemory, nil)
	require.NoError(t, err)

	_, err = source.Load(ctx)
	assert.ErrorIs(t, err, config.ErrNotFound)

	require.NoError(t, source.Configure(ctx, map[string]interface{}{"content": appConfig}))
	doc, err := source.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"myModel"}, doc.ConnectionStringNames())

	assert.Error(t, source.Configure(ctx, map[string]interface{}{"content": "<configuration>"}))
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLocalSource(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	source, err := Open(ctx, SourceTypeLocal, map[string]interface{}{"project_dir": dir})
	require.NoError(t, err)

	_, err = source.Load(ctx)
	assert.ErrorIs(t, err, config.ErrNotFound)

	writeFile(t, dir, "App.config", appConfig)
	doc, err := source.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"myModel"}, doc.ConnectionStringNames())

	// Web.config wins over App.config
	writeFile(t, dir, "Web.config", `<configuration><connectionStrings><add name="web" connectionString="a=1"/></connectionStrings></configuration>`)
	doc, err = source.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"web"}, doc.ConnectionStringNames())
}

func TestLocalSource_ExplicitFileAndConfigSource(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0o755))

	writeFile(t, dir, "Custom.config", `<configuration><connectionStrings configSource="config/connections.config"/></configuration>`)
	writeFile(t, filepath.Join(dir, "config"), "connections.config",
		`<connectionStrings><add name="external" connectionString="a=1"/></connectionStrings>`)

	source, err := Open(ctx, SourceTypeLocal, map[string]interface{}{"project_dir": dir, "file_name": "Custom.config"})
	require.NoError(t, err)

	doc, err := source.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"external"}, doc.ConnectionStringNames())
}

func TestLocalSource_Malformed(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, dir, "App.config", "<configuration><connectionStrings>")

	source, err := Open(ctx, SourceTypeLocal, map[string]interface{}{"project_dir": dir})
	require.NoError(t, err)

	_, err = source.Load(ctx)
	require.Error(t, err)
	assert.False(t, errors.Is(err, config.ErrNotFound))
	assert.Nil(t, config.LoadOrEmpty(ctx, source))
}

func TestLocalSource_RequiresProjectDir(t *testing.T) {
	_, err := Open(context.Background(), SourceTypeLocal, nil)
	assert.Error(t, err)

	_, err = NewLocalSource().Load(context.Background())
	assert.Error(t, err)
}

type fakeObjectGetter struct {
	objects map[string]string
	err     error
	calls   []s3.GetObjectInput
}

func (f *fakeObjectGetter) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.calls = append(f.calls, *params)
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.objects[aws.ToString(params.Bucket)+"/"+aws.ToString(params.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{Message: aws.String("The specified key does not exist.")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestS3Source_Load(t *testing.T) {
	ctx := context.Background()
	client := &fakeObjectGetter{objects: map[string]string{"projects/configs/shop/Web.config": appConfig}}
	cfg, err := parseS3Config(map[string]interface{}{"bucket": "projects", "key_prefix": "/configs/", "project": "shop"})
	require.NoError(t, err)

	source := NewS3SourceWithClient(client, cfg)
	doc, err := source.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"myModel"}, doc.ConnectionStringNames())
	require.Len(t, client.calls, 1)
	assert.Equal(t, "configs/shop/Web.config", aws.ToString(client.calls[0].Key))
}

func TestS3Source_MissingObject(t *testing.T) {
	client := &fakeObjectGetter{objects: map[string]string{}}
	source := NewS3SourceWithClient(client, &S3Config{Bucket: "projects", Key: "App.config"})

	_, err := source.Load(context.Background())
	assert.ErrorIs(t, err, config.ErrNotFound)
}

func TestS3Source_OtherErrors(t *testing.T) {
	client := &fakeObjectGetter{err: errors.New("AccessDenied: forbidden")}
	source := NewS3SourceWithClient(client, &S3Config{Bucket: "projects", Key: "App.config"})

	_, err := source.Load(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, config.ErrNotFound))

	_, err = NewS3Source().Load(context.Background())
	assert.Error(t, err)
}

func TestParseS3Config(t *testing.T) {
	cfg, err := parseS3Config(map[string]interface{}{"bucket": "b", "key": "x/App.config", "max_retries": float64(5), "force_path_style": true})
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", cfg.Region)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.True(t, cfg.ForcePathStyle)
	assert.Equal(t, "x/App.config", cfg.ObjectKey())

	_, err = parseS3Config(map[string]interface{}{"key": "k"})
	assert.Error(t, err)
	_, err = parseS3Config(map[string]interface{}{"bucket": "b"})
	assert.Error(t, err)
	_, err = parseS3Config(map[string]interface{}{"bucket": "b", "key": "k", "region": ""})
	assert.Error(t, err)
}

func TestParsePostgresConfig(t *testing.T) {
	cfg, err := parsePostgresConfig(map[string]interface{}{
		"database": "workspace",
		"username": "wizard",
		"password": "it's secret",
		"project":  "shop",
		"port":     float64(6543),
	})
	require.NoError(t, err)
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 6543, cfg.Port)
	assert.Equal(t, `host=localhost port=6543 dbname=workspace user=wizard sslmode=prefer password='it\'s secret'`, cfg.DSN())
	assert.Equal(t,
		`SELECT content FROM "public"."project_configs" WHERE project = $1 ORDER BY updated_at DESC LIMIT 1`,
		cfg.selectQuery())

	for _, settings := range []map[string]interface{}{
		{"username": "u", "project": "p"},
		{"database": "d", "project": "p"},
		{"database": "d", "username": "u"},
		{"database": "d", "username": "u", "project": "p", "port": 70000},
	} {
		_, err := parsePostgresConfig(settings)
		assert.Error(t, err)
	}
}

type fakeContentQuerier struct {
	content  map[string]string
	err      error
	queries  []string
	projects []string
}

func (f *fakeContentQuerier) QueryContent(_ context.Context, query string, project string) (string, error) {
	f.queries = append(f.queries, query)
	f.projects = append(f.projects, project)
	if f.err != nil {
		return "", f.err
	}
	content, ok := f.content[project]
	if !ok {
		return "", sql.ErrNoRows
	}
	return content, nil
}

func postgresTestConfig(t *testing.T) *PostgresConfig {
	t.Helper()
	cfg, err := parsePostgresConfig(map[string]interface{}{
		"database":   "workspace",
		"username":   "wizard",
		"project":    "shop",
		"schema":     "ide",
		"table_name": "configs",
	})
	require.NoError(t, err)
	return cfg
}

func TestPostgresSource_Load(t *testing.T) {
	querier := &fakeContentQuerier{content: map[string]string{"shop": appConfig}}
	source := NewPostgresSourceWithQuerier(querier, postgresTestConfig(t))

	doc, err := source.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"myModel"}, doc.ConnectionStringNames())

	require.Len(t, querier.queries, 1)
	assert.Equal(t,
		`SELECT content FROM "ide"."configs" WHERE project = $1 ORDER BY updated_at DESC LIMIT 1`,
		querier.queries[0])
	assert.Equal(t, []string{"shop"}, querier.projects)
	assert.NoError(t, source.Close())
}

func TestPostgresSource_LoadErrors(t *testing.T) {
	ctx := context.Background()

	missing := NewPostgresSourceWithQuerier(&fakeContentQuerier{}, postgresTestConfig(t))
	_, err := missing.Load(ctx)
	assert.ErrorIs(t, err, config.ErrNotFound)
	assert.Contains(t, err.Error(), `"shop"`)

	broken := NewPostgresSourceWithQuerier(&fakeContentQuerier{err: errors.New("connection reset")}, postgresTestConfig(t))
	_, err = broken.Load(ctx)
	require.Error(t, err)
	assert.False(t, errors.Is(err, config.ErrNotFound))

	malformed := NewPostgresSourceWithQuerier(
		&fakeContentQuerier{content: map[string]string{"shop": "<configuration><connectionStrings>"}},
		postgresTestConfig(t))
	_, err = malformed.Load(ctx)
	require.Error(t, err)
	assert.False(t, errors.Is(err, config.ErrNotFound))
	assert.Contains(t, err.Error(), `project "shop"`)
}

func TestPostgresSource_NotConfigured(t *testing.T) {
	source := NewPostgresSource()
	_, err := source.Load(context.Background())
	assert.Error(t, err)
	assert.NoError(t, source.Close())
}

func TestSettingHelpersAcceptStrings(t *testing.T) {
	settings := map[string]interface{}{"port": " 6543", "path_style": "true", "retries": "many"}

	port := 5432
	intSetting(settings, "port", &port)
	assert.Equal(t, 6543, port)

	retries := 3
	intSetting(settings, "retries", &retries)
	assert.Equal(t, 3, retries)

	var pathStyle bool
	boolSetting(settings, "path_style", &pathStyle)
	assert.True(t, pathStyle)
}
