package emit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legout/duckalog/internal/config"
	"github.com/legout/duckalog/pkg/sqlsafe"
)

func TestStatements_PhasesOrdered(t *testing.T) {
	cfg := &config.Config{
		Secrets: []config.Secret{{Name: "s3_main", Type: "s3", Region: "eu-central-1"}},
		Attachments: config.AttachmentGroups{
			SQLite: []config.Attachment{{Alias: "meta", Path: "meta.db", ReadOnly: true}},
		},
		Catalogs: []config.Catalog{{Name: "lake", MetadataPath: "lake.sqlite", DataPath: "s3://bucket/lake/"}},
		Views: []config.View{
			{Name: "users", Schema: "staging", SQL: "SELECT 1"},
			{Name: "orders", SQL: "SELECT 2"},
		},
	}

	stmts, err := Statements(cfg, nil)
	require.NoError(t, err)

	phases := make([]Phase, len(stmts))
	for i, s := range stmts {
		phases[i] = s.Phase
	}
	assert.Equal(t, []Phase{PhaseSecret, PhaseAttachment, PhaseCatalog, PhaseSchema, PhaseView, PhaseView}, phases)
}

func TestSecretSQL(t *testing.T) {
	useSSL := false
	tests := []struct {
		name   string
		secret config.Secret
		want   string
	}{
		{
			name:   "minimal",
			secret: config.Secret{Name: "s1", Type: "s3"},
			want:   `CREATE OR REPLACE SECRET "s1" (TYPE s3)`,
		},
		{
			name: "persistent with credentials",
			secret: config.Secret{
				Name: "s3_main", Type: "s3", Persistent: true,
				KeyID: "AKIA123", Secret: "se'cret", Region: "us-east-1",
			},
			want: `CREATE OR REPLACE PERSISTENT SECRET "s3_main" (TYPE s3, KEY_ID 'AKIA123', SECRET 'se''cret', REGION 'us-east-1')`,
		},
		{
			name: "scope and options",
			secret: config.Secret{
				Name: "minio", Type: "s3", Provider: "config",
				Endpoint: "minio.local:9000", URLStyle: "path", UseSSL: &useSSL,
				Scope:   []any{"s3://raw", "s3://curated"},
				Options: map[string]any{"kms_key_id": "k1"},
			},
			want: `CREATE OR REPLACE SECRET "minio" (TYPE s3, PROVIDER config, ENDPOINT 'minio.local:9000', URL_STYLE 'path', USE_SSL FALSE, SCOPE ('s3://raw', 's3://curated'), kms_key_id 'k1')`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := secretSQL(tt.secret)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSecretSQL_OptionTypeError(t *testing.T) {
	_, err := secretSQL(config.Secret{
		Name: "s1", Type: "s3",
		Options: map[string]any{"scope_list": []any{"a"}},
	})
	require.Error(t, err)

	var typeErr *sqlsafe.OptionTypeError
	require.ErrorAs(t, err, &typeErr)
	assert.Equal(t, "scope_list", typeErr.Key)
}

func TestAttachSQL(t *testing.T) {
	tests := []struct {
		name       string
		attachment config.Attachment
		artifacts  map[string]string
		want       string
	}{
		{
			name:       "duckdb plain",
			attachment: config.Attachment{Alias: "warehouse", Path: "wh.duckdb", Kind: config.KindDuckDB},
			want:       `ATTACH IF NOT EXISTS 'wh.duckdb' AS "warehouse"`,
		},
		{
			name:       "duckdb nested uses built artifact",
			attachment: config.Attachment{Alias: "child", Config: "child/duckalog.yaml", Kind: config.KindDuckDB},
			artifacts:  map[string]string{"child": "/build/child.duckdb"},
			want:       `ATTACH IF NOT EXISTS '/build/child.duckdb' AS "child"`,
		},
		{
			name:       "sqlite read only",
			attachment: config.Attachment{Alias: "meta", Path: "meta.db", ReadOnly: true, Kind: config.KindSQLite},
			want:       `ATTACH IF NOT EXISTS 'meta.db' AS "meta" (TYPE sqlite, READ_ONLY)`,
		},
		{
			name: "postgres conninfo",
			attachment: config.Attachment{
				Alias: "pg", Host: "db.internal", Port: 5433,
				DBName: "app", User: "svc", Password: "p a'ss",
				ReadOnly: true, Kind: config.KindPostgres,
			},
			want: `ATTACH IF NOT EXISTS 'dbname=app host=db.internal user=svc password=''p a\''ss'' port=5433' AS "pg" (TYPE postgres, READ_ONLY)`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := attachSQL(&config.Config{}, tt.attachment, tt.artifacts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAttachSQL_FilePathsResolveAgainstConfigDir(t *testing.T) {
	cfg := &config.Config{Dir: "/srv/etl"}
	tests := []struct {
		name       string
		attachment config.Attachment
		want       string
	}{
		{
			name:       "duckdb relative",
			attachment: config.Attachment{Alias: "meta", Path: "meta.duckdb", Kind: config.KindDuckDB},
			want:       `ATTACH IF NOT EXISTS '/srv/etl/meta.duckdb' AS "meta"`,
		},
		{
			name:       "sqlite relative",
			attachment: config.Attachment{Alias: "state", Path: "state.db", Kind: config.KindSQLite},
			want:       `ATTACH IF NOT EXISTS '/srv/etl/state.db' AS "state" (TYPE sqlite)`,
		},
		{
			name:       "absolute passes through",
			attachment: config.Attachment{Alias: "wh", Path: "/data/wh.duckdb", Kind: config.KindDuckDB},
			want:       `ATTACH IF NOT EXISTS '/data/wh.duckdb' AS "wh"`,
		},
		{
			name:       "remote passes through",
			attachment: config.Attachment{Alias: "lake", Path: "s3://bucket/lake.duckdb", Kind: config.KindDuckDB},
			want:       `ATTACH IF NOT EXISTS 's3://bucket/lake.duckdb' AS "lake"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := attachSQL(cfg, tt.attachment, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAttachSQL_NestedWithoutArtifact(t *testing.T) {
	_, err := attachSQL(&config.Config{}, config.Attachment{
		Alias: "child", Config: "child.yaml", Kind: config.KindDuckDB,
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has not been built")
}

func TestCatalogSQL(t *testing.T) {
	got, err := catalogSQL(config.Catalog{
		Name:         "lake",
		MetadataPath: "metadata.sqlite",
		DataPath:     "s3://bucket/lake/",
		ReadOnly:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, `ATTACH IF NOT EXISTS 'ducklake:metadata.sqlite' AS "lake" (DATA_PATH 's3://bucket/lake/', READ_ONLY)`, got)
}

func TestViewSQL_InjectionStaysOneStatement(t *testing.T) {
	cfg := &config.Config{
		Views: []config.View{{
			Name: `users"; DROP TABLE x--`,
			SQL:  "SELECT 1",
		}},
		Attachments: config.AttachmentGroups{
			DuckDB: []config.Attachment{{Alias: "it's; DROP TABLE y--", Path: "x.duckdb"}},
		},
	}

	stmts, err := Statements(cfg, nil)
	require.NoError(t, err)

	for _, s := range stmts {
		// The hostile content must stay inside one quoted region: stripping
		// quoted regions leaves no DROP behind.
		assert.NotContains(t, stripQuoted(s.SQL), "DROP")
	}
}

func TestViewSQL_SourceDescriptors(t *testing.T) {
	tests := []struct {
		name string
		view config.View
		want string
	}{
		{
			name: "attachment table",
			view: config.View{Name: "users", Source: &config.Source{Attachment: "pg", Table: "public.users"}},
			want: `CREATE OR REPLACE VIEW "users" AS SELECT * FROM "pg"."public"."users"`,
		},
		{
			name: "parquet glob with options",
			view: config.View{
				Name:   "events",
				Schema: "raw",
				Source: &config.Source{
					Path:    "s3://bucket/events/*.parquet",
					Options: map[string]any{"hive_partitioning": true},
				},
			},
			want: `CREATE OR REPLACE VIEW "raw"."events" AS SELECT * FROM read_parquet('s3://bucket/events/*.parquet', hive_partitioning=TRUE)`,
		},
		{
			name: "csv explicit format",
			view: config.View{
				Name:   "seed",
				Source: &config.Source{Path: "data/seed", Format: "csv", Options: map[string]any{"header": true}},
			},
			want: `CREATE OR REPLACE VIEW "seed" AS SELECT * FROM read_csv('data/seed', header=TRUE)`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := viewSQL(tt.view)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestViewSQL_UnresolvedFileRef(t *testing.T) {
	_, err := viewSQL(config.View{Name: "v", SQLFile: "x.sql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not inlined")
}

func TestSchemaStatementsDeduplicated(t *testing.T) {
	cfg := &config.Config{
		Views: []config.View{
			{Name: "a", Schema: "staging", SQL: "SELECT 1"},
			{Name: "b", Schema: "staging", SQL: "SELECT 2"},
			{Name: "c", Schema: "analytics", SQL: "SELECT 3"},
		},
	}

	stmts, err := Statements(cfg, nil)
	require.NoError(t, err)

	var schemas []string
	for _, s := range stmts {
		if s.Phase == PhaseSchema {
			schemas = append(schemas, s.Object)
		}
	}
	assert.Equal(t, []string{"analytics", "staging"}, schemas)
}

// stripQuoted removes single- and double-quoted regions, honoring doubled
// quote escapes.
func stripQuoted(sql string) string {
	var b strings.Builder
	runes := []rune(sql)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if c == '\'' || c == '"' {
			quote := c
			i++
			for i < len(runes) {
				if runes[i] == quote {
					if i+1 < len(runes) && runes[i+1] == quote {
						i += 2
						continue
					}
					break
				}
				i++
			}
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}
