package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ViewRequiresExactlyOneSource(t *testing.T) {
	dir := t.TempDir()
	root := writeFile(t, dir, "duckalog.yaml", `
views:
  - name: none_set
  - name: two_set
    sql: SELECT 1
    sql_file: x.sql
`)

	_, err := newTestLoader(t, LoaderOptions{}).Load(root)
	require.Error(t, err)

	var verrs *ValidationErrors
	require.ErrorAs(t, err, &verrs)
	require.Len(t, verrs.Errors, 2)
	assert.Contains(t, verrs.Errors[0].Error(), "none_set")
	assert.Contains(t, verrs.Errors[0].Error(), "required")
	assert.Contains(t, verrs.Errors[1].Error(), "two_set")
	assert.Contains(t, verrs.Errors[1].Error(), "mutually exclusive")
}

func TestValidate_SourceReferencesUnknownAttachment(t *testing.T) {
	dir := t.TempDir()
	root := writeFile(t, dir, "duckalog.yaml", `
views:
  - name: users
    source:
      attachment: nowhere
      table: public.users
`)

	_, err := newTestLoader(t, LoaderOptions{}).Load(root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown attachment "nowhere"`)
}

func TestValidate_SourceAgainstDeclaredAttachment(t *testing.T) {
	dir := t.TempDir()
	root := writeFile(t, dir, "duckalog.yaml", `
attachments:
  sqlite:
    - alias: meta
      path: meta.db
views:
  - name: users
    source:
      attachment: meta
      table: users
`)

	_, err := newTestLoader(t, LoaderOptions{}).Load(root)
	require.NoError(t, err)
}

func TestValidate_AttachmentShapes(t *testing.T) {
	dir := t.TempDir()
	root := writeFile(t, dir, "duckalog.yaml", `
attachments:
  duckdb:
    - alias: no_target
  sqlite:
    - alias: nested_sqlite
      path: x.db
      config: child.yaml
  postgres:
    - alias: pg
      dbname: app
`)

	_, err := newTestLoader(t, LoaderOptions{}).Load(root)
	require.Error(t, err)

	var verrs *ValidationErrors
	require.ErrorAs(t, err, &verrs)

	msgs := make([]string, len(verrs.Errors))
	for i, e := range verrs.Errors {
		msgs[i] = e.Error()
	}
	joined := ""
	for _, m := range msgs {
		joined += m + "\n"
	}
	assert.Contains(t, joined, "no_target")
	assert.Contains(t, joined, "path or config is required")
	assert.Contains(t, joined, "nested config is only supported for duckdb attachments")
	assert.Contains(t, joined, "host and dbname are required")
}

func TestValidate_SecretOptionsMustBePrimitive(t *testing.T) {
	dir := t.TempDir()
	root := writeFile(t, dir, "duckalog.yaml", `
secrets:
  - name: s3_main
    type: s3
    options:
      retries: [1, 2, 3]
`)

	_, err := newTestLoader(t, LoaderOptions{}).Load(root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"retries"`)
	assert.Contains(t, err.Error(), "unsupported type")
}

func TestValidate_SecretTypeShape(t *testing.T) {
	dir := t.TempDir()
	root := writeFile(t, dir, "duckalog.yaml", `
secrets:
  - name: bad
    type: "s3; DROP TABLE x--"
`)

	_, err := newTestLoader(t, LoaderOptions{}).Load(root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "letters, digits, and underscores")
}

func TestValidate_DuplicateAliasAndCatalogName(t *testing.T) {
	dir := t.TempDir()
	root := writeFile(t, dir, "duckalog.yaml", `
attachments:
  duckdb:
    - alias: dup
      path: a.duckdb
  sqlite:
    - alias: dup
      path: b.db
catalogs:
  - name: lake
    metadata_path: lake.sqlite
  - name: lake
    metadata_path: other.sqlite
`)

	_, err := newTestLoader(t, LoaderOptions{}).Load(root)
	require.Error(t, err)

	var verrs *ValidationErrors
	require.ErrorAs(t, err, &verrs)

	var kinds []string
	for _, e := range verrs.Errors {
		var dup *DuplicateNameError
		if assert.ErrorAs(t, e, &dup) {
			kinds = append(kinds, dup.Kind+":"+dup.Name)
		}
	}
	assert.ElementsMatch(t, []string{"attachment:dup", "catalog:lake"}, kinds)
}

func TestValidate_SchemaScopedViewNamesAreDistinct(t *testing.T) {
	dir := t.TempDir()
	root := writeFile(t, dir, "duckalog.yaml", `
views:
  - name: users
    sql: SELECT 1
  - name: users
    schema: analytics
    sql: SELECT 2
`)

	_, err := newTestLoader(t, LoaderOptions{}).Load(root)
	require.NoError(t, err)
}
