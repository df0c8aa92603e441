package datasource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanderheijden86/gcbrowse/pkg/api"
	"github.com/vanderheijden86/gcbrowse/pkg/model"
)

const fixtureSchema = `
CREATE TABLE "User" (
	"id" TEXT PRIMARY KEY NOT NULL,
	"name" TEXT NOT NULL,
	"createdAt" DATETIME,
	"updatedAt" DATETIME
);
CREATE TABLE "Post" (
	"id" TEXT PRIMARY KEY NOT NULL,
	"title" TEXT NOT NULL,
	"views" INTEGER DEFAULT 0,
	"published" BOOLEAN NOT NULL DEFAULT 0,
	"meta" JSON,
	"authorId" TEXT REFERENCES "User"("id") ON DELETE SET NULL,
	"createdAt" DATETIME,
	"updatedAt" DATETIME
);
CREATE TABLE "_migrations" ("version" INTEGER);
`

func newFixture(t *testing.T, posts int) *SQLiteBackend {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(fixtureSchema)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO "User" ("id", "name") VALUES ('u1', 'Ada')`)
	require.NoError(t, err)
	for i := 0; i < posts; i++ {
		_, err = db.Exec(`INSERT INTO "Post" ("id", "title", "views", "published", "authorId") VALUES (?, ?, ?, ?, ?)`,
			fmt.Sprintf("p%03d", i), fmt.Sprintf("Post %d", i), i*10, i%2, "u1")
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	b, err := OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func postModel(t *testing.T, b *SQLiteBackend) model.Model {
	t.Helper()
	models, err := b.ListModels(context.Background())
	require.NoError(t, err)
	for _, m := range models {
		if m.Name == "Post" {
			return m
		}
	}
	t.Fatal("Post model not found")
	return model.Model{}
}

func TestSchemaIntrospection(t *testing.T) {
	b := newFixture(t, 3)
	models, err := b.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2, "underscore tables are hidden")
	assert.Equal(t, "Post", models[0].Name)
	assert.Equal(t, 3, models[0].ItemCount)
	assert.Equal(t, "Posts", models[0].NamePlural)

	post := models[0]
	author, ok := post.Field("author")
	require.True(t, ok, "authorId foreign key should surface as author relation")
	assert.Equal(t, model.TypeRelation, author.TypeIdentifier)
	assert.Equal(t, "User", author.RelatedModel)

	published, _ := post.Field("published")
	assert.Equal(t, model.TypeBoolean, published.TypeIdentifier)
	assert.True(t, published.IsRequired)

	created, _ := post.Field("createdAt")
	assert.True(t, created.IsReadonly)
	id, _ := post.Field("id")
	assert.Equal(t, model.TypeID, id.TypeIdentifier)
}

func TestFetchPageOrderAndWindow(t *testing.T) {
	b := newFixture(t, 120)
	ctx := context.Background()
	post := postModel(t, b)

	page, err := b.FetchPage(ctx, post, nil, model.DefaultOrder(), 50, 50)
	require.NoError(t, err)
	require.Len(t, page, 50)
	assert.Equal(t, "p050", page[0].ID)
	assert.Equal(t, "p099", page[49].ID)

	views, _ := page[0].Get("views")
	assert.EqualValues(t, 500, views)
	pub, _ := page[1].Get("published")
	assert.Equal(t, true, pub)
	author, _ := page[0].Get("author")
	assert.Equal(t, []string{"u1"}, model.RelationIDs(author))

	desc, err := b.FetchPage(ctx, post, nil, model.OrderBy{FieldName: "views", Direction: model.DESC}, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, "p119", desc[0].ID)

	tail, err := b.FetchPage(ctx, post, nil, model.DefaultOrder(), 200, 50)
	require.NoError(t, err)
	assert.Empty(t, tail)
}

func TestFilter(t *testing.T) {
	b := newFixture(t, 30)
	ctx := context.Background()
	post := postModel(t, b)

	n, err := b.FetchCount(ctx, post, model.Filter{"title": "Post 1"})
	require.NoError(t, err)
	assert.Equal(t, 11, n) // Post 1, Post 10..19

	n, err = b.FetchCount(ctx, post, model.Filter{"published": true, "author": "u1"})
	require.NoError(t, err)
	assert.Equal(t, 15, n)

	n, err = b.FetchCount(ctx, post, model.Filter{"title": "100%"})
	require.NoError(t, err)
	assert.Equal(t, 0, n, "LIKE wildcards in the filter value are literal")

	_, err = b.FetchCount(ctx, post, model.Filter{"nope": 1})
	assert.True(t, errors.Is(err, api.ErrValidation))
}

func TestCreateUpdateDelete(t *testing.T) {
	b := newFixture(t, 0)
	ctx := context.Background()
	post := postModel(t, b)

	rec, err := b.Create(ctx, post, map[string]any{"title": "Hello", "published": true, "meta": map[string]any{"k": "v"}, "author": "u1"})
	require.NoError(t, err)
	require.NotEmpty(t, rec.ID)
	meta, _ := rec.Get("meta")
	assert.Equal(t, map[string]any{"k": "v"}, meta)
	created, _ := rec.Get("createdAt")
	assert.NotEmpty(t, created)

	rec, err = b.Update(ctx, post, rec.ID, "title", "Renamed")
	require.NoError(t, err)
	title, _ := rec.Get("title")
	assert.Equal(t, "Renamed", title)

	_, err = b.Update(ctx, post, rec.ID, "createdAt", "2020-01-01")
	assert.True(t, errors.Is(err, api.ErrValidation))
	_, err = b.Update(ctx, post, "missing", "title", "x")
	assert.True(t, errors.Is(err, api.ErrNotFound))

	require.NoError(t, b.Delete(ctx, post, rec.ID))
	err = b.Delete(ctx, post, rec.ID)
	assert.True(t, errors.Is(err, api.ErrNotFound))
}

func TestCreateManyRollsBackChunk(t *testing.T) {
	b := newFixture(t, 0)
	ctx := context.Background()
	post := postModel(t, b)

	err := b.CreateMany(ctx, post, []map[string]any{
		{"title": "ok", "published": false},
		{"title": nil, "published": false},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, api.ErrValidation), "NOT NULL violation is a validation error: %v", err)
	n, _ := b.FetchCount(ctx, post, nil)
	assert.Equal(t, 0, n)

	require.NoError(t, b.CreateMany(ctx, post, []map[string]any{
		{"title": "a", "published": false},
		{"title": "b", "published": true},
	}))
	n, _ = b.FetchCount(ctx, post, nil)
	assert.Equal(t, 2, n)
}

func TestAddModel(t *testing.T) {
	b := newFixture(t, 0)
	ctx := context.Background()

	m, err := b.AddModel(ctx, "Comment")
	require.NoError(t, err)
	assert.Equal(t, "Comment", m.Name)
	assert.Len(t, m.Fields, 3)

	_, err = b.AddModel(ctx, "Comment")
	assert.True(t, errors.Is(err, api.ErrValidation))
	_, err = b.AddModel(ctx, "bad name")
	assert.True(t, errors.Is(err, api.ErrValidation))

	count, err := b.FetchCount(ctx, model.Model{Name: "Missing"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestDescribe(t *testing.T) {
	_, err := Describe(Options{})
	assert.ErrorIs(t, err, ErrNoSource)

	src, err := Describe(Options{Endpoint: "ftp://example.com"})
	require.NoError(t, err)
	assert.False(t, src.Valid)

	src, err = Describe(Options{Database: filepath.Join(t.TempDir(), "new.db"), Endpoint: "https://api.example.com/simple/v1/x"})
	require.NoError(t, err)
	assert.Equal(t, SourceTypeSQLite, src.Type)
	assert.True(t, src.Valid)

	b, src, err := Open(context.Background(), Options{Endpoint: "https://api.example.com/simple/v1/x"})
	require.NoError(t, err)
	assert.Equal(t, SourceTypeGraphQL, src.Type)
	require.NoError(t, b.Close())
}
