package docstore

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, c *Collection, docs ...Document) []string {
	t.Helper()
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		got, err := c.Insert(context.Background(), d)
		require.NoError(t, err)
		ids = append(ids, got[IDField].(string))
	}
	return ids
}

func names(docs []Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d["name"].(string))
	}
	return out
}

func TestInsert_AssignsID(t *testing.T) {
	ctx := context.Background()
	c, err := Open(ctx, "")
	require.NoError(t, err)

	doc := Document{"name": "lamp", "price": 12.5}
	got, err := c.Insert(ctx, doc)
	require.NoError(t, err)
	id, ok := got[IDField].(string)
	require.True(t, ok)
	assert.Len(t, id, 24)
	_, mutated := doc[IDField]
	assert.False(t, mutated, "caller document must not be modified")

	found, err := c.FindOne(ctx, ByID(id))
	require.NoError(t, err)
	assert.Equal(t, "lamp", found["name"])

	_, err = c.Insert(ctx, Document{IDField: id})
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestFindOne_NotFound(t *testing.T) {
	ctx := context.Background()
	c, _ := Open(ctx, "")
	_, err := c.FindOne(ctx, ByID("nope"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFind_FilterSortWindow(t *testing.T) {
	ctx := context.Background()
	c, _ := Open(ctx, "")
	seed(t, c,
		Document{"name": "chair", "category": "furniture", "price": 40.0},
		Document{"name": "desk", "category": "furniture", "price": 120.0, "description": "oak desk"},
		Document{"name": "pen", "category": "office", "price": 2.0},
		Document{"name": "sofa", "category": "furniture", "price": 300.0},
	)

	docs, err := c.Find(ctx, Eq{Field: "category", Value: "furniture"}, FindOptions{Sort: []SortKey{{Field: "price", Desc: true}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"sofa", "desk", "chair"}, names(docs))

	docs, err = c.Find(ctx, Range{Field: "price", Gte: 40.0, Lte: 120}, FindOptions{Sort: []SortKey{{Field: "price"}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"chair", "desk"}, names(docs))

	docs, err = c.Find(ctx, All{}, FindOptions{Sort: []SortKey{{Field: "price"}}, Skip: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"chair", "desk"}, names(docs))

	docs, err = c.Find(ctx, All{}, FindOptions{Skip: 10})
	require.NoError(t, err)
	assert.Empty(t, docs)

	re := regexp.MustCompile("(?i)OAK")
	docs, err = c.Find(ctx, Or{Regex{Field: "name", Pattern: re}, Regex{Field: "description", Pattern: re}}, FindOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"desk"}, names(docs))

	n, err := c.Count(ctx, And{Eq{Field: "category", Value: "furniture"}, Range{Field: "price", Lt: 200}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestFind_SortOnMissingFieldKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	c, _ := Open(ctx, "")
	seed(t, c, Document{"name": "b"}, Document{"name": "a"}, Document{"name": "c"})

	docs, err := c.Find(ctx, nil, FindOptions{Sort: []SortKey{{Field: "nosuchfield"}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, names(docs))
}

func TestFind_Projection(t *testing.T) {
	ctx := context.Background()
	c, _ := Open(ctx, "")
	seed(t, c, Document{"name": "pen", "price": 2.0, "category": "office"})

	docs, err := c.Find(ctx, All{}, FindOptions{Projection: map[string]bool{"name": true}})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0], IDField)
	assert.Contains(t, docs[0], "name")
	assert.NotContains(t, docs[0], "price")

	docs, err = c.Find(ctx, All{}, FindOptions{Projection: map[string]bool{"price": false, IDField: false}})
	require.NoError(t, err)
	assert.NotContains(t, docs[0], IDField)
	assert.NotContains(t, docs[0], "price")
	assert.Contains(t, docs[0], "category")

	_, err = c.Find(ctx, All{}, FindOptions{Projection: map[string]bool{"name": true, "price": false}})
	assert.ErrorIs(t, err, ErrProjection)
}

func TestFind_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	c, _ := Open(ctx, "")
	ids := seed(t, c, Document{"name": "pen"})

	doc, err := c.FindOne(ctx, ByID(ids[0]))
	require.NoError(t, err)
	doc["name"] = "changed"

	again, err := c.FindOne(ctx, ByID(ids[0]))
	require.NoError(t, err)
	assert.Equal(t, "pen", again["name"])
}

func TestUpdate_MergesFields(t *testing.T) {
	ctx := context.Background()
	c, _ := Open(ctx, "")
	ids := seed(t, c, Document{"name": "pen", "price": 2.0, "category": "office"})

	n, err := c.Update(ctx, ByID(ids[0]), Document{"price": 42.0}, UpdateOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	doc, err := c.FindOne(ctx, ByID(ids[0]))
	require.NoError(t, err)
	assert.Equal(t, 42.0, doc["price"])
	assert.Equal(t, "pen", doc["name"])
	assert.Equal(t, "office", doc["category"])

	n, err = c.Update(ctx, ByID("missing"), Document{"price": 1.0}, UpdateOptions{})
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = c.Update(ctx, ByID(ids[0]), Document{IDField: "other"}, UpdateOptions{})
	assert.ErrorIs(t, err, ErrImmutableID)
}

func TestRemove_SingleAndMulti(t *testing.T) {
	ctx := context.Background()
	c, _ := Open(ctx, "")
	seed(t, c, Document{"name": "a", "tag": "x"}, Document{"name": "b", "tag": "x"}, Document{"name": "c", "tag": "x"})

	n, err := c.Remove(ctx, Eq{Field: "tag", Value: "x"}, RemoveOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = c.Remove(ctx, Eq{Field: "tag", Value: "x"}, RemoveOptions{Multi: true})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = c.Count(ctx, All{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEq_MatchesArrayElementsAndNestedFields(t *testing.T) {
	doc := Document{
		"tags":  []any{"red", "blue"},
		"items": []any{Document{"productId": "a", "quantity": 2}, Document{"productId": "b", "quantity": 3}},
	}
	assert.True(t, Eq{Field: "tags", Value: "blue"}.Match(doc))
	assert.False(t, Eq{Field: "tags", Value: "green"}.Match(doc))
	assert.True(t, Eq{Field: "items.productId", Value: "b"}.Match(doc))
	assert.True(t, Eq{Field: "items.1.quantity", Value: 3}.Match(doc))
	assert.True(t, Range{Field: "items.quantity", Gt: 2}.Match(doc))
	assert.False(t, Range{Field: "missing", Gte: 0}.Match(doc))
	assert.False(t, Range{Field: "tags", Gte: 0}.Match(doc), "strings never satisfy numeric bounds")
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "products.db")

	c, err := Open(ctx, path)
	require.NoError(t, err)
	ids := seed(t, c,
		Document{"name": "a", "price": 1.0},
		Document{"name": "b", "price": 2.0},
		Document{"name": "c", "price": 3.0},
	)
	_, err = c.Update(ctx, ByID(ids[0]), Document{"price": 10.0}, UpdateOptions{})
	require.NoError(t, err)
	_, err = c.Remove(ctx, ByID(ids[1]), RemoveOptions{})
	require.NoError(t, err)
	require.NoError(t, c.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 5, bytes.Count(raw, []byte("\n")), "every write appends a line")

	c, err = Open(ctx, path)
	require.NoError(t, err)
	defer c.Close()

	docs, err := c.Find(ctx, All{}, FindOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, names(docs))
	assert.Equal(t, 10.0, docs[0]["price"])

	raw, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, bytes.Count(raw, []byte("\n")), "load compacts the file")

	_, err = c.Insert(ctx, Document{"name": "d"})
	require.NoError(t, err)
	n, err := c.Count(ctx, All{})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestOpen_CorruptLines(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	var good bytes.Buffer
	for i := 0; i < 20; i++ {
		line, err := encodeLines([]Document{{IDField: NewID(), "n": i}})
		require.NoError(t, err)
		good.Write(line)
	}

	tolerated := filepath.Join(dir, "ok.db")
	require.NoError(t, os.WriteFile(tolerated, append(good.Bytes(), []byte("{not json\n")...), 0o644))
	c, err := Open(ctx, tolerated)
	require.NoError(t, err)
	n, _ := c.Count(ctx, All{})
	assert.Equal(t, 20, n)
	require.NoError(t, c.Close())

	broken := filepath.Join(dir, "broken.db")
	require.NoError(t, os.WriteFile(broken, []byte("garbage\n{\"x\":1}\n"), 0o644))
	_, err = Open(ctx, broken)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestClosedCollection(t *testing.T) {
	ctx := context.Background()
	c, _ := Open(ctx, filepath.Join(t.TempDir(), "x.db"))
	require.NoError(t, c.Close())
	_, err := c.Insert(ctx, Document{"a": 1})
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, c.Close())
}

func TestCompact_FailedRenameKeepsCollectionWritable(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "orders.db")
	c, err := Open(ctx, path)
	require.NoError(t, err)
	seed(t, c, Document{"name": "a"})

	rename = func(string, string) error { return errors.New("disk full") }
	t.Cleanup(func() { rename = os.Rename })

	require.Error(t, c.Compact(ctx))
	assert.NoFileExists(t, path+"~")

	rename = os.Rename
	seed(t, c, Document{"name": "b"})
	require.NoError(t, c.Close())

	c, err = Open(ctx, path)
	require.NoError(t, err)
	defer c.Close()
	docs, err := c.Find(ctx, All{}, FindOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names(docs))
}
