package docstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IDField is the internal identifier every stored document carries.
const IDField = "_id"

// Document is a single stored record.
type Document = bson.M

var (
	ErrNotFound    = errors.New("docstore: document not found")
	ErrDuplicateID = errors.New("docstore: duplicate _id")
	ErrImmutableID = errors.New("docstore: _id cannot be modified")
	ErrProjection  = errors.New("docstore: cannot mix inclusion and exclusion in projection")
	ErrClosed      = errors.New("docstore: collection closed")
)

// SortKey orders results on Field.
type SortKey struct {
	Field string
	Desc  bool
}

// FindOptions window and shape the result of Find. Limit <= 0 means no limit.
type FindOptions struct {
	Sort       []SortKey
	Skip       int
	Limit      int
	Projection map[string]bool
}

type UpdateOptions struct {
	Multi bool
}

type RemoveOptions struct {
	Multi bool
}

// Collection is a named set of documents backed by an append-only file.
// All operations are serialized by an internal lock.
type Collection struct {
	mu     sync.RWMutex
	log    *logFile
	order  []string
	byID   map[string]Document
	closed bool
}

// Open loads the collection stored at path, compacting the file once loaded.
// An empty path gives an in-memory collection.
func Open(ctx context.Context, path string) (*Collection, error) {
	c := &Collection{byID: make(map[string]Document)}
	if path == "" {
		return c, nil
	}
	lf, docs, err := openLogFile(path)
	if err != nil {
		return nil, err
	}
	c.log = lf
	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			_ = lf.close()
			return nil, err
		}
		id, _ := d[IDField].(string)
		if isTombstone(d) {
			c.drop(id)
			continue
		}
		if _, ok := c.byID[id]; !ok {
			c.order = append(c.order, id)
		}
		c.byID[id] = d
	}
	if err := c.compactLocked(); err != nil {
		_ = lf.close()
		return nil, err
	}
	return c, nil
}

// NewID returns a fresh document identifier.
func NewID() string { return primitive.NewObjectID().Hex() }

func (c *Collection) drop(id string) {
	if _, ok := c.byID[id]; !ok {
		return
	}
	delete(c.byID, id)
	if i := slices.Index(c.order, id); i >= 0 {
		c.order = slices.Delete(c.order, i, i+1)
	}
}

func (c *Collection) persist(docs ...Document) error {
	if c.log == nil {
		return nil
	}
	return c.log.append(docs...)
}

// Insert stores doc, assigning an _id when it has none, and returns a copy
// of the stored document.
func (c *Collection) Insert(ctx context.Context, doc Document) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stored, err := clone(doc)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		stored = Document{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	id, ok := stored[IDField].(string)
	if !ok || id == "" {
		id = NewID()
		stored[IDField] = id
	}
	if _, exists := c.byID[id]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	if err := c.persist(stored); err != nil {
		return nil, err
	}
	c.byID[id] = stored
	c.order = append(c.order, id)
	return clone(stored)
}

// matchLocked returns the live documents matching f in insertion order.
func (c *Collection) matchLocked(f Filter) []Document {
	if f == nil {
		f = All{}
	}
	var out []Document
	for _, id := range c.order {
		d := c.byID[id]
		if f.Match(d) {
			out = append(out, d)
		}
	}
	return out
}

// Find returns copies of the documents matching f, sorted, windowed and
// projected according to opts.
func (c *Collection) Find(ctx context.Context, f Filter, opts FindOptions) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	proj, err := newProjection(opts.Projection)
	if err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrClosed
	}
	matched := c.matchLocked(f)
	if len(opts.Sort) > 0 {
		slices.SortStableFunc(matched, func(a, b Document) int {
			for _, k := range opts.Sort {
				av, aok := lookup(a, k.Field)
				bv, bok := lookup(b, k.Field)
				cmp := compareValues(av, aok, bv, bok)
				if k.Desc {
					cmp = -cmp
				}
				if cmp != 0 {
					return cmp
				}
			}
			return 0
		})
	}
	if opts.Skip > 0 {
		if opts.Skip >= len(matched) {
			matched = nil
		} else {
			matched = matched[opts.Skip:]
		}
	}
	if opts.Limit > 0 && len(matched) > opts.Limit {
		matched = matched[:opts.Limit]
	}
	out := make([]Document, 0, len(matched))
	for _, d := range matched {
		cp, err := clone(d)
		if err != nil {
			return nil, err
		}
		out = append(out, proj.apply(cp))
	}
	return out, nil
}

// FindOne returns the first document matching f in insertion order.
func (c *Collection) FindOne(ctx context.Context, f Filter) (Document, error) {
	docs, err := c.Find(ctx, f, FindOptions{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return docs[0], nil
}

// Count returns the number of documents matching f.
func (c *Collection) Count(ctx context.Context, f Filter) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return 0, ErrClosed
	}
	return len(c.matchLocked(f)), nil
}

// Update merges set into the matching documents (only the first one unless
// opts.Multi) and returns the number of documents modified.
func (c *Collection) Update(ctx context.Context, f Filter, set Document, opts UpdateOptions) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if _, ok := set[IDField]; ok {
		return 0, ErrImmutableID
	}
	fields, err := clone(set)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, ErrClosed
	}
	matched := c.matchLocked(f)
	if !opts.Multi && len(matched) > 1 {
		matched = matched[:1]
	}
	updated := make([]Document, 0, len(matched))
	for _, d := range matched {
		next, err := clone(d)
		if err != nil {
			return 0, err
		}
		for k, v := range fields {
			next[k] = v
		}
		updated = append(updated, next)
	}
	if err := c.persist(updated...); err != nil {
		return 0, err
	}
	for _, d := range updated {
		c.byID[d[IDField].(string)] = d
	}
	return len(updated), nil
}

// Remove deletes the matching documents (at most one unless opts.Multi) and
// returns how many were removed.
func (c *Collection) Remove(ctx context.Context, f Filter, opts RemoveOptions) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, ErrClosed
	}
	matched := c.matchLocked(f)
	if !opts.Multi && len(matched) > 1 {
		matched = matched[:1]
	}
	tombs := make([]Document, 0, len(matched))
	for _, d := range matched {
		tombs = append(tombs, tombstone(d[IDField].(string)))
	}
	if err := c.persist(tombs...); err != nil {
		return 0, err
	}
	for _, d := range matched {
		c.drop(d[IDField].(string))
	}
	return len(matched), nil
}

// Compact rewrites the backing file so it holds only live documents.
func (c *Collection) Compact(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return c.compactLocked()
}

func (c *Collection) compactLocked() error {
	if c.log == nil {
		return nil
	}
	docs := make([]Document, 0, len(c.order))
	for _, id := range c.order {
		docs = append(docs, c.byID[id])
	}
	return c.log.rewrite(docs)
}

// Close releases the backing file. Further calls fail with ErrClosed.
func (c *Collection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.log == nil {
		return nil
	}
	return c.log.close()
}

// clone deep-copies a document by round-tripping it through BSON, which
// also normalizes Go values to their stored representation.
func clone(doc Document) (Document, error) {
	if doc == nil {
		return nil, nil
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("docstore: encode document: %w", err)
	}
	var out Document
	if err := bson.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("docstore: decode document: %w", err)
	}
	return out, nil
}
