package store

import (
	"context"
	"errors"
	"fmt"
	"iter"
)

// Entity provides typed CRUD over one collection of a DocumentStore.
type Entity[T any] struct {
	docs       DocumentStore
	collection Path
	setID      func(*T, string)
}

// NewEntity creates a typed view of collection. setID, when non-nil, copies the
// document id into decoded values; the document key is authoritative over any
// id stored in the body.
func NewEntity[T any](docs DocumentStore, collection Path, setID func(*T, string)) *Entity[T] {
	return &Entity[T]{docs: docs, collection: collection, setID: setID}
}

// Collection returns the collection path this entity reads and writes.
func (e *Entity[T]) Collection() Path { return e.collection }

// Path returns the document path for id.
func (e *Entity[T]) Path(id string) Path { return e.collection.Child(id) }

func (e *Entity[T]) decode(doc *Document) (*T, error) {
	var v T
	if err := doc.Decode(&v); err != nil {
		return nil, err
	}
	if e.setID != nil {
		e.setID(&v, doc.ID())
	}
	return &v, nil
}

// Create writes a new entity with the given ID.
// Returns ErrAlreadyExists if an entity with this ID already exists.
func (e *Entity[T]) Create(ctx context.Context, id string, entity *T) error {
	_, err := e.docs.Get(ctx, e.Path(id))
	if err == nil {
		return ErrAlreadyExists
	}
	if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to check existing %s: %w", e.Path(id), err)
	}
	return e.docs.Set(ctx, e.Path(id), entity)
}

// Get retrieves an entity by ID.
// Returns ErrNotFound if the entity does not exist.
func (e *Entity[T]) Get(ctx context.Context, id string) (*T, error) {
	doc, err := e.docs.Get(ctx, e.Path(id))
	if err != nil {
		return nil, err
	}
	return e.decode(doc)
}

// Put writes entity under id, replacing whatever was there.
func (e *Entity[T]) Put(ctx context.Context, id string, entity *T) error {
	return e.docs.Set(ctx, e.Path(id), entity)
}

// Replace overwrites an existing entity.
// Returns ErrNotFound if the entity does not exist.
func (e *Entity[T]) Replace(ctx context.Context, id string, entity *T) error {
	if _, err := e.docs.Get(ctx, e.Path(id)); err != nil {
		return err
	}
	return e.docs.Set(ctx, e.Path(id), entity)
}

// Update merges fields into an existing entity.
func (e *Entity[T]) Update(ctx context.Context, id string, fields Fields) error {
	return e.docs.Update(ctx, e.Path(id), fields)
}

// Delete deletes an entity by ID.
// This operation is idempotent - it does not return an error if the entity does not exist.
func (e *Entity[T]) Delete(ctx context.Context, id string) error {
	return e.docs.Delete(ctx, e.Path(id))
}

// Find runs q against this entity's collection and decodes the matches.
// q.Collection is overridden.
func (e *Entity[T]) Find(ctx context.Context, q Query) ([]*T, error) {
	q.Collection = e.collection
	q.Group = ""

	docs, err := e.docs.Query(ctx, q)
	if err != nil {
		return nil, err
	}

	out := make([]*T, 0, len(docs))
	for _, doc := range docs {
		v, err := e.decode(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// List returns an iterator over all entities in id order.
func (e *Entity[T]) List(ctx context.Context) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		docs, err := e.docs.Query(ctx, From(e.collection))
		if err != nil {
			yield(nil, err)
			return
		}
		for _, doc := range docs {
			if ctx.Err() != nil {
				yield(nil, ctx.Err())
				return
			}
			v, err := e.decode(doc)
			if !yield(v, err) || err != nil {
				return
			}
		}
	}
}

// ListPage returns one page of entities ordered by id. The cursor is the id of
// the last entity on the previous page.
func (e *Entity[T]) ListPage(ctx context.Context, params PaginationParams) (*PaginatedResult[*T], error) {
	params.Validate()

	after, err := DecodeCursor(params.Cursor)
	if err != nil {
		return nil, ErrInvalidInput.WithCause(err)
	}

	docs, err := e.docs.Query(ctx, From(e.collection))
	if err != nil {
		return nil, err
	}

	result := &PaginatedResult[*T]{Items: make([]*T, 0, params.Limit)}
	var lastID string
	for _, doc := range docs {
		if after != "" && doc.ID() <= after {
			continue
		}
		if len(result.Items) == params.Limit {
			result.HasMore = true
			break
		}
		v, err := e.decode(doc)
		if err != nil {
			return nil, err
		}
		result.Items = append(result.Items, v)
		lastID = doc.ID()
	}
	if result.HasMore {
		result.NextCursor = EncodeCursor(lastID)
	}
	return result, nil
}
