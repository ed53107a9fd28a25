// Package pagination builds and consumes opaque cursor tokens for list endpoints.
//
// A cursor carries {resource, subject, total_pages, items_per_page,
// current_page} and points at the page it will produce. total_pages is
// computed once, on the first page of a browsing session, and is carried
// unchanged by every later cursor even if the collection changes.
package pagination

import (
	"context"
	"fmt"

	"github.com/and161185/notekeeper/internal/errs"
	"github.com/and161185/notekeeper/internal/token"
)

const (
	// DefaultItemsPerPage applies when the caller does not pick a page size.
	DefaultItemsPerPage = 50
	// MaxItemsPerPage caps caller-chosen page sizes.
	MaxItemsPerPage = 500
)

// CountFunc returns the size of the collection for an optional subject filter.
type CountFunc func(ctx context.Context, subject *string) (int, error)

// ListFunc returns one window of the collection, in a stable order.
type ListFunc[T any] func(ctx context.Context, subject *string, offset, limit int) ([]T, error)

// Request describes what the caller asked for. At most one of Next and Back
// may be set; when either is, Subject, ItemsPerPage and Page are ignored.
type Request struct {
	Subject      *string
	ItemsPerPage int // 0 means DefaultItemsPerPage
	Page         int // 0 means first page
	Next         string
	Back         string
}

// Page is one page of results plus the cursors to its neighbours.
// NextPage and BackPage are nil at the respective ends of the list.
type Page[T any] struct {
	Items        []T
	CurrentPage  int
	TotalPages   int
	ItemsPerPage int
	NextPage     *string
	BackPage     *string
}

// Cursors mints and reads cursor tokens for one named listing.
type Cursors struct {
	codec    *token.Codec
	resource string
}

// NewCursors binds a codec to a listing name. Cursors minted for one
// listing are rejected by every other.
func NewCursors(codec *token.Codec, resource string) *Cursors {
	return &Cursors{codec: codec, resource: resource}
}

// state is the decoded position of a browsing session.
type state struct {
	subject      *string
	totalPages   int
	itemsPerPage int
	currentPage  int
}

// Paginate resolves the request to a page position, fetches that window and
// emits neighbour cursors.
func Paginate[T any](ctx context.Context, c *Cursors, req Request, count CountFunc, list ListFunc[T]) (Page[T], error) {
	st, err := c.resolve(ctx, req, count)
	if err != nil {
		return Page[T]{}, err
	}
	if st.currentPage < 1 || st.currentPage > st.totalPages {
		return Page[T]{}, fmt.Errorf("%w: page %d out of range, total_pages is %d",
			errs.ErrCursorOutOfRange, st.currentPage, st.totalPages)
	}

	offset := (st.currentPage - 1) * st.itemsPerPage
	items, err := list(ctx, st.subject, offset, st.itemsPerPage)
	if err != nil {
		return Page[T]{}, fmt.Errorf("list: %w", err)
	}
	if items == nil {
		items = []T{}
	}

	p := Page[T]{
		Items:        items,
		CurrentPage:  st.currentPage,
		TotalPages:   st.totalPages,
		ItemsPerPage: st.itemsPerPage,
	}
	if st.currentPage < st.totalPages {
		next, err := c.encode(st, st.currentPage+1)
		if err != nil {
			return Page[T]{}, err
		}
		p.NextPage = &next
	}
	if st.currentPage > 1 {
		back, err := c.encode(st, st.currentPage-1)
		if err != nil {
			return Page[T]{}, err
		}
		p.BackPage = &back
	}
	return p, nil
}

func (c *Cursors) resolve(ctx context.Context, req Request, count CountFunc) (state, error) {
	switch {
	case req.Next != "" && req.Back != "":
		return state{}, errs.ErrCursorAmbiguous
	case req.Next != "":
		return c.decode(req.Next)
	case req.Back != "":
		return c.decode(req.Back)
	}

	ipp := req.ItemsPerPage
	if ipp == 0 {
		ipp = DefaultItemsPerPage
	}
	if ipp < 1 || ipp > MaxItemsPerPage {
		return state{}, fmt.Errorf("%w: items_per_page must be within [1, %d]", errs.ErrInvalidArgument, MaxItemsPerPage)
	}
	page := req.Page
	if page == 0 {
		page = 1
	}

	total, err := count(ctx, req.Subject)
	if err != nil {
		return state{}, fmt.Errorf("count: %w", err)
	}
	return state{
		subject:      req.Subject,
		totalPages:   TotalPages(total, ipp),
		itemsPerPage: ipp,
		currentPage:  page,
	}, nil
}

func (c *Cursors) decode(tok string) (state, error) {
	cl, err := c.codec.DecodeCursor(tok)
	if err != nil {
		return state{}, err
	}
	if cl.Resource != c.resource {
		return state{}, fmt.Errorf("%w: cursor belongs to %q", errs.ErrTokenMalformed, cl.Resource)
	}
	if cl.ItemsPerPage < 1 || cl.TotalPages < 1 {
		return state{}, fmt.Errorf("%w: cursor geometry", errs.ErrTokenMalformed)
	}
	return state{
		subject:      cl.Subject,
		totalPages:   cl.TotalPages,
		itemsPerPage: cl.ItemsPerPage,
		currentPage:  cl.CurrentPage,
	}, nil
}

func (c *Cursors) encode(st state, page int) (string, error) {
	tok, err := c.codec.EncodeCursor(token.CursorClaims{
		Resource:     c.resource,
		Subject:      st.subject,
		TotalPages:   st.totalPages,
		ItemsPerPage: st.itemsPerPage,
		CurrentPage:  page,
	})
	if err != nil {
		return "", fmt.Errorf("cursor encode: %w", err)
	}
	return tok, nil
}

// TotalPages is the number of pages needed for total items; an empty
// collection still has one (empty) page.
func TotalPages(total, itemsPerPage int) int {
	if total <= 0 {
		return 1
	}
	return (total + itemsPerPage - 1) / itemsPerPage
}
