// Package convert maps wire messages (google.protobuf.Struct) to domain
// values and back.
package convert

import (
	"fmt"
	"math"
	"time"

	"github.com/gofrs/uuid/v5"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/notekeeper/internal/errs"
	"github.com/and161185/notekeeper/internal/model"
	"github.com/and161185/notekeeper/internal/pagination"
)

// Wire field names shared by requests and responses.
const (
	FieldSubject      = "subject"
	FieldItemsPerPage = "items_per_page"
	FieldPage         = "page"
	FieldNextPage     = "next_page"
	FieldBackPage     = "back_page"
	FieldItems        = "items"
	FieldCurrentPage  = "current_page"
	FieldTotalPages   = "total_pages"
)

// Time renders t for the wire; the zero time is omitted as null.
func Time(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseTime is the inverse of Time.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// String returns the string field key, or "" when absent or not a string.
func String(s *structpb.Struct, key string) string {
	v, ok := s.GetFields()[key]
	if !ok {
		return ""
	}
	return v.GetStringValue()
}

// OptString returns nil when key is absent, null or an empty string.
func OptString(s *structpb.Struct, key string) (*string, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return nil, nil
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return nil, nil
	case *structpb.Value_StringValue:
		if k.StringValue == "" {
			return nil, nil
		}
		str := k.StringValue
		return &str, nil
	default:
		return nil, fmt.Errorf("%w: %s must be a string", errs.ErrInvalidArgument, key)
	}
}

// Int reads an integral number field; absent or null yields 0.
func Int(s *structpb.Struct, key string) (int, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return 0, nil
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return 0, nil
	case *structpb.Value_NumberValue:
		f := k.NumberValue
		if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
			return 0, fmt.Errorf("%w: %s must be an integer", errs.ErrInvalidArgument, key)
		}
		return int(f), nil
	default:
		return 0, fmt.Errorf("%w: %s must be a number", errs.ErrInvalidArgument, key)
	}
}

// UUID parses a required uuid string field.
func UUID(s *structpb.Struct, key string) (uuid.UUID, error) {
	id, err := uuid.FromString(String(s, key))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad %s", errs.ErrInvalidArgument, key)
	}
	return id, nil
}

// PageRequest reads the paging fields shared by every list operation.
func PageRequest(s *structpb.Struct) (pagination.Request, error) {
	var (
		req pagination.Request
		err error
	)
	if req.Subject, err = OptString(s, FieldSubject); err != nil {
		return req, err
	}
	if req.ItemsPerPage, err = Int(s, FieldItemsPerPage); err != nil {
		return req, err
	}
	if req.Page, err = Int(s, FieldPage); err != nil {
		return req, err
	}
	next, err := OptString(s, FieldNextPage)
	if err != nil {
		return req, err
	}
	back, err := OptString(s, FieldBackPage)
	if err != nil {
		return req, err
	}
	if next != nil {
		req.Next = *next
	}
	if back != nil {
		req.Back = *back
	}
	return req, nil
}

// Page renders a page with each item mapped by fn.
func Page[T any](p pagination.Page[T], fn func(T) map[string]any) (*structpb.Struct, error) {
	items := make([]any, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, fn(it))
	}
	return structpb.NewStruct(map[string]any{
		FieldItems:        items,
		FieldCurrentPage:  p.CurrentPage,
		FieldTotalPages:   p.TotalPages,
		FieldItemsPerPage: p.ItemsPerPage,
		FieldNextPage:     optional(p.NextPage),
		FieldBackPage:     optional(p.BackPage),
	})
}

func optional(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// Note renders a note.
func Note(n model.Note) map[string]any {
	return map[string]any{
		"id":         n.ID.String(),
		"subject":    n.Subject,
		"title":      n.Title,
		"body":       n.Body,
		"created_at": Time(n.CreatedAt),
	}
}

// PublicUser renders a directory entry.
func PublicUser(u model.PublicUser) map[string]any {
	return map[string]any{
		"id":         u.ID.String(),
		"username":   u.Username,
		"verified":   u.Verified,
		"created_at": Time(u.CreatedAt),
	}
}
