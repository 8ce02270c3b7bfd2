package remotemongo

import (
	"bytes"
	"strconv"

	"github.com/stitchkit/stitch.go/internal/codec"
)

// FindOption bounds or shapes the result of a read.
type FindOption func(*findOptions)

type findOptions struct {
	limit      int64
	sort       SortSpec
	projection map[string]any
}

func newFindOptions(opts []FindOption) *findOptions {
	o := &findOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Limit caps the number of documents returned. Zero means no limit.
func Limit(n int64) FindOption {
	return func(o *findOptions) {
		o.limit = n
	}
}

// SortKey is one field of a sort. Direction is 1 for ascending and -1 for
// descending.
type SortKey struct {
	Field     string
	Direction int
}

// SortSpec is a sort document. It is written as a JSON object whose keys
// keep their slice order, so the first key has the highest precedence.
type SortSpec []SortKey

func (s SortSpec) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := codec.JSON{}.Marshal(k.Field)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(k.Direction))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// SortBy orders results by field. Repeat it to sort on several fields;
// earlier calls take precedence. Repeating a field changes its direction
// without moving it.
func SortBy(field string, dir int) FindOption {
	return func(o *findOptions) {
		for i := range o.sort {
			if o.sort[i].Field == field {
				o.sort[i].Direction = dir
				return
			}
		}
		o.sort = append(o.sort, SortKey{Field: field, Direction: dir})
	}
}

// Projection selects the fields to return.
func Projection(spec map[string]int) FindOption {
	return func(o *findOptions) {
		o.projection = make(map[string]any, len(spec))
		for k, v := range spec {
			o.projection[k] = v
		}
	}
}
