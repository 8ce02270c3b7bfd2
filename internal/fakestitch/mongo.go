package fakestitch

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"sort"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/goccy/go-json"

	"github.com/stitchkit/stitch.go/pkg/constants"
)

type mongoArgs struct {
	Database   string         `json:"database"`
	Collection string         `json:"collection"`
	Query      map[string]any `json:"query"`
	Limit      int64          `json:"limit"`
	Sort       sortSpec       `json:"sort"`
	Project    map[string]any `json:"project"`
}

// callMongo decodes the action's argument from the raw request body so that
// the key order of the sort document survives.
func (s *Server) callMongo(w http.ResponseWriter, call *functionCall, body []byte) {
	if len(call.Arguments) != 1 {
		s.writeError(w, http.StatusBadRequest, constants.CodeMongoDBError, "expected exactly one argument")
		return
	}

	raw, _, _, err := jsonparser.Get(body, "arguments", "[0]")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, constants.CodeMongoDBError, err.Error())
		return
	}
	var args mongoArgs
	if err := s.codec.Unmarshal(raw, &args); err != nil {
		s.writeError(w, http.StatusBadRequest, constants.CodeMongoDBError, "malformed arguments: "+err.Error())
		return
	}

	s.mu.RLock()
	coll, ok := s.collections[args.Database][args.Collection]
	docs := append([]map[string]any(nil), coll...)
	s.mu.RUnlock()

	if !ok {
		s.writeError(w, http.StatusNotFound, constants.CodeMongoDBError,
			fmt.Sprintf("ns not found: %s.%s", args.Database, args.Collection))
		return
	}

	matched := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		ok, err := matches(doc, args.Query)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, constants.CodeMongoDBError, err.Error())
			return
		}
		if ok {
			matched = append(matched, doc)
		}
	}

	switch call.Name {
	case "count":
		n := int64(len(matched))
		if args.Limit > 0 && n > args.Limit {
			n = args.Limit
		}
		s.writeJSON(w, http.StatusOK, n)
	case "find", "findOne":
		sortDocs(matched, args.Sort)
		if call.Name == "findOne" {
			if len(matched) == 0 {
				s.writeJSON(w, http.StatusOK, nil)
				return
			}
			s.writeJSON(w, http.StatusOK, project(matched[0], args.Project))
			return
		}
		if args.Limit > 0 && int64(len(matched)) > args.Limit {
			matched = matched[:args.Limit]
		}
		out := make([]map[string]any, len(matched))
		for i, doc := range matched {
			out[i] = project(doc, args.Project)
		}
		s.writeJSON(w, http.StatusOK, out)
	default:
		s.writeError(w, http.StatusNotFound, constants.CodeFunctionNotFound,
			fmt.Sprintf("service action not found: '%s'", call.Name))
	}
}

// matches evaluates the subset of the query language the tests need:
// equality, $eq $ne $gt $gte $lt $lte $in $nin $exists, and top-level
// $and / $or.
func matches(doc, query map[string]any) (bool, error) {
	for key, cond := range query {
		switch key {
		case "$and", "$or":
			clauses, ok := cond.([]any)
			if !ok {
				return false, fmt.Errorf("%s must be an array", key)
			}
			anyMatch := false
			all := true
			for _, c := range clauses {
				sub, ok := c.(map[string]any)
				if !ok {
					return false, fmt.Errorf("%s entries must be objects", key)
				}
				m, err := matches(doc, sub)
				if err != nil {
					return false, err
				}
				anyMatch = anyMatch || m
				all = all && m
			}
			if (key == "$and" && !all) || (key == "$or" && !anyMatch) {
				return false, nil
			}
			continue
		}
		if strings.HasPrefix(key, "$") {
			return false, fmt.Errorf("unknown top level operator: %s", key)
		}

		value, present := doc[key]
		ops, isOps := cond.(map[string]any)
		if !isOps || !hasOperators(ops) {
			if !present || !equal(value, cond) {
				return false, nil
			}
			continue
		}

		for op, arg := range ops {
			ok, err := evalOperator(op, value, present, arg)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
	}
	return true, nil
}

func hasOperators(m map[string]any) bool {
	for k := range m {
		if strings.HasPrefix(k, "$") {
			return true
		}
	}
	return false
}

func evalOperator(op string, value any, present bool, arg any) (bool, error) {
	switch op {
	case "$eq":
		return present && equal(value, arg), nil
	case "$ne":
		return !present || !equal(value, arg), nil
	case "$gt", "$gte", "$lt", "$lte":
		if !present {
			return false, nil
		}
		c, ok := compare(value, arg)
		if !ok {
			return false, nil
		}
		switch op {
		case "$gt":
			return c > 0, nil
		case "$gte":
			return c >= 0, nil
		case "$lt":
			return c < 0, nil
		default:
			return c <= 0, nil
		}
	case "$in", "$nin":
		list, ok := arg.([]any)
		if !ok {
			return false, fmt.Errorf("%s needs an array", op)
		}
		found := false
		for _, v := range list {
			if present && equal(value, v) {
				found = true
				break
			}
		}
		if op == "$in" {
			return found, nil
		}
		return !found, nil
	case "$exists":
		want, ok := arg.(bool)
		if !ok {
			return false, errors.New("$exists needs a boolean")
		}
		return present == want, nil
	}
	return false, fmt.Errorf("unknown operator: %s", op)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func equal(a, b any) bool {
	if x, ok := number(a); ok {
		if y, ok := number(b); ok {
			return x == y
		}
	}
	return reflect.DeepEqual(a, b)
}

func compare(a, b any) (int, bool) {
	if x, ok := number(a); ok {
		if y, ok := number(b); ok {
			switch {
			case x < y:
				return -1, true
			case x > y:
				return 1, true
			}
			return 0, true
		}
	}
	if x, ok := a.(string); ok {
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), true
		}
	}
	return 0, false
}

type sortKey struct {
	field string
	dir   float64
}

// sortSpec is a sort document with its key order kept.
type sortSpec []sortKey

func (s *sortSpec) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*s = nil
		return nil
	}

	var out sortSpec
	err := jsonparser.ObjectEach(data, func(key, value []byte, dt jsonparser.ValueType, _ int) error {
		if dt != jsonparser.Number {
			return fmt.Errorf("bad sort direction for %s", key)
		}
		d, err := jsonparser.ParseFloat(value)
		if err != nil || (d != 1 && d != -1) {
			return fmt.Errorf("bad sort direction for %s", key)
		}
		out = append(out, sortKey{field: string(key), dir: d})
		return nil
	})
	if err != nil {
		return err
	}
	*s = out
	return nil
}

// sortDocs orders docs by each key of spec in turn.
func sortDocs(docs []map[string]any, spec sortSpec) {
	if len(spec) == 0 {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, k := range spec {
			c, _ := compare(docs[i][k.field], docs[j][k.field])
			if c != 0 {
				return float64(c)*k.dir < 0
			}
		}
		return false
	})
}

// project keeps the fields set to a truthy value in spec, plus _id unless it
// is excluded explicitly.
func project(doc, spec map[string]any) map[string]any {
	if len(spec) == 0 {
		return doc
	}

	out := make(map[string]any)
	keepID := true
	for k, v := range spec {
		on := true
		if n, ok := number(v); ok {
			on = n != 0
		} else if b, ok := v.(bool); ok {
			on = b
		}
		if k == "_id" {
			keepID = on
			continue
		}
		if val, ok := doc[k]; ok && on {
			out[k] = val
		}
	}
	if id, ok := doc["_id"]; ok && keepID {
		out["_id"] = id
	}
	return out
}
