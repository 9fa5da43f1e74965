package docstore

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// type brackets used for ordering values of different kinds
const (
	rankMissing = iota
	rankNull
	rankNumber
	rankString
	rankBool
	rankDate
	rankArray
	rankObject
	rankOther
)

// lookup resolves a dotted field path. Arrays met half way collect the
// values found in each of their elements.
func lookup(doc any, path string) (any, bool) {
	cur := doc
	parts := strings.Split(path, ".")
	for i, part := range parts {
		switch v := cur.(type) {
		case bson.M:
			next, ok := v[part]
			if !ok {
				return nil, false
			}
			cur = next
		case map[string]any:
			next, ok := v[part]
			if !ok {
				return nil, false
			}
			cur = next
		case bson.D:
			found := false
			for _, e := range v {
				if e.Key == part {
					cur, found = e.Value, true
					break
				}
			}
			if !found {
				return nil, false
			}
		case primitive.A, []any:
			arr := asArray(v)
			if idx, err := strconv.Atoi(part); err == nil {
				if idx < 0 || idx >= len(arr) {
					return nil, false
				}
				cur = arr[idx]
				continue
			}
			rest := strings.Join(parts[i:], ".")
			var out primitive.A
			for _, el := range arr {
				if got, ok := lookup(el, rest); ok {
					out = append(out, got)
				}
			}
			if len(out) == 0 {
				return nil, false
			}
			return out, true
		default:
			return nil, false
		}
	}
	return cur, true
}

func asArray(v any) []any {
	switch a := v.(type) {
	case primitive.A:
		return a
	case []any:
		return a
	}
	return nil
}

func rank(v any, present bool) int {
	if !present {
		return rankMissing
	}
	switch v.(type) {
	case nil, primitive.Null, primitive.Undefined:
		return rankNull
	case int, int32, int64, float32, float64, primitive.Decimal128:
		return rankNumber
	case string, primitive.Symbol:
		return rankString
	case bool:
		return rankBool
	case time.Time, primitive.DateTime, primitive.Timestamp:
		return rankDate
	case primitive.A, []any:
		return rankArray
	case bson.M, bson.D, map[string]any:
		return rankObject
	}
	return rankOther
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	case float64:
		return n
	case primitive.Decimal128:
		f, _ := strconv.ParseFloat(n.String(), 64)
		return f
	}
	return 0
}

func toTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case primitive.DateTime:
		return t.Time()
	case primitive.Timestamp:
		return time.Unix(int64(t.T), 0)
	}
	return time.Time{}
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case primitive.Symbol:
		return string(s)
	}
	return ""
}

func cmpInt[T int | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// compareValues orders two values: missing < null < numbers < strings <
// booleans < dates < arrays < objects. Values of the same bracket compare
// naturally; arrays element-wise, objects by their canonical encoding.
func compareValues(a any, aok bool, b any, bok bool) int {
	ra, rb := rank(a, aok), rank(b, bok)
	if ra != rb {
		return cmpInt(ra, rb)
	}
	switch ra {
	case rankMissing, rankNull:
		return 0
	case rankNumber:
		return cmpInt(toFloat(a), toFloat(b))
	case rankString:
		return strings.Compare(toString(a), toString(b))
	case rankBool:
		ab, bb := a.(bool), b.(bool)
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		}
		return 1
	case rankDate:
		return toTime(a).Compare(toTime(b))
	case rankArray:
		aa, ba := asArray(a), asArray(b)
		for i := 0; i < len(aa) && i < len(ba); i++ {
			if c := compareValues(aa[i], true, ba[i], true); c != 0 {
				return c
			}
		}
		return cmpInt(len(aa), len(ba))
	}
	ab, _ := bson.Marshal(bson.M{"v": a})
	bb, _ := bson.Marshal(bson.M{"v": b})
	return bytes.Compare(ab, bb)
}

// equalValues reports whether a stored value matches v. Arrays match when
// any of their elements does, as in MongoDB.
func equalValues(stored any, present bool, v any) bool {
	if rank(stored, present) == rankArray && rank(v, true) != rankArray {
		for _, el := range asArray(stored) {
			if equalValues(el, true, v) {
				return true
			}
		}
		return false
	}
	if rank(stored, present) != rank(v, true) {
		return false
	}
	return compareValues(stored, present, v, true) == 0
}
