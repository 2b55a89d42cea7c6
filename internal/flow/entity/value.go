package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ValueKind 表单值类型标签
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindString
	KindNumber
	KindBool
	KindDate
	KindList
	KindObject
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindDate:
		return "date"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Value is a form payload value. Exactly one of the typed fields is
// meaningful, selected by Kind.
type Value struct {
	Kind   ValueKind
	Str    string
	Num    float64
	Bool   bool
	Time   time.Time
	List   []Value
	Object map[string]Value
}

// dateKey marks an encoded date: {"$date": "<RFC3339Nano>"}.
const dateKey = "$date"

// Null 空值
func Null() Value { return Value{Kind: KindNull} }

// String 文本值
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Number 数值
func Number(n float64) Value { return Value{Kind: KindNumber, Num: n} }

// Bool 布尔值
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Date 日期值
func Date(t time.Time) Value { return Value{Kind: KindDate, Time: t} }

// List 列表值
func List(items ...Value) Value { return Value{Kind: KindList, List: items} }

// Object 对象值
func Object(m map[string]Value) Value { return Value{Kind: KindObject, Object: m} }

// IsEmpty reports whether the value carries no usable content. Numbers and
// booleans are never empty: 0 and false are answers.
func (v Value) IsEmpty() bool {
	switch v.Kind {
	case KindNull:
		return true
	case KindString:
		return strings.TrimSpace(v.Str) == ""
	case KindNumber, KindBool:
		return false
	case KindDate:
		return v.Time.IsZero()
	case KindList:
		return len(v.List) == 0
	case KindObject:
		return len(v.Object) == 0
	}
	return true
}

// MarshalJSON encodes the value by kind. Dates are wrapped as
// {"$date": "..."} so they decode back as dates rather than strings.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNull:
		return []byte("null"), nil
	case KindString:
		return json.Marshal(v.Str)
	case KindNumber:
		return json.Marshal(v.Num)
	case KindBool:
		return json.Marshal(v.Bool)
	case KindDate:
		return json.Marshal(map[string]string{dateKey: v.Time.Format(time.RFC3339Nano)})
	case KindList:
		if v.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.List)
	case KindObject:
		if v.Object == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(v.Object)
	}
	return nil, fmt.Errorf("marshal value: unknown kind %d", v.Kind)
}

// UnmarshalJSON decodes any JSON value. Plain strings stay strings even when
// they look like dates; only the {"$date": ...} wrapper yields a date.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("unmarshal value: empty input")
	}
	switch data[0] {
	case 'n':
		*v = Null()
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = String(s)
		return nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Bool(b)
		return nil
	case '[':
		var items []Value
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		if items == nil {
			items = []Value{}
		}
		*v = List(items...)
		return nil
	case '{':
		var m map[string]Value
		if err := json.Unmarshal(data, &m); err != nil {
			return err
		}
		if raw, ok := m[dateKey]; ok && len(m) == 1 && raw.Kind == KindString {
			t, err := time.Parse(time.RFC3339Nano, raw.Str)
			if err != nil {
				return fmt.Errorf("unmarshal value: bad %s: %w", dateKey, err)
			}
			*v = Date(t)
			return nil
		}
		*v = Object(m)
		return nil
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("unmarshal value: %w", err)
		}
		*v = Number(n)
		return nil
	}
}

// Payload 表单提交内容 key → value
type Payload map[string]Value

// Keys returns the payload keys in sorted order.
func (p Payload) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
