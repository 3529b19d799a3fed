package erpclient

import "fmt"

// Ref models the three shapes a many-to-one ERP field can arrive in over
// JSON-RPC: absent (false), a bare id, or an [id, display_name] tuple.
// Components consuming ERP records use Ref instead of passing the raw
// interface{} value around, so "is this field set" and "what's its id"
// are explicit instead of re-derived ad hoc at every call site.
type Ref struct {
	present bool
	id      int
	name    string
}

// NoRef is the absent value (Odoo's `false`).
var NoRef = Ref{}

// IDRef builds a Ref carrying only an id.
func IDRef(id int) Ref { return Ref{present: true, id: id} }

// IDNameRef builds a Ref carrying an id and display name.
func IDNameRef(id int, name string) Ref { return Ref{present: true, id: id, name: name} }

// Present reports whether the field had a value at all.
func (r Ref) Present() bool { return r.present }

// ID returns the referenced id. Callers must check Present first; ID on an
// absent Ref returns 0.
func (r Ref) ID() int { return r.id }

// Name returns the display name, or "" if the field was an [id]-only
// reference or absent.
func (r Ref) Name() string { return r.name }

// ParseRef interprets a raw JSON-decoded value for a many-to-one field:
// `false` -> NoRef, a bare number -> IDRef, a two-element array -> IDNameRef.
func ParseRef(v interface{}) (Ref, error) {
	switch val := v.(type) {
	case nil:
		return NoRef, nil
	case bool:
		if val {
			return Ref{}, fmt.Errorf("erpclient: unexpected boolean true for ref field")
		}
		return NoRef, nil
	case float64:
		return IDRef(int(val)), nil
	case int:
		return IDRef(val), nil
	case []interface{}:
		if len(val) == 0 {
			return NoRef, nil
		}
		id, ok := toInt(val[0])
		if !ok {
			return Ref{}, fmt.Errorf("erpclient: ref tuple first element is not numeric: %v", val[0])
		}
		if len(val) == 1 {
			return IDRef(id), nil
		}
		name, _ := val[1].(string)
		return IDNameRef(id, name), nil
	default:
		return Ref{}, fmt.Errorf("erpclient: unrecognized ref shape: %T", v)
	}
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}
