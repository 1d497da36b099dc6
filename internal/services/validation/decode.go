package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"
)

const rootPath = "(root)"

// decoder fills a typed value from a generic JSON tree, collecting every type
// mismatch with its indexed path instead of stopping at the first one.
// Integer fields accept integral numbers such as 70.0.
type decoder struct {
	errs  []string
	paths map[string]bool
}

// decodeLenient parses raw into dst. A non-nil error means raw is not JSON;
// type mismatches are returned as messages and leave the field zero.
func decodeLenient(raw string, dst interface{}) (*decoder, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var tree interface{}
	if err := dec.Decode(&tree); err != nil {
		return nil, err
	}
	d := &decoder{paths: make(map[string]bool)}
	d.value("", tree, reflect.ValueOf(dst).Elem())
	return d, nil
}

func (d *decoder) value(path string, src interface{}, dst reflect.Value) {
	if src == nil {
		return
	}
	switch dst.Kind() {
	case reflect.Ptr:
		v := reflect.New(dst.Type().Elem())
		d.value(path, src, v.Elem())
		dst.Set(v)
	case reflect.Struct:
		obj, ok := src.(map[string]interface{})
		if !ok {
			d.mismatch(path, "object", src)
			return
		}
		t := dst.Type()
		for i := 0; i < t.NumField(); i++ {
			name := jsonName(t.Field(i))
			if name == "" {
				continue
			}
			if v, ok := obj[name]; ok {
				d.value(joinPath(path, name), v, dst.Field(i))
			}
		}
	case reflect.Slice:
		arr, ok := src.([]interface{})
		if !ok {
			d.mismatch(path, "array", src)
			return
		}
		s := reflect.MakeSlice(dst.Type(), len(arr), len(arr))
		for i, v := range arr {
			d.value(fmt.Sprintf("%s[%d]", path, i), v, s.Index(i))
		}
		dst.Set(s)
	case reflect.String:
		s, ok := src.(string)
		if !ok {
			d.mismatch(path, "string", src)
			return
		}
		dst.SetString(s)
	case reflect.Bool:
		b, ok := src.(bool)
		if !ok {
			d.mismatch(path, "boolean", src)
			return
		}
		dst.SetBool(b)
	case reflect.Float32, reflect.Float64:
		f, ok := number(src)
		if !ok {
			d.mismatch(path, "number", src)
			return
		}
		dst.SetFloat(f)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		f, ok := number(src)
		if !ok || f != math.Trunc(f) || dst.OverflowInt(int64(f)) {
			d.mismatch(path, "integer", src)
			return
		}
		dst.SetInt(int64(f))
	default:
		d.mismatch(path, dst.Kind().String(), src)
	}
}

func (d *decoder) mismatch(path, want string, got interface{}) {
	if path == "" {
		path = rootPath
	}
	d.paths[path] = true
	d.errs = append(d.errs, fmt.Sprintf("%s: expected %s, got %s", path, want, describe(got)))
}

func number(src interface{}) (float64, bool) {
	n, ok := src.(json.Number)
	if !ok {
		return 0, false
	}
	f, err := n.Float64()
	return f, err == nil
}

func describe(v interface{}) string {
	switch x := v.(type) {
	case json.Number:
		return "number " + x.String()
	case string:
		return "string"
	case bool:
		return "boolean"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func jsonName(f reflect.StructField) string {
	if f.PkgPath != "" {
		return ""
	}
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}
