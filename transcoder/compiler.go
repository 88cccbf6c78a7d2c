package transcoder

import (
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/wippyai/napi-go/errors"
)

// Compiler builds and caches per-struct field plans.
type Compiler struct {
	cache sync.Map // reflect.Type -> *Plan
}

// Plan is the ordered list of fields a struct exchanges with the host.
type Plan struct {
	Type   reflect.Type
	Fields []Field
}

// Field describes one struct field as seen by the host.
type Field struct {
	Type      reflect.Type
	Name      string // host property name
	GoName    string
	Index     []int
	OmitEmpty bool
}

func NewCompiler() *Compiler {
	return &Compiler{}
}

// Compile returns the plan for a struct type. Fields appear in declaration
// order; fields of embedded structs are promoted in place.
func (c *Compiler) Compile(goType reflect.Type) (*Plan, error) {
	if goType == nil {
		return nil, errors.NilPointer(errors.PhaseEncode, nil, "<nil>")
	}
	if goType.Kind() == reflect.Ptr {
		goType = goType.Elem()
	}
	if goType.Kind() != reflect.Struct {
		return nil, errors.New(errors.PhaseEncode, errors.KindObjectExpected).
			GoType(goType.String()).
			Detail("field plans require a struct").
			Build()
	}

	if cached, ok := c.cache.Load(goType); ok {
		return cached.(*Plan), nil
	}

	var fields []Field
	var depths []int
	collect(goType, nil, &fields, &depths)

	// A shallower field hides promoted fields with the same name.
	best := make(map[string]int, len(fields))
	for i, f := range fields {
		if j, ok := best[f.Name]; !ok || depths[i] < depths[j] {
			best[f.Name] = i
		}
	}
	plan := &Plan{Type: goType}
	for i, f := range fields {
		if best[f.Name] == i {
			plan.Fields = append(plan.Fields, f)
		}
	}

	actual, _ := c.cache.LoadOrStore(goType, plan)
	return actual.(*Plan), nil
}

func collect(t reflect.Type, index []int, fields *[]Field, depths *[]int) {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag := sf.Tag.Get("napi")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		idx := append(append([]int{}, index...), i)

		if sf.Anonymous && name == "" {
			ft := sf.Type
			if ft.Kind() == reflect.Ptr {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				collect(ft, idx, fields, depths)
				continue
			}
		}
		if !sf.IsExported() {
			continue
		}

		if name == "" {
			name = LowerCamel(sf.Name)
		}
		*fields = append(*fields, Field{
			Name:      name,
			GoName:    sf.Name,
			Index:     idx,
			Type:      sf.Type,
			OmitEmpty: hasOption(opts, "omitempty"),
		})
		*depths = append(*depths, len(idx))
	}
}

func hasOption(opts, want string) bool {
	for opts != "" {
		var opt string
		opt, opts, _ = strings.Cut(opts, ",")
		if opt == want {
			return true
		}
	}
	return false
}

// fieldByIndex walks index, allocating nil embedded pointers when alloc is
// set. It reports false when a nil embedded pointer blocks the path.
func fieldByIndex(v reflect.Value, index []int, alloc bool) (reflect.Value, bool) {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Ptr {
			if v.IsNil() {
				if !alloc {
					return reflect.Value{}, false
				}
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v, true
}

// LowerCamel converts an exported Go identifier to lowerCamelCase, treating
// a leading run of capitals as one word: Foo -> foo, ID -> id,
// HTTPServer -> httpServer.
func LowerCamel(s string) string {
	runes := []rune(s)
	n := 0
	for n < len(runes) && unicode.IsUpper(runes[n]) {
		n++
	}
	switch {
	case n == 0:
		return s
	case n == 1 || n == len(runes):
		// single capital, or all capitals
	default:
		// keep the last capital as the start of the next word
		if unicode.IsLower(runes[n]) {
			n--
		}
	}
	for i := 0; i < n; i++ {
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}

// toKebabCase converts a Go identifier to kebab-case for WIT names.
func toKebabCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				result.WriteByte('-')
			}
			result.WriteRune(unicode.ToLower(r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}
