package transcoder

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/wippyai/napi-go/errors"
	"go.bytecodealliance.org/wit"
)

// Describe maps a Go type onto the WIT type model. It is used to print
// export signatures and to parse typed input for them.
//
//	bool, intN, uintN, floatN, string   the matching WIT primitive
//	[]T, [N]T                           list<T>
//	*T                                  option<T>
//	map[string]T                        list<tuple<string, T>>
//	struct                              record, named after the Go type
//
// Interfaces, functions, channels and raw handles have no WIT form.
func Describe(goType reflect.Type) (wit.Type, error) {
	return describe(goType, make(map[reflect.Type]*wit.TypeDef), nil)
}

func describe(t reflect.Type, seen map[reflect.Type]*wit.TypeDef, path []string) (wit.Type, error) {
	if t == nil {
		return nil, errors.NilPointer(errors.PhaseRegister, path, "<nil>")
	}
	if t == valuePtrType {
		return nil, errors.Unsupported(errors.PhaseRegister, path, t.String())
	}

	switch t.Kind() {
	case reflect.Bool:
		return wit.Bool{}, nil
	case reflect.Int8:
		return wit.S8{}, nil
	case reflect.Int16:
		return wit.S16{}, nil
	case reflect.Int32:
		return wit.S32{}, nil
	case reflect.Int, reflect.Int64:
		return wit.S64{}, nil
	case reflect.Uint8:
		return wit.U8{}, nil
	case reflect.Uint16:
		return wit.U16{}, nil
	case reflect.Uint32:
		return wit.U32{}, nil
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		return wit.U64{}, nil
	case reflect.Float32:
		return wit.F32{}, nil
	case reflect.Float64:
		return wit.F64{}, nil
	case reflect.String:
		return wit.String{}, nil

	case reflect.Slice, reflect.Array:
		elem, err := describe(t.Elem(), seen, append(path, "[elem]"))
		if err != nil {
			return nil, err
		}
		return &wit.TypeDef{Kind: &wit.List{Type: elem}}, nil

	case reflect.Ptr:
		elem, err := describe(t.Elem(), seen, path)
		if err != nil {
			return nil, err
		}
		return &wit.TypeDef{Kind: &wit.Option{Type: elem}}, nil

	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return nil, errors.Unsupported(errors.PhaseRegister, path, t.String())
		}
		elem, err := describe(t.Elem(), seen, append(path, "[value]"))
		if err != nil {
			return nil, err
		}
		entry := &wit.TypeDef{Kind: &wit.Tuple{Types: []wit.Type{wit.String{}, elem}}}
		return &wit.TypeDef{Kind: &wit.List{Type: entry}}, nil

	case reflect.Struct:
		if td, ok := seen[t]; ok {
			return td, nil
		}
		td := &wit.TypeDef{}
		if t.Name() != "" {
			name := toKebabCase(t.Name())
			td.Name = &name
		}
		seen[t] = td

		plan, err := defaultCompiler.Compile(t)
		if err != nil {
			return nil, err
		}
		record := &wit.Record{Fields: make([]wit.Field, 0, len(plan.Fields))}
		for _, f := range plan.Fields {
			ft, err := describe(f.Type, seen, append(path, f.Name))
			if err != nil {
				return nil, err
			}
			record.Fields = append(record.Fields, wit.Field{Name: toKebabCase(f.Name), Type: ft})
		}
		td.Kind = record
		return td, nil
	}

	return nil, errors.Unsupported(errors.PhaseRegister, path, t.String())
}

// TypeString renders a WIT type the way it is written in WIT sources.
func TypeString(t wit.Type) string {
	switch v := t.(type) {
	case nil:
		return "_"
	case wit.Bool:
		return "bool"
	case wit.U8:
		return "u8"
	case wit.S8:
		return "s8"
	case wit.U16:
		return "u16"
	case wit.S16:
		return "s16"
	case wit.U32:
		return "u32"
	case wit.S32:
		return "s32"
	case wit.U64:
		return "u64"
	case wit.S64:
		return "s64"
	case wit.F32:
		return "f32"
	case wit.F64:
		return "f64"
	case wit.Char:
		return "char"
	case wit.String:
		return "string"
	case *wit.TypeDef:
		if v.Name != nil {
			return *v.Name
		}
		switch k := v.Kind.(type) {
		case *wit.List:
			return "list<" + TypeString(k.Type) + ">"
		case *wit.Option:
			return "option<" + TypeString(k.Type) + ">"
		case *wit.Tuple:
			parts := make([]string, len(k.Types))
			for i, e := range k.Types {
				parts[i] = TypeString(e)
			}
			return "tuple<" + strings.Join(parts, ", ") + ">"
		case *wit.Record:
			parts := make([]string, len(k.Fields))
			for i, f := range k.Fields {
				parts[i] = f.Name + ": " + TypeString(f.Type)
			}
			return "record { " + strings.Join(parts, ", ") + " }"
		}
		return "typedef"
	}
	return fmt.Sprintf("%T", t)
}
