package server

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"
)

// ParameterInfo describes one declared parameter of an exposed method, as
// reported by the __get_methods__ command.
type ParameterInfo struct {
	Name     string
	Required bool
	Type     string
}

// MethodInfo is the introspection record for one exposed method.
type MethodInfo struct {
	Parameters []ParameterInfo
	Doc        string
	Return     string
}

// MethodDocumenter can be implemented by exposed services to attach doc
// strings to their methods, keyed by Go method name.
type MethodDocumenter interface {
	MethodDocs() map[string]string
}

var (
	errorType     = reflect.TypeOf((*error)(nil)).Elem()
	interfaceType = reflect.TypeOf((*interface{})(nil)).Elem()
	stringType    = reflect.TypeOf("")
)

// Expose registers every exported method of service as a command, named by
// the snake_case form of the method name. Supported method shapes:
//
//	func (s *S) M(data interface{}, requestID string) (interface{}, error)
//	func (s *S) M()                        ... optionally returning error
//	func (s *S) M(args T) (R, error)       ... T struct, interface{} or scalar
//
// For struct arguments the exported fields become the declared parameters
// (msgpack tag or snake_cased field name); map-shaped command data is bound
// through the queue's codec, scalar data is bound to the first field.
// Methods already registered under the same command name are skipped, so a
// manual RegisterHandler beforehand takes precedence over exposure.
func (s *Server) Expose(service interface{}) error {
	v := reflect.ValueOf(service)
	t := v.Type()

	var docs map[string]string
	if documenter, ok := service.(MethodDocumenter); ok {
		docs = documenter.MethodDocs()
	}

	exposed := 0
	for i := 0; i < t.NumMethod(); i++ {
		method := t.Method(i)
		if method.Name == "MethodDocs" {
			continue
		}

		name := snakeCase(method.Name)
		handler, info, err := s.buildMethodHandler(v.Method(i), method)
		if err != nil {
			return fmt.Errorf("cannot expose method %s: %w", method.Name, err)
		}
		info.Doc = docs[method.Name]

		if _, loaded := s.methods.LoadOrStore(name, info); loaded {
			Logger.Warningf("method %q already exposed, skipping", name)
			continue
		}
		if _, loaded := s.handlers.LoadOrStore(name, handler); loaded {
			Logger.Debugf("handler %q already registered, keeping it", name)
		}
		exposed++
	}

	Logger.Infof("exposed %d method(s) of %s", exposed, t.String())
	return nil
}

// RegisterMethod registers a handler together with its introspection
// record, so manually registered commands also show up in the
// __get_methods__ listing. It replaces any previous registration.
func (s *Server) RegisterMethod(name string, info MethodInfo, handler CommandHandler) {
	s.methods.Store(name, info)
	s.handlers.Store(name, handler)
}

// buildMethodHandler adapts one reflected method into a CommandHandler and
// derives its introspection record.
func (s *Server) buildMethodHandler(fn reflect.Value, method reflect.Method) (CommandHandler, MethodInfo, error) {
	fnType := fn.Type()

	if isPassthrough(fnType) {
		handler := fn.Interface().(func(interface{}, string) (interface{}, error))
		return CommandHandler(handler), MethodInfo{
			Parameters: []ParameterInfo{{Name: "data", Required: false, Type: "any"}},
			Return:     "any",
		}, nil
	}

	if fnType.NumIn() > 1 {
		return nil, MethodInfo{}, fmt.Errorf("at most one argument is supported, got %d", fnType.NumIn())
	}
	if err := checkReturns(fnType); err != nil {
		return nil, MethodInfo{}, err
	}

	info := MethodInfo{Return: returnTypeName(fnType)}

	if fnType.NumIn() == 0 {
		handler := func(_ interface{}, _ string) (interface{}, error) {
			return call(fn, nil)
		}
		return handler, info, nil
	}

	argType := fnType.In(0)
	switch {
	case argType == interfaceType:
		info.Parameters = []ParameterInfo{{Name: "data", Required: false, Type: "any"}}
		handler := func(data interface{}, _ string) (interface{}, error) {
			arg := reflect.New(argType).Elem()
			if data != nil {
				arg.Set(reflect.ValueOf(data))
			}
			return call(fn, &arg)
		}
		return handler, info, nil

	case argType.Kind() == reflect.Struct:
		info.Parameters = structParameters(argType)
		handler := func(data interface{}, _ string) (interface{}, error) {
			arg, err := s.bindStructArg(argType, data)
			if err != nil {
				return nil, err
			}
			return call(fn, &arg)
		}
		return handler, info, nil

	default:
		info.Parameters = []ParameterInfo{{Name: "value", Required: true, Type: argType.String()}}
		handler := func(data interface{}, _ string) (interface{}, error) {
			arg, err := convertScalar(argType, data)
			if err != nil {
				return nil, err
			}
			return call(fn, &arg)
		}
		return handler, info, nil
	}
}

// bindStructArg materializes the method's args struct from the decoded
// command data. Map-shaped data is rebound through the codec so field tags
// and nested structs work; any other value is bound to the first field.
func (s *Server) bindStructArg(argType reflect.Type, data interface{}) (reflect.Value, error) {
	arg := reflect.New(argType)

	switch data := data.(type) {
	case nil:
		// all parameters at their zero values
	case map[string]interface{}, map[interface{}]interface{}:
		codec := s.queue.Serializer()
		raw, err := codec.Serialize(data)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("cannot rebind arguments: %w", err)
		}
		if err := codec.Deserialize(raw, arg.Interface()); err != nil {
			return reflect.Value{}, fmt.Errorf("cannot bind arguments to %s: %w", argType.String(), err)
		}
	default:
		if argType.NumField() == 0 {
			break
		}
		field, err := convertScalar(argType.Field(0).Type, data)
		if err != nil {
			return reflect.Value{}, err
		}
		arg.Elem().Field(0).Set(field)
	}

	return arg.Elem(), nil
}

// convertScalar coerces a decoded wire value into the target Go type. Wire
// codecs deliver integers and floats in varying widths, so a plain
// assignability check is not enough.
func convertScalar(target reflect.Type, data interface{}) (reflect.Value, error) {
	if data == nil {
		return reflect.New(target).Elem(), nil
	}
	v := reflect.ValueOf(data)
	if v.Type() == target {
		return v, nil
	}
	if v.Type().ConvertibleTo(target) {
		return v.Convert(target), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %T as %s", data, target.String())
}

// call invokes the reflected method and normalizes its return values into
// the (result, error) handler contract.
func call(fn reflect.Value, arg *reflect.Value) (interface{}, error) {
	var in []reflect.Value
	if arg != nil {
		in = []reflect.Value{*arg}
	}
	out := fn.Call(in)

	var result interface{}
	var err error
	for _, v := range out {
		if v.Type() == errorType {
			if !v.IsNil() {
				err = v.Interface().(error)
			}
			continue
		}
		result = v.Interface()
	}
	return result, err
}

// isPassthrough reports whether the method already has the raw handler
// signature and can be registered as-is.
func isPassthrough(fnType reflect.Type) bool {
	return fnType.NumIn() == 2 &&
		fnType.In(0) == interfaceType &&
		fnType.In(1) == stringType &&
		fnType.NumOut() == 2 &&
		fnType.Out(0) == interfaceType &&
		fnType.Out(1) == errorType
}

// checkReturns validates the (), (error), (T) and (T, error) return shapes.
func checkReturns(fnType reflect.Type) error {
	switch fnType.NumOut() {
	case 0:
		return nil
	case 1:
		return nil
	case 2:
		if fnType.Out(1) != errorType {
			return fmt.Errorf("second return value must be error, got %s", fnType.Out(1))
		}
		return nil
	default:
		return fmt.Errorf("at most two return values are supported, got %d", fnType.NumOut())
	}
}

// returnTypeName names the value-carrying return type for introspection.
func returnTypeName(fnType reflect.Type) string {
	for i := 0; i < fnType.NumOut(); i++ {
		if fnType.Out(i) != errorType {
			return fnType.Out(i).String()
		}
	}
	return ""
}

// structParameters derives the declared parameter list from the exported
// fields of an args struct. The wire name comes from the msgpack tag if
// present, otherwise from the snake_cased field name. Pointer fields and
// fields tagged omitempty are optional.
func structParameters(argType reflect.Type) []ParameterInfo {
	params := make([]ParameterInfo, 0, argType.NumField())
	for i := 0; i < argType.NumField(); i++ {
		field := argType.Field(i)
		if !field.IsExported() {
			continue
		}

		name := snakeCase(field.Name)
		omitempty := false
		if tag, ok := field.Tag.Lookup("msgpack"); ok {
			parts := strings.Split(tag, ",")
			if parts[0] != "" && parts[0] != "-" {
				name = parts[0]
			}
			for _, opt := range parts[1:] {
				if opt == "omitempty" {
					omitempty = true
				}
			}
		}

		params = append(params, ParameterInfo{
			Name:     name,
			Required: field.Type.Kind() != reflect.Ptr && !omitempty,
			Type:     field.Type.String(),
		})
	}
	return params
}

// snakeCase converts a Go identifier to its wire command name (Add -> add,
// SlowEcho -> slow_echo).
func snakeCase(name string) string {
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
