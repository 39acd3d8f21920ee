package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// walkLeaves calls fn for every scalar field reachable through the
// section pointers of v, with a dotted path such as "Logging.Promtail.URL".
// Nil sections and fields tagged config:"-" are skipped.
func walkLeaves(prefix string, v reflect.Value, fn func(path string, field reflect.StructField, value reflect.Value)) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" || field.Tag.Get("config") == "-" {
			continue
		}
		fv := v.Field(i)
		path := joinPath(prefix, field.Name)

		if isStructPtr(fv) {
			if !fv.IsNil() {
				walkLeaves(path, fv.Elem(), fn)
			}
			continue
		}
		fn(path, field, fv)
	}
}

// walkSections calls fn with a pointer to every non-nil section struct,
// nested sections included
func walkSections(v reflect.Value, fn func(section interface{}) error) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fv := v.Field(i)
		if field.PkgPath != "" || field.Tag.Get("config") == "-" || !isStructPtr(fv) || fv.IsNil() {
			continue
		}
		if err := fn(fv.Interface()); err != nil {
			return err
		}
		if err := walkSections(fv.Elem(), fn); err != nil {
			return err
		}
	}
	return nil
}

// markJSONSources records every key present in raw as coming from the file
func markJSONSources(prefix string, v reflect.Value, raw map[string]json.RawMessage, sources ConfigSourceMap) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" {
			continue
		}
		name := jsonName(field)
		if name == "" {
			continue
		}
		data, ok := raw[name]
		if !ok {
			continue
		}
		path := joinPath(prefix, field.Name)
		fv := v.Field(i)

		if field.Tag.Get("config") == "-" {
			if field.Name == "Version" {
				sources[path] = SourceJSONFile
			}
			continue
		}
		if isStructPtr(fv) {
			if fv.IsNil() || string(data) == "null" {
				continue
			}
			var nested map[string]json.RawMessage
			if err := json.Unmarshal(data, &nested); err != nil {
				return fmt.Errorf("failed to parse %s section: %w", path, err)
			}
			if err := markJSONSources(path, fv.Elem(), nested, sources); err != nil {
				return err
			}
			continue
		}
		sources[path] = SourceJSONFile
	}
	return nil
}

func isStructPtr(v reflect.Value) bool {
	return v.Kind() == reflect.Ptr && v.Type().Elem().Kind() == reflect.Struct
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

func jsonName(field reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return ""
	}
	name := strings.Split(tag, ",")[0]
	if name == "" {
		return field.Name
	}
	return name
}

func envName(field reflect.StructField) string {
	tag := field.Tag.Get("env")
	if tag == "" {
		return ""
	}
	return strings.TrimSpace(strings.Split(tag, ",")[0])
}
