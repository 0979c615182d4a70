package config

import (
	"os"
	"reflect"
	"strconv"
	"strings"
)

// EnvPrefix is the namespace every override variable is rooted under
// (spec.md §6: WALT_K for top-level keys, WALT_SECTION_K for nested keys).
const EnvPrefix = "WALT"

// ApplyEnvOverrides mutates cfg in place, replacing any scalar field — at
// the top level or inside a nested table (kafka, postgres) or map (headers)
// — with the value of the corresponding WALT_* environment variable, if
// set. Keys ending in "_map" or "_list" are skipped entirely, including
// their contents: url_map is never touched by an environment override,
// matching the original's override_from suffix exemption.
func ApplyEnvOverrides(cfg *Config) {
	overrideStruct(reflect.ValueOf(cfg).Elem(), EnvPrefix)
}

func overrideStruct(v reflect.Value, namespace string) {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name := field.Tag.Get("toml")
		if name == "" {
			name = strings.ToLower(field.Name)
		}
		if strings.HasSuffix(name, "_map") || strings.HasSuffix(name, "_list") {
			continue
		}

		varName := namespace + "_" + strings.ToUpper(name)
		fv := v.Field(i)

		switch fv.Kind() {
		case reflect.Struct:
			overrideStruct(fv, varName)
		case reflect.Map:
			overrideMap(fv, varName)
		case reflect.String:
			if val, ok := os.LookupEnv(varName); ok {
				fv.SetString(val)
			}
		case reflect.Int, reflect.Int64:
			if val, ok := os.LookupEnv(varName); ok {
				if n, err := strconv.Atoi(val); err == nil {
					fv.SetInt(int64(n))
				}
			}
		}
	}
}

func overrideMap(v reflect.Value, namespace string) {
	if v.IsNil() {
		return
	}

	iter := v.MapRange()
	for iter.Next() {
		key := iter.Key()
		varName := namespace + "_" + strings.ToUpper(key.String())
		if val, ok := os.LookupEnv(varName); ok {
			v.SetMapIndex(key, reflect.ValueOf(val))
		}
	}
}
