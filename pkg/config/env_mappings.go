package config

import (
	"reflect"
	"sort"
	"strings"
	"sync"
)

// EnvMapping binds an environment variable to a configuration path.
type EnvMapping struct {
	EnvVar     string
	ConfigPath string
	Sensitive  bool
}

// envIndex is derived once from the env and koanf tags on Config.
type envIndex struct {
	all    []EnvMapping
	byPath map[string]EnvMapping
	byEnv  map[string]string
}

var sensitiveType = reflect.TypeOf(SensitiveString(""))

var loadEnvIndex = sync.OnceValue(func() *envIndex {
	idx := &envIndex{byPath: map[string]EnvMapping{}, byEnv: map[string]string{}}
	collectEnvMappings(reflect.TypeOf(Config{}), nil, idx)
	sort.Slice(idx.all, func(i, j int) bool { return idx.all[i].ConfigPath < idx.all[j].ConfigPath })
	return idx
})

func collectEnvMappings(t reflect.Type, path []string, idx *envIndex) {
	for i := range t.NumField() {
		field := t.Field(i)
		key := field.Tag.Get("koanf")
		if !field.IsExported() || key == "" || key == "-" {
			continue
		}
		fieldPath := append(append([]string(nil), path...), key)
		if field.Type.Kind() == reflect.Struct && field.Type.PkgPath() != "time" {
			collectEnvMappings(field.Type, fieldPath, idx)
			continue
		}
		envVar := field.Tag.Get("env")
		if envVar == "" || envVar == "-" {
			continue
		}
		m := EnvMapping{
			EnvVar:     envVar,
			ConfigPath: strings.Join(fieldPath, "."),
			Sensitive:  field.Type == sensitiveType || field.Tag.Get("sensitive") == "true",
		}
		idx.all = append(idx.all, m)
		idx.byPath[m.ConfigPath] = m
		idx.byEnv[m.EnvVar] = m.ConfigPath
	}
}

// GenerateEnvToConfigMap returns env var name to config path.
func GenerateEnvToConfigMap() map[string]string {
	src := loadEnvIndex().byEnv
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func GetEnvVarForConfigPath(configPath string) string {
	return loadEnvIndex().byPath[strings.TrimSpace(configPath)].EnvVar
}

// IsSensitiveConfigPath reports whether the value at configPath is a secret.
func IsSensitiveConfigPath(configPath string) bool {
	return loadEnvIndex().byPath[strings.TrimSpace(configPath)].Sensitive
}
