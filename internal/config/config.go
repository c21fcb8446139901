// Package config loads flat option structs from a TOML file, METRICSD_*
// environment variables and command-line flags, and watches the file for
// changes.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/metricsd/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// EnvPrefix is prepended to every `env` tag when looking up variables.
const EnvPrefix = "METRICSD_"

var durationType = reflect.TypeOf(time.Duration(0))

// LoadConfig fills opts (a pointer to a flat struct) with precedence
// CLI flags > environment > TOML file > existing values.
//
// Fields opt in with `toml:"section.key"` and `env:"KEY"` tags. The file path
// is taken from a string field named Config. When cmd is non-nil, fields
// whose flag was set explicitly are left alone; flag names are derived from
// field names ("ContentType" -> "content-type").
func LoadConfig(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("config: expected pointer to struct, got %T", opts)
	}
	v = v.Elem()
	t := v.Type()

	changed := changedFlags(cmd)

	var file map[string]any
	if f := v.FieldByName("Config"); f.IsValid() && f.Kind() == reflect.String && f.String() != "" {
		data, err := os.ReadFile(f.String())
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := toml.Unmarshal(data, &file); err != nil {
				return fmt.Errorf("failed to parse TOML config: %w", err)
			}
		}
	}

	var errs []error
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		field := v.Field(i)
		if !field.CanSet() || changed[fieldNameToFlag(sf.Name)] {
			continue
		}

		if path := sf.Tag.Get("toml"); path != "" && file != nil {
			if value := getNestedValue(file, path); value != nil {
				if err := setFieldValue(field, value); err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", path, err))
				}
			}
		}

		if key := sf.Tag.Get("env"); key != "" {
			if raw, ok := os.LookupEnv(EnvPrefix + key); ok && raw != "" {
				if err := setFieldValueFromString(field, raw); err != nil {
					errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				}
			}
		}
	}

	return errors.Join(errs...)
}

func changedFlags(cmd *cobra.Command) map[string]bool {
	changed := make(map[string]bool)
	if cmd == nil {
		return changed
	}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		changed[f.Name] = true
	})
	return changed
}

// fieldNameToFlag converts a struct field name to a CLI flag name.
func fieldNameToFlag(fieldName string) string {
	var b strings.Builder
	for i, r := range fieldName {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte('-')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// getNestedValue retrieves a value from nested tables using dot notation.
func getNestedValue(data map[string]any, path string) any {
	current := data
	parts := strings.Split(path, ".")
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}
	return current[parts[len(parts)-1]]
}

// setFieldValue assigns a decoded TOML value. Durations accept strings
// ("5s") or integer seconds.
func setFieldValue(field reflect.Value, value any) error {
	if field.Type() == durationType {
		switch x := value.(type) {
		case string:
			return setFieldValueFromString(field, x)
		case int64:
			field.SetInt(int64(time.Duration(x) * time.Second))
			return nil
		}
		return fmt.Errorf("unsupported duration value %v", value)
	}

	switch field.Kind() {
	case reflect.String:
		if s, ok := value.(string); ok {
			field.SetString(s)
			return nil
		}
	case reflect.Bool:
		if b, ok := value.(bool); ok {
			field.SetBool(b)
			return nil
		}
	case reflect.Int, reflect.Int64:
		if i, ok := value.(int64); ok {
			field.SetInt(i)
			return nil
		}
	case reflect.Slice:
		if arr, ok := value.([]any); ok && field.Type().Elem().Kind() == reflect.String {
			slice := make([]string, 0, len(arr))
			for _, item := range arr {
				s, isString := item.(string)
				if !isString {
					return fmt.Errorf("non-string list item %v", item)
				}
				slice = append(slice, s)
			}
			field.Set(reflect.ValueOf(slice))
			return nil
		}
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// setFieldValueFromString parses an environment value into the field.
// Lists are comma separated.
func setFieldValueFromString(field reflect.Value, value string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int64:
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(i)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type %s", field.Type())
		}
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		field.Set(reflect.ValueOf(parts))
	default:
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
	return nil
}

// LoadLoggingConfig reads the [logging] table of a TOML file. Keys other
// than level and format are per-module levels. A missing file yields the
// defaults without error.
func LoadLoggingConfig(path string) (logging.Config, error) {
	cfg := logging.Config{
		Level:   "info",
		Format:  "text",
		Modules: make(map[string]string),
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}

	var raw struct {
		Logging map[string]any `toml:"logging"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return cfg, fmt.Errorf("failed to parse TOML config: %w", err)
	}

	for key, value := range raw.Logging {
		s, ok := value.(string)
		if !ok {
			continue
		}
		switch key {
		case "level":
			cfg.Level = s
		case "format":
			cfg.Format = s
		default:
			cfg.Modules[key] = s
		}
	}
	return cfg, nil
}
