package zenodo

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// MetadataFromTOML reads a deposition metadata record from a TOML file.
//
// String values may contain {key} placeholders that are substituted from
// vars before decoding; unknown placeholders are left untouched. A keywords
// value given as a single string decodes to a one-element list (comma
// splitting via the string-to-slice hook), so the API always receives a
// JSON array.
func MetadataFromTOML(path string, vars map[string]string) (Metadata, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return Metadata{}, fmt.Errorf("reading metadata file %s: %w", path, err)
	}

	raw := substituteVars(v.AllSettings(), vars)

	var m Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &m,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToSliceHookFunc(","),
	})
	if err != nil {
		return Metadata{}, err
	}
	if err := decoder.Decode(raw); err != nil {
		return Metadata{}, fmt.Errorf("invalid metadata in %s: %w", path, err)
	}
	return m, nil
}

func substituteVars(value any, vars map[string]string) any {
	if len(vars) == 0 {
		return value
	}
	switch typed := value.(type) {
	case string:
		for key, replacement := range vars {
			typed = strings.ReplaceAll(typed, "{"+key+"}", replacement)
		}
		return typed
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			out[k] = substituteVars(v, vars)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, v := range typed {
			out[i] = substituteVars(v, vars)
		}
		return out
	default:
		return value
	}
}
