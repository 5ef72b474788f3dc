package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// privateValue is a TOML value that is either a literal string or a
// single-key table {env = "VARNAME"} naming an environment variable to
// read the real value from at load time. Ported from
// original_source/src/config.rs's PrivateValue, whose hand-written serde
// Visitor this UnmarshalTOML replaces.
type privateValue struct {
	literal string
	envVar  string
}

func (v *privateValue) UnmarshalTOML(value interface{}) error {
	switch val := value.(type) {
	case string:
		v.literal = val
		return nil
	case map[string]interface{}:
		env, ok := val["env"]
		if !ok || len(val) != 1 {
			return fmt.Errorf("config: expected a string or a table with a single key 'env', got %v", val)
		}
		envName, ok := env.(string)
		if !ok {
			return fmt.Errorf("config: 'env' value must be a string")
		}
		v.envVar = envName
		return nil
	default:
		return fmt.Errorf("config: expected a string or a table with a single key 'env', got %T", value)
	}
}

func (v privateValue) resolve() (string, error) {
	if v.envVar != "" {
		val, ok := os.LookupEnv(v.envVar)
		if !ok {
			return "", fmt.Errorf("config: environment variable %q not found", v.envVar)
		}
		return val, nil
	}
	return v.literal, nil
}

var _ toml.Unmarshaler = (*privateValue)(nil)
