package config

import (
	"regexp"
	"strings"
)

// envPattern matches ${env:VAR} placeholders.
var envPattern = regexp.MustCompile(`\$\{env:([A-Za-z_][A-Za-z0-9_]*)\}`)

// LookupEnv is the environment lookup collaborator. os.LookupEnv satisfies it.
type LookupEnv func(name string) (string, bool)

// interpolateTree replaces ${env:VAR} placeholders in every string value of
// the parsed document. A placeholder whose variable is unset is a hard
// error; blank substitution would turn configuration typos into silently
// broken credentials.
func interpolateTree(tree map[string]any, file string, lookup LookupEnv) (map[string]any, error) {
	out, err := interpolateValue(tree, file, lookup)
	if err != nil {
		return nil, err
	}
	return out.(map[string]any), nil
}

func interpolateValue(v any, file string, lookup LookupEnv) (any, error) {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			sub, err := interpolateValue(item, file, lookup)
			if err != nil {
				return nil, err
			}
			out[k] = sub
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			sub, err := interpolateValue(item, file, lookup)
			if err != nil {
				return nil, err
			}
			out[i] = sub
		}
		return out, nil
	case string:
		return interpolateString(val, file, lookup)
	default:
		return v, nil
	}
}

func interpolateString(s, file string, lookup LookupEnv) (string, error) {
	if !strings.Contains(s, "${env:") {
		return s, nil
	}

	var missing string
	replaced := envPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := envPattern.FindStringSubmatch(match)[1]
		val, ok := lookup(name)
		if !ok {
			if missing == "" {
				missing = name
			}
			return match
		}
		return val
	})
	if missing != "" {
		return "", &InterpolationError{File: file, Var: missing}
	}
	return replaced, nil
}
