package config

import (
	"bytes"
	"os"
	"text/template"
)

// ExpandEnv expands environment variables in YAML content using Go templates
// with {{.VAR_NAME}} syntax. Plain $ characters pass through untouched, so
// API keys and regex patterns in providers.yaml never need escaping.
//
// Missing variables expand to the empty string; required fields left empty
// are caught by registry validation afterwards. Malformed templates return
// the original bytes so the YAML parser produces the clearer error.
func ExpandEnv(data []byte) []byte {
	tmpl, err := template.New("providers").Option("missingkey=zero").Parse(string(data))
	if err != nil {
		return data
	}

	envMap := make(map[string]string)
	for _, env := range os.Environ() {
		// Split only on the first = to handle values containing =
		if idx := bytes.IndexByte([]byte(env), '='); idx > 0 {
			envMap[env[:idx]] = env[idx+1:]
		}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, envMap); err != nil {
		return data
	}
	return buf.Bytes()
}
