package build

import (
	"path/filepath"
	"strings"
)

// Template variables available to install steps and test commands
const (
	VarPrefix  = "prefix"
	VarBin     = "bin"
	VarName    = "name"
	VarVersion = "version"
)

// Vars returns the substitution set for a formula built into prefix.
func Vars(name, version, prefix string) map[string]string {
	return map[string]string{
		VarPrefix:  prefix,
		VarBin:     filepath.Join(prefix, "bin"),
		VarName:    name,
		VarVersion: version,
	}
}

// Expand replaces $var and ${var} for the names in vars. Any other dollar
// sequence, such as $HOME, $((1+1)) or ${PATH}, is left for the interpreter.
func Expand(template string, vars map[string]string) string {
	var b strings.Builder
	b.Grow(len(template))

	for i := 0; i < len(template); {
		c := template[i]
		if c != '$' || i+1 >= len(template) {
			b.WriteByte(c)
			i++
			continue
		}

		if template[i+1] == '{' {
			end := strings.IndexByte(template[i+2:], '}')
			if end >= 0 {
				name := template[i+2 : i+2+end]
				if v, ok := vars[name]; ok {
					b.WriteString(v)
					i += 3 + end
					continue
				}
			}
			b.WriteByte(c)
			i++
			continue
		}

		j := i + 1
		for j < len(template) && isNameByte(template[j]) {
			j++
		}
		if v, ok := vars[template[i+1:j]]; ok && j > i+1 {
			b.WriteString(v)
			i = j
			continue
		}
		b.WriteByte(c)
		i++
	}
	return b.String()
}

func isNameByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// Interpret returns the argv that runs script through interpreter.
func Interpret(interpreter []string, script string) []string {
	args := make([]string, 0, len(interpreter)+1)
	args = append(args, interpreter...)
	return append(args, script)
}

// Environ returns base with PREFIX and prefix replaced by the build prefix.
func Environ(base []string, vars map[string]string) []string {
	env := make([]string, 0, len(base)+4)
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		switch key {
		case "PREFIX", "prefix", "DOPKG_NAME", "DOPKG_VERSION":
			continue
		}
		env = append(env, kv)
	}
	return append(env,
		"PREFIX="+vars[VarPrefix],
		"prefix="+vars[VarPrefix],
		"DOPKG_NAME="+vars[VarName],
		"DOPKG_VERSION="+vars[VarVersion],
	)
}
