// Package envx overlays secrets from .env files and the process environment.
package envx

import (
	"errors"
	"io/fs"
	"maps"
	"os"

	"github.com/joho/godotenv"
)

// Env is a merged view: process variables win over file values.
type Env struct {
	file map[string]string
}

// Load reads the given dotenv files in order, later files overriding
// earlier ones. Missing files are skipped.
func Load(files ...string) (Env, error) {
	values := map[string]string{}
	for _, f := range files {
		m, err := godotenv.Read(f)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Env{}, err
		}
		maps.Copy(values, m)
	}
	return Env{file: values}, nil
}

func (e Env) Lookup(key string) (string, bool) {
	if v, ok := os.LookupEnv(key); ok {
		return v, true
	}
	v, ok := e.file[key]
	return v, ok
}

// Set assigns the value of key to dst when the key is present.
func (e Env) Set(dst *string, key string) {
	if v, ok := e.Lookup(key); ok {
		*dst = v
	}
}
