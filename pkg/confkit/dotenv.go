package confkit

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
)

var dotenvOnce sync.Once

// LoadDotenvOnce loads secrets such as UNISAT_API_KEY from a .env file. The
// first call wins; later calls are no-ops.
//
// ENV_FILE names an explicit file. Otherwise .env files are loaded from the
// working directory up to the project root. NO_DOTENV=1 disables loading and
// DOTENV_OVERLOAD=1 lets file values replace variables already set.
func LoadDotenvOnce() {
	dotenvOnce.Do(loadDotenv)
}

func loadDotenv() {
	if os.Getenv("NO_DOTENV") == "1" {
		return
	}

	overload := os.Getenv("DOTENV_OVERLOAD") == "1"
	load := func(path string) {
		if !fileExists(path) {
			return
		}
		if overload {
			_ = godotenv.Overload(path)
		} else {
			_ = godotenv.Load(path)
		}
	}

	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		load(envFile)
		return
	}

	start, err := os.Getwd()
	if err != nil {
		start = MustProjectRoot()
	}
	walkUp(start, func(dir string) bool {
		load(filepath.Join(dir, ".env"))
		return isRoot(dir)
	})
}
