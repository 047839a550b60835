package config

import "github.com/joho/godotenv"

// LoadDotEnv reads KEY=VALUE lines from path into the environment.
// Variables already set in the environment win over the file.
func LoadDotEnv(path string) error {
	return godotenv.Load(path)
}
