package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadEnv читает KEY=VALUE строки из .env файла и устанавливает их через os.Setenv.
// Пустые строки и комментарии (#) пропускаются; уже заданные в окружении
// переменные не перезаписываются.
func LoadEnv(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
		if key == "" {
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, strings.Trim(strings.TrimSpace(value), `"'`)); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
	}
	return scanner.Err()
}

// LoadEnvOptional загружает .env файл, если он существует
func LoadEnvOptional(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return LoadEnv(path)
}
