package daemonsim

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// PIDFileName - имя PID файла симулятора в каталоге состояния
const PIDFileName = "jqsim.pid"

// PIDPath возвращает путь к PID файлу в каталоге dir
func PIDPath(dir string) string {
	return filepath.Join(dir, PIDFileName)
}

// WritePID записывает PID в файл
func WritePID(path string, pid int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create PID directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(fmt.Sprintf("%d\n", pid)), 0600); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return nil
}

// ReadPID читает PID из файла
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var pid int
	if _, err := fmt.Sscanf(string(data), "%d", &pid); err != nil {
		return 0, fmt.Errorf("invalid PID file %s: %w", path, err)
	}
	return pid, nil
}

// RemovePID удаляет PID файл; отсутствие файла не ошибка
func RemovePID(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// IsRunning проверяет, что процесс существует
func IsRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// сигнал 0 только проверяет существование процесса
	return process.Signal(syscall.Signal(0)) == nil
}
