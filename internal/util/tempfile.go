package util

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SaveTempFile : сохраняет данные во временную директорию и возвращает путь.
// Вызывающая сторона отвечает за удаление файла.
func SaveTempFile(data []byte, filename string) (string, error) {
	tmpDir := os.TempDir()
	downloadDir := filepath.Join(tmpDir, "infoclass-files")

	if err := os.MkdirAll(downloadDir, 0755); err != nil {
		return "", fmt.Errorf("ошибка создания директории: %w", err)
	}

	uniqueName := fmt.Sprintf("%d_%s", time.Now().UnixNano(), filepath.Base(filename))
	tmpFile := filepath.Join(downloadDir, uniqueName)

	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return "", fmt.Errorf("ошибка записи файла: %w", err)
	}

	return tmpFile, nil
}
