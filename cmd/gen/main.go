package main

import (
	"ConsoleExt/internal/repository"
	"ConsoleExt/pkg/logger"
)

func main() {
	logger.Init()
	defer logger.Sync()

	repository.RunGenerate()
}
