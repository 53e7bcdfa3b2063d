package main

import (
	"github.com/cchaithanya83/video-conferncing-platform/internal/logging"
)

func main() {
	// Initialize logging
	logging.Init()
	Execute()
}
