package main

import (
	"path/filepath"
	"time"
)

func dirOf(path string) string { return filepath.Dir(path) }

func secondsToDuration(seconds int) time.Duration { return time.Duration(seconds) * time.Second }
