/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"log"
	"time"
)

const logDate string = `2006-01-02T15:04:05.000-07:00`

func logf(cfg *Config, format string, args ...any) {
	if !cfg.verbose {
		return
	}

	log.Printf("%s | "+format, append([]any{time.Now().Format(logDate)}, args...)...)
}

// logger binds logf to cfg for packages that take a plain printf-style
// function.
func logger(cfg *Config) func(format string, args ...any) {
	return func(format string, args ...any) {
		logf(cfg, format, args...)
	}
}

// logError is written regardless of verbosity.
func logError(err error) {
	log.Printf("%s | ERROR: %v", time.Now().Format(logDate), err)
}
