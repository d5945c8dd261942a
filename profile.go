/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http/pprof"

	"github.com/julienschmidt/httprouter"
)

const profilePrefix = "/debug/pprof"

func registerProfileHandlers(mux *httprouter.Router) {
	for _, name := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
		mux.Handler("GET", profilePrefix+"/"+name, pprof.Handler(name))
	}

	mux.HandlerFunc("GET", profilePrefix+"/", pprof.Index)
	mux.HandlerFunc("GET", profilePrefix+"/cmdline", pprof.Cmdline)
	mux.HandlerFunc("GET", profilePrefix+"/profile", pprof.Profile)
	mux.HandlerFunc("GET", profilePrefix+"/symbol", pprof.Symbol)
	mux.HandlerFunc("GET", profilePrefix+"/trace", pprof.Trace)
}
