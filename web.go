/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/Seednode/dyadic/interaction"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

const (
	timeout time.Duration = 10 * time.Second
	qrSize  int           = 320
)

type statusSource interface {
	Status() Status
}

func securityHeaders(w http.ResponseWriter) {
	w.Header().Set("Cross-Origin-Resource-Policy", "same-site")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'none'")
}

func realIP(r *http.Request) string {
	host, port, _ := net.SplitHostPort(r.RemoteAddr)
	if ip := r.Header.Get("X-Real-IP"); ip != "" && net.ParseIP(ip) != nil {
		host = ip
	}
	if port != "" {
		return net.JoinHostPort(host, port)
	}
	return host
}

func serveHealthCheck(errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(w)

		_, err := w.Write([]byte("Ok\n"))
		if err != nil {
			errs <- err

			return
		}
	}
}

func serveVersion(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(w)
		w.WriteHeader(http.StatusOK)

		written, err := w.Write([]byte("dyadic v" + releaseVersion + "\n"))
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Version page (%d B) to %s in %s",
			written,
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func serveSessionStatus(cfg *Config, src statusSource, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		data, err := json.Marshal(src.Status())
		if err != nil {
			errs <- err

			http.Error(w, "status unavailable", http.StatusInternalServerError)

			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(w)

		_, err = w.Write(data)
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Status to %s in %s",
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

// serveCompletionQR encodes the participant's completion code once the
// final screen has been reached.
func serveCompletionQR(cfg *Config, src statusSource, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		st := src.Status()
		if !st.Ending {
			http.NotFound(w, r)

			return
		}

		png, err := qrcode.Encode(interaction.CompletionCode(st.ParticipantID), qrcode.Medium, qrSize)
		if err != nil {
			errs <- err

			http.Error(w, "qr generation failed", http.StatusInternalServerError)

			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", strconv.Itoa(len(png)))
		securityHeaders(w)

		_, err = w.Write(png)
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Completion QR to %s", realIP(r))
	}
}

func newRouter(cfg *Config, src statusSource, m *metrics, errs chan<- error) *httprouter.Router {
	mux := httprouter.New()

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, i any) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(w)
		w.WriteHeader(http.StatusInternalServerError)

		io.WriteString(w, "An error has occurred. Please try again.\n")
	}

	mux.GET("/healthz", serveHealthCheck(errs))

	mux.GET("/version", serveVersion(cfg, errs))

	mux.GET("/status", serveSessionStatus(cfg, src, errs))

	mux.GET("/completion/qr", serveCompletionQR(cfg, src, errs))

	mux.Handler("GET", "/metrics", m.handler())

	if cfg.profile {
		registerProfileHandlers(mux)
	}

	return mux
}

// serveStatus starts the local status server. The returned function shuts
// it down.
func serveStatus(cfg *Config, src statusSource, m *metrics) (func(), error) {
	errs := make(chan error, 64)

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port)),
		Handler:           newRouter(cfg, src, m, errs),
		IdleTimeout:       10 * time.Minute,
		ReadTimeout:       timeout,
		ReadHeaderTimeout: timeout,
		WriteTimeout:      timeout,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})

	go func() {
		for {
			select {
			case err := <-errs:
				logf(cfg, "SERVE: %v", err)
			case <-done:
				return
			}
		}
	}()

	go func() {
		logf(cfg, "SERVE: Listening on http://%s/", srv.Addr)

		err := srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logError(err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)

		close(done)
	}, nil
}
