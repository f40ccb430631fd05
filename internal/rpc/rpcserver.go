package rpc

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/6529-Collections/6529stats/internal/rpc/handlers"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// API bundles what the handlers read from.
type API struct {
	Version string
	Chains  []uint64
	Stats   handlers.StatsReader
	Feed    handlers.ActionQuerier
}

func routes(api API) handlers.MethodHandlers {
	get := func(fn func(r *http.Request, reader handlers.StatsReader) (any, error)) map[handlers.Method]func(r *http.Request) (any, error) {
		return map[handlers.Method]func(r *http.Request) (any, error){
			handlers.HTTP_GET: func(r *http.Request) (any, error) {
				return fn(r, api.Stats)
			},
		}
	}
	v1 := func(path string) handlers.Path {
		return handlers.CreateApiPath(handlers.ApiV1, path)
	}

	return handlers.MethodHandlers{
		v1("status"): {
			handlers.HTTP_GET: func(r *http.Request) (any, error) {
				return handlers.StatusGetHandler(r, api.Version, api.Chains)
			},
		},
		v1("actions"): {
			handlers.HTTP_GET: func(r *http.Request) (any, error) {
				return handlers.ActionsGetHandler(r, api.Feed)
			},
		},
		v1("stats/"):        get(handlers.StatsGetHandler),
		v1("holders/"):      get(handlers.HolderGetHandler),
		v1("burns/"):        get(handlers.BurnsGetHandler),
		v1("burn-records/"): get(handlers.BurnRecordGetHandler),
		v1("positions/"):    get(handlers.PositionGetHandler),
		v1("pools/"):        get(handlers.PoolGetHandler),
		v1("actions/"):      get(handlers.ActionGetHandler),
	}
}

func newMux(api API) *http.ServeMux {
	mux := http.NewServeMux()
	handlers.SetupHandlers(mux, routes(api))
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func StartRPCServer(port int, api API, ctx context.Context) func() {
	zap.L().Info("Starting RPC server on port", zap.Int("port", port))

	addr := fmt.Sprintf(":%d", port)
	server := &http.Server{
		Addr:              addr,
		Handler:           loggingMiddleware(newMux(api)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil {
			if err == http.ErrServerClosed {
				zap.L().Info("RPC server closed")
			} else {
				zap.L().Fatal("starting RPC server failed", zap.Error(err))
			}
		}
	}()
	closeFunc := func() {
		zap.L().Info("Closing RPC server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zap.L().Error("server shutdown failed", zap.Error(err))
		}
	}
	return closeFunc
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{w, http.StatusOK}
		next.ServeHTTP(rw, r)

		zap.L().Info("Request",
			zap.String("ip", r.RemoteAddr),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rw.statusCode),
		)
	})
}
