package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

type Method string
type Path string
type ApiVersion string

var (
	HTTP_GET    Method = "GET"
	HTTP_POST   Method = "POST"
	HTTP_PUT    Method = "PUT"
	HTTP_DELETE Method = "DELETE"
)

const ApiV1 ApiVersion = "v1"

func CreateApiPath(version ApiVersion, path string) Path {
	if len(path) > 0 && path[0] == '/' {
		path = path[1:]
	}
	return Path("/api/" + string(version) + "/" + path)
}

// HttpError lets a handler pick the response status. Any other error is a 500.
type HttpError struct {
	StatusCode int
	Message    string
}

func (e *HttpError) Error() string {
	return e.Message
}

func badRequest(format string, args ...any) error {
	return &HttpError{StatusCode: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

func notFound(what string) error {
	return &HttpError{StatusCode: http.StatusNotFound, Message: what + " not found"}
}

// PathParams returns the non-empty path segments after prefix.
// "/api/v1/stats/memes/1" with prefix "/api/v1/stats/" gives ["memes", "1"].
func PathParams(r *http.Request, prefix Path) []string {
	rest := strings.TrimPrefix(r.URL.Path, string(prefix))
	var params []string
	for _, p := range strings.Split(rest, "/") {
		if p != "" {
			params = append(params, p)
		}
	}
	return params
}

type MethodHandlers map[Path]map[Method]func(r *http.Request) (any, error)

func SetupHandlers(mux *http.ServeMux, handlers MethodHandlers) {
	for path, methodHandlers := range handlers {
		mux.HandleFunc(string(path), func(w http.ResponseWriter, r *http.Request) {
			method := r.Method
			handler, ok := methodHandlers[Method(method)]
			if !ok {
				http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
				return
			}
			resp, err := handler(r)
			if err != nil {
				var httpErr *HttpError
				if errors.As(err, &httpErr) {
					http.Error(w, httpErr.Message, httpErr.StatusCode)
					return
				}
				zap.L().Error("failed to handle request", zap.String("path", r.URL.Path), zap.Error(err))
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			if resp != nil {
				err := json.NewEncoder(w).Encode(resp)
				if err != nil {
					zap.L().Error("failed to encode response", zap.Error(err))
					http.Error(w, err.Error(), http.StatusInternalServerError)
					return
				}
			}
		})
	}
}
