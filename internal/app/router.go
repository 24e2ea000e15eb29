package app

import (
	"encoding/json"
	"net/http"

	"vape-market/internal/middleware"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const APIPath = "/api/ads"

// NewRouter собирает HTTP-поверхность сервиса: /api/ads, /health и /metrics
func NewRouter(adsHandler http.Handler, logger *zap.SugaredLogger) *mux.Router {
	r := mux.NewRouter()
	// метрики снаружи Recover, чтобы запросы с паникой считались как 500
	r.Use(middleware.MetricsMiddleware, middleware.Recover(logger), middleware.CORS())

	r.Handle(APIPath, adsHandler)
	r.HandleFunc("/health", health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
