package rest

import (
	"fmt"
	"net/http"

	"github.com/papertrade/papertrade/config"
)

func NewServer(cfg config.HTTPServer, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}
