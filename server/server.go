// Copyright 2026 nopo Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package server

import (
	"context"
	"net"
	"net/http"
	"sync"

	"github.com/emicklei/go-restful/v3"
	"github.com/juju/errors"
	"github.com/nopo-io/nopo/base/log"
	"github.com/nopo-io/nopo/config"
	"github.com/nopo-io/nopo/storage/data"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

// Server manages states of a server node.
type Server struct {
	RestServer

	// mu guards DataClient, HttpServer and TracerProvider between Serve and Shutdown.
	mu       sync.Mutex
	stopped  bool
	listener net.Listener
	started  chan struct{}
}

// NewServer creates a server node.
func NewServer(cfg *config.Config) *Server {
	return &Server{
		RestServer: RestServer{
			Config:     cfg,
			DataClient: &data.NoDatabase{},
			HttpHost:   cfg.Server.HttpHost,
			HttpPort:   cfg.Server.HttpPort,
			WebService: new(restful.WebService),
		},
		started: make(chan struct{}),
	}
}

// Started is closed once the server accepts connections.
func (s *Server) Started() <-chan struct{} {
	return s.started
}

// Addr returns the address the server listens on, or nil before it has started.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve connects to the data store and starts the HTTP server. It blocks until Shutdown. If
// Shutdown is called before the server has started, Serve releases what it opened and returns.
func (s *Server) Serve() {
	log.Logger().Info("start server",
		zap.String("http_host", s.HttpHost),
		zap.Int("http_port", s.HttpPort),
		zap.Bool("enable_auth", s.Config.Server.APIKey != ""))

	// setup tracing
	tp, err := s.Config.Tracing.NewTracerProvider()
	if err != nil {
		log.Logger().Fatal("failed to create trace provider", zap.Error(err))
	}
	otel.SetTracerProvider(tp)
	otel.SetErrorHandler(log.GetErrorHandler())
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	// connect to data store
	log.Logger().Info("connect data store", zap.String("database", log.RedactDBURL(s.Config.Database.DataStore)))
	database, err := data.Open(s.Config.Database.DataStore, s.Config.Database.TablePrefix)
	if err != nil {
		log.Logger().Fatal("failed to connect data store", zap.Error(err))
	}
	if err = database.Init(); err != nil {
		log.Logger().Fatal("failed to init data store", zap.Error(err))
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		log.Logger().Info("server stopped before start")
		if err = database.Close(); err != nil {
			log.Logger().Error("failed to close data store", zap.Error(err))
		}
		if err = shutdownTracerProvider(context.Background(), tp); err != nil {
			log.Logger().Error("failed to shutdown trace provider", zap.Error(err))
		}
		return
	}
	s.TracerProvider = tp
	s.DataClient = database
	s.HttpServer = s.NewHttpServer(restful.NewContainer())
	s.listener, err = net.Listen("tcp", s.HttpServer.Addr)
	if err != nil {
		s.mu.Unlock()
		log.Logger().Fatal("failed to listen", zap.String("addr", s.HttpServer.Addr), zap.Error(err))
	}
	httpServer, listener := s.HttpServer, s.listener
	s.mu.Unlock()

	log.Logger().Info("start http server", zap.String("addr", listener.Addr().String()))
	close(s.started)
	if err = httpServer.Serve(listener); err != http.ErrServerClosed {
		log.Logger().Fatal("failed to start http server", zap.Error(err))
	}
}

// Shutdown stops the HTTP server, then closes the data store and flushes spans. A server that
// has not started yet will not start.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	httpServer, database, tp := s.HttpServer, s.DataClient, s.TracerProvider
	s.mu.Unlock()

	if httpServer != nil {
		if err := httpServer.Shutdown(ctx); err != nil {
			return errors.Trace(err)
		}
	}
	if err := database.Close(); err != nil && !errors.Is(err, data.ErrNoDatabase) {
		return errors.Trace(err)
	}
	return errors.Trace(shutdownTracerProvider(ctx, tp))
}

func shutdownTracerProvider(ctx context.Context, tp any) error {
	if tp, ok := tp.(interface{ Shutdown(context.Context) error }); ok {
		return tp.Shutdown(ctx)
	}
	return nil
}
