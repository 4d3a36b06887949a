package server

import (
	"context"
	"errors"
	"io"
	"net/http"

	"beedee/bot/events"
	"beedee/bot/handlers"
	"beedee/internal/metrics"

	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Responder interface {
	Handle(ctx context.Context, env events.Envelope) (handlers.Outcome, error)
}

type Server struct {
	e   *echo.Echo
	log *zap.Logger
}

// maxCallbackBytes bounds a chat callback body; real messages are far smaller.
const maxCallbackBytes = 64 << 10

func NewServer(callbackPath string, responder Responder, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echoMid.Recover())

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	e.POST(callbackPath, callbackHandler(responder))

	return &Server{e: e, log: log}
}

// callbackHandler takes the chat platform's POST as-is: the request body is the message
// document and the User-Agent header identifies the sender.
func callbackHandler(responder Responder) echo.HandlerFunc {
	return func(c echo.Context) error {
		body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxCallbackBytes))
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		}

		outcome, err := responder.Handle(c.Request().Context(), events.Envelope{
			UserAgent: c.Request().UserAgent(),
			Body:      string(body),
		})

		switch {
		case errors.Is(err, events.ErrMalformedEvent):
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		case err != nil:
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "callback failed"})
		}

		return c.JSON(http.StatusOK, map[string]string{"outcome": string(outcome)})
	}
}

func (s *Server) Handler() http.Handler { return s.e }

func (s *Server) Start(addr string) error {
	s.log.Info("http: listening", zap.String("addr", addr))
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
