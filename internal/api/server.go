package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/pbaille/kanban/internal/board"
	"github.com/pbaille/kanban/internal/dispatch"
	"github.com/pbaille/kanban/internal/domain"
	"github.com/pbaille/kanban/internal/recent"
	"github.com/pbaille/kanban/internal/service"
	"github.com/pbaille/kanban/internal/store"
)

// Server handles HTTP requests for the board API
type Server struct {
	svc    *service.Service
	recent *recent.List
	addr   string
	log    *log.Logger
}

// New creates a new API server
func New(svc *service.Service, recentList *recent.List, addr string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Server{svc: svc, recent: recentList, addr: addr, log: logger}
}

// Handler builds the echo instance serving the API
func (s *Server) Handler() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType},
	}))
	e.Use(s.requestLog)

	dispatch.RegisterMetrics()
	e.GET("/health", s.health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/boards/recent", s.listRecent)
	e.GET("/boards/:id", s.getBoard)
	e.POST("/boards/:id/actions", s.postAction)
	e.POST("/boards/:id/notes", s.postNote)

	return e
}

// Run starts the HTTP server
func (s *Server) Run() error {
	s.log.WithField("addr", s.addr).Info("starting server")
	return s.Handler().Start(s.addr)
}

func (s *Server) requestLog(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		s.log.WithFields(log.Fields{
			"method":   c.Request().Method,
			"path":     c.Path(),
			"status":   c.Response().Status,
			"duration": time.Since(start),
		}).Debug("request")
		return nil
	}
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// BoardResponse describes a board and its current snapshot
type BoardResponse struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	RootNotebookName string      `json:"rootNotebookName"`
	ErrorMessages    []string    `json:"errorMessages"`
	State            board.State `json:"state"`
}

func boardResponse(v *service.View) BoardResponse {
	errs := v.Board.ErrorMessages
	if errs == nil {
		errs = []string{}
	}
	return BoardResponse{
		ID:               v.Board.ConfigNoteID,
		Name:             v.Board.Name,
		RootNotebookName: v.Board.RootNotebookName,
		ErrorMessages:    errs,
		State:            v.State,
	}
}

func (s *Server) getBoard(c echo.Context) error {
	v, err := s.svc.Open(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, boardResponse(v))
}

// ActionResponse is the response for a dispatched action
type ActionResponse struct {
	Mutations []board.Mutation `json:"mutations"`
	Board     BoardResponse    `json:"board"`
}

func (s *Server) postAction(c echo.Context) error {
	var a board.Action
	if err := c.Bind(&a); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	muts, v, err := s.svc.Dispatch(c.Request().Context(), c.Param("id"), a)
	if err != nil {
		return s.writeError(c, err)
	}
	if muts == nil {
		muts = []board.Mutation{}
	}
	return c.JSON(http.StatusOK, ActionResponse{Mutations: muts, Board: boardResponse(v)})
}

// NewNoteRequest is the request body for creating a note in a column
type NewNoteRequest struct {
	Column string `json:"column"`
	Title  string `json:"title"`
	Todo   bool   `json:"todo"`
}

// NewNoteResponse is the response for creating a note
type NewNoteResponse struct {
	Note      *domain.Note     `json:"note"`
	Mutations []board.Mutation `json:"mutations"`
}

func (s *Server) postNote(c echo.Context) error {
	var req NewNoteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}
	if strings.TrimSpace(req.Column) == "" {
		return c.JSON(http.StatusBadRequest, errorBody("column is required"))
	}

	note, muts, err := s.svc.CreateNote(c.Request().Context(), c.Param("id"), req.Column, req.Title, req.Todo)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, NewNoteResponse{Note: note, Mutations: muts})
}

func (s *Server) listRecent(c echo.Context) error {
	if err := s.recent.Load(c.Request().Context()); err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"boards": s.recent.Items()})
}

func (s *Server) writeError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, board.ErrNoConfig):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, board.ErrUnknownAction),
		errors.Is(err, board.ErrUnknownColumn),
		errors.Is(err, board.ErrNoteNotFound):
		status = http.StatusBadRequest
	case errors.Is(err, dispatch.ErrTimeout):
		status = http.StatusGatewayTimeout
	}
	if status == http.StatusInternalServerError {
		s.log.WithError(err).Error("request failed")
	}
	return c.JSON(status, errorBody(err.Error()))
}

func errorBody(message string) map[string]string {
	return map[string]string{"error": message}
}
