package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"shifttask-backend/internal/app"
	taskDelivery "shifttask-backend/internal/task/delivery"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	app         *app.App
	taskHandler *taskDelivery.TaskHandler
}

func NewHandler(a *app.App) *Handler {
	taskHandler := taskDelivery.NewTaskHandler(taskDelivery.Handlers{
		Templates: a.Templates,
		Generator: a.Generator,
		Lists:     a.Lists,
		Items:     a.Items,
		Checkout:  a.Checkout,
		Sweeps:    a.Sweeper,
		Shifts:    a.ShiftEvents,
		Tokens:    a.PushTokens,
	})
	log.Println("Task handler initialized")

	return &Handler{app: a, taskHandler: taskHandler}
}

// Engine builds the gin engine with CORS and every route.
func (h *Handler) Engine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h.app, h.taskHandler)
	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (h *Handler) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: h.Engine()}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
