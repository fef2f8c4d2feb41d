package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"trivia-service/internal/app"
	"trivia-service/internal/bank"
	"trivia-service/internal/domain"
)

// RESTHandler exposes the game service as JSON endpoints.
type RESTHandler struct {
	service          *app.GameService
	leaderboardLimit int
}

func NewRESTHandler(service *app.GameService, leaderboardLimit int) *RESTHandler {
	if leaderboardLimit <= 0 {
		leaderboardLimit = 10
	}
	return &RESTHandler{service: service, leaderboardLimit: leaderboardLimit}
}

// NewRouter mounts the REST endpoints, the websocket endpoint and the health check.
func NewRouter(rest *RESTHandler, ws *WSHandler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	router.GET("/ws", gin.WrapF(ws.ServeWS))

	api := router.Group("/api")
	api.GET("/banks/:id", rest.getBank)
	api.POST("/games", rest.createGame)
	api.GET("/games/:id", rest.getGame)
	api.POST("/games/:id/start", rest.startGame)
	api.POST("/games/:id/answers", rest.submitAnswer)
	api.POST("/games/:id/tick", rest.tickGame)
	api.DELETE("/games/:id", rest.closeGame)
	api.GET("/leaderboard/:bank", rest.leaderboard)
	return router
}

type questionView struct {
	Prompt  string   `json:"prompt"`
	Choices []string `json:"choices"`
}

type bankView struct {
	ID        string         `json:"id"`
	Questions []questionView `json:"questions"`
}

type createGameRequest struct {
	BankID string `json:"bankId"`
	Player string `json:"player"`
}

type answerRequest struct {
	Choice *int `json:"choice" binding:"required"`
}

type gameResponse struct {
	ID       string          `json:"id"`
	Snapshot domain.Snapshot `json:"snapshot"`
}

func (h *RESTHandler) getBank(c *gin.Context) {
	b, err := h.service.Bank(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	// Answers stay server-side.
	c.JSON(http.StatusOK, bankView{
		ID: b.ID,
		Questions: lo.Map(b.Questions, func(q domain.Question, _ int) questionView {
			return questionView{Prompt: q.Prompt, Choices: q.Choices}
		}),
	})
}

func (h *RESTHandler) createGame(c *gin.Context) {
	var req createGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.BankID == "" {
		req.BankID = bank.DefaultID
	}
	id, snap, err := h.service.Create(c.Request.Context(), req.BankID, req.Player)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gameResponse{ID: id, Snapshot: snap})
}

func (h *RESTHandler) getGame(c *gin.Context) {
	snap, err := h.service.Snapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gameResponse{ID: c.Param("id"), Snapshot: snap})
}

func (h *RESTHandler) startGame(c *gin.Context) {
	snap, err := h.service.Start(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gameResponse{ID: c.Param("id"), Snapshot: snap})
}

func (h *RESTHandler) submitAnswer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "choice is required"})
		return
	}
	snap, err := h.service.Submit(c.Request.Context(), c.Param("id"), *req.Choice)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gameResponse{ID: c.Param("id"), Snapshot: snap})
}

func (h *RESTHandler) tickGame(c *gin.Context) {
	snap, err := h.service.Tick(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gameResponse{ID: c.Param("id"), Snapshot: snap})
}

func (h *RESTHandler) closeGame(c *gin.Context) {
	h.service.Close(c.Request.Context(), c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (h *RESTHandler) leaderboard(c *gin.Context) {
	limit := h.leaderboardLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}
	entries, err := h.service.Leaderboard(c.Request.Context(), c.Param("bank"), limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if entries == nil {
		entries = []domain.ScoreEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"bankId": c.Param("bank"), "entries": entries})
}

func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrBankNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidOperation):
		return http.StatusConflict
	case errors.Is(err, domain.ErrChoiceOutOfRange):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
