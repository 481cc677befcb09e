package delivery

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"shifttask-backend/internal/auth"
	authdelivery "shifttask-backend/internal/auth/delivery"
	"shifttask-backend/internal/task/domain"
	"shifttask-backend/internal/task/usecase"

	"github.com/gin-gonic/gin"
)

// SweepRunner runs one named sweep
type SweepRunner interface {
	Run(ctx context.Context, name string) (map[string]int, error)
}

// ShiftEventHandler applies a raw shift event
type ShiftEventHandler interface {
	HandleEvent(ctx context.Context, data []byte) error
}

// PushTokenStore registers device tokens for the in-app channel
type PushTokenStore interface {
	SaveToken(userID, token, deviceInfo string) error
	DeleteToken(userID, token string) error
}

// Handlers groups the collaborators behind the task HTTP surface
type Handlers struct {
	Templates *usecase.TemplateUsecase
	Generator *usecase.Generator
	Lists     *usecase.ListUsecase
	Items     *usecase.ItemUsecase
	Checkout  *usecase.CheckoutGate
	Sweeps    SweepRunner
	Shifts    ShiftEventHandler
	Tokens    PushTokenStore
}

// TaskHandler handles task-related HTTP requests
type TaskHandler struct {
	h   Handlers
	now func() time.Time
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(h Handlers) *TaskHandler {
	return &TaskHandler{h: h, now: func() time.Time { return time.Now().UTC() }}
}

// Register mounts the routes on an authenticated group.
func (t *TaskHandler) Register(api *gin.RouterGroup) {
	manager := authdelivery.RequireManager()

	templates := api.Group("/templates")
	{
		templates.GET("", t.ListTemplates)
		templates.GET("/:id", t.GetTemplate)
		templates.POST("", manager, t.CreateTemplate)
		templates.PATCH("/:id/active", manager, t.SetTemplateActive)
		templates.DELETE("/:id", manager, t.DeleteTemplate)
		templates.POST("/:id/generate", manager, t.Generate)
	}

	lists := api.Group("/task-lists")
	{
		lists.GET("", t.ListTaskLists)
		lists.GET("/:id", t.GetTaskList)
		lists.POST("/:id/done", manager, t.MarkListDone)
		lists.POST("/:id/reset", manager, t.ResetList)
	}

	items := api.Group("/task-items")
	{
		items.GET("/:id", t.GetItem)
		items.POST("/:id/start", t.StartItem)
		items.POST("/:id/complete", t.CompleteItem)
		items.POST("/:id/reset", t.ResetItem)
		items.PATCH("/:id/proof", t.RecordProof)
		items.PATCH("/:id/subtasks/:subtaskId", t.SetSubtask)
	}

	rules := api.Group("/escalation-rules", manager)
	{
		rules.GET("", t.ListRules)
		rules.POST("", t.CreateRule)
		rules.DELETE("/:id", t.DeleteRule)
	}

	api.POST("/attendance/checkout", t.Checkout)
	api.GET("/employees/:id/score", t.Score)
	api.POST("/shifts/events", manager, t.ShiftEvent)
	api.POST("/admin/sweeps/:name", manager, t.RunSweep)

	push := api.Group("/push-tokens")
	{
		push.POST("", t.RegisterPushToken)
		push.DELETE("/:token", t.UnregisterPushToken)
	}
}

// writeError maps domain errors to HTTP responses
func writeError(c *gin.Context, err error) {
	var proof *domain.ProofRequiredError
	var already *domain.AlreadyGeneratedError
	var blocked *domain.CheckoutBlockedError

	switch {
	case errors.As(err, &proof):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": proof.Error(), "condition": proof.Condition})
	case errors.As(err, &already):
		c.JSON(http.StatusConflict, gin.H{"error": already.Error(), "task_list_id": already.ListID})
	case errors.As(err, &blocked):
		c.JSON(http.StatusConflict, gin.H{"error": blocked.Error(), "incomplete_tasks": blocked.TaskNames})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrEmptyTemplate), errors.Is(err, domain.ErrInvalidTransition):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("[TaskHandler] %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func isManager(c *gin.Context) bool {
	return c.GetString(authdelivery.KeyRole) == auth.RoleManager
}

// ownsList lets managers through and workers only onto their own lists.
func (t *TaskHandler) ownsList(c *gin.Context, list *domain.TaskList) bool {
	if isManager(c) || list.EmployeeID == c.GetString(authdelivery.KeyEmployeeID) {
		return true
	}
	c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized"})
	return false
}

// authorizeItem loads the item's list and checks the caller may act on it.
func (t *TaskHandler) authorizeItem(c *gin.Context) bool {
	item, err := t.h.Items.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return false
	}
	list, err := t.h.Lists.Get(item.TaskListID)
	if err != nil {
		writeError(c, err)
		return false
	}
	return t.ownsList(c, list)
}

// ListTemplates returns templates
// GET /api/templates?active=true
func (t *TaskHandler) ListTemplates(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	templates, err := t.h.Templates.ListTemplates(activeOnly)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"templates": templates, "total": len(templates)})
}

// GET /api/templates/:id
func (t *TaskHandler) GetTemplate(c *gin.Context) {
	tpl, err := t.h.Templates.GetTemplate(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tpl)
}

// CreateTemplate creates a template with nested tasks and checklists
// POST /api/templates
func (t *TaskHandler) CreateTemplate(c *gin.Context) {
	var tpl domain.TaskListTemplate
	if err := c.ShouldBindJSON(&tpl); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tpl.ID = ""
	created, err := t.h.Templates.CreateTemplate(&tpl)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// PATCH /api/templates/:id/active
func (t *TaskHandler) SetTemplateActive(c *gin.Context) {
	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := t.h.Templates.SetTemplateActive(c.Param("id"), *req.Active); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Template updated successfully"})
}

// DELETE /api/templates/:id
func (t *TaskHandler) DeleteTemplate(c *gin.Context) {
	if err := t.h.Templates.DeleteTemplate(c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Template deleted successfully"})
}

// Generate instantiates a template for a shift
// POST /api/templates/:id/generate
func (t *TaskHandler) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	list, err := t.h.Generator.Generate(c.Param("id"), req.ShiftID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newListResponse(list, t.now()))
}

// ListTaskLists returns the caller's lists; managers may ask for another employee
// GET /api/task-lists?state=active&limit=50&offset=0&employee_id=
func (t *TaskHandler) ListTaskLists(c *gin.Context) {
	employeeID := c.GetString(authdelivery.KeyEmployeeID)
	if other := c.Query("employee_id"); other != "" && isManager(c) {
		employeeID = other
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	lists, total, err := t.h.Lists.ListForEmployee(employeeID, c.Query("state"), limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"task_lists": newListResponses(lists, t.now()),
		"total":      total,
	})
}

// GET /api/task-lists/:id
func (t *TaskHandler) GetTaskList(c *gin.Context) {
	list, err := t.h.Lists.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if !t.ownsList(c, list) {
		return
	}
	c.JSON(http.StatusOK, newListResponse(list, t.now()))
}

// POST /api/task-lists/:id/done
func (t *TaskHandler) MarkListDone(c *gin.Context) {
	list, err := t.h.Lists.MarkDone(c.Param("id"), c.GetString(authdelivery.KeyEmployeeID))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newListResponse(list, t.now()))
}

// POST /api/task-lists/:id/reset
func (t *TaskHandler) ResetList(c *gin.Context) {
	list, err := t.h.Lists.ResetToDraft(c.Param("id"), c.GetString(authdelivery.KeyEmployeeID))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newListResponse(list, t.now()))
}

// GET /api/task-items/:id
func (t *TaskHandler) GetItem(c *gin.Context) {
	if !t.authorizeItem(c) {
		return
	}
	item, err := t.h.Items.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newItemResponse(item, t.now()))
}

func (t *TaskHandler) itemAction(c *gin.Context, action func(string) (*domain.TaskItem, error)) {
	if !t.authorizeItem(c) {
		return
	}
	item, err := action(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newItemResponse(item, t.now()))
}

// POST /api/task-items/:id/start
func (t *TaskHandler) StartItem(c *gin.Context) {
	t.itemAction(c, t.h.Items.Start)
}

// CompleteItem runs the proof gate; 422 names the unmet condition
// POST /api/task-items/:id/complete
func (t *TaskHandler) CompleteItem(c *gin.Context) {
	t.itemAction(c, t.h.Items.Complete)
}

// POST /api/task-items/:id/reset
func (t *TaskHandler) ResetItem(c *gin.Context) {
	t.itemAction(c, t.h.Items.Reset)
}

// PATCH /api/task-items/:id/proof
func (t *TaskHandler) RecordProof(c *gin.Context) {
	var req usecase.ProofInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t.itemAction(c, func(id string) (*domain.TaskItem, error) {
		return t.h.Items.RecordProof(id, req)
	})
}

// PATCH /api/task-items/:id/subtasks/:subtaskId
func (t *TaskHandler) SetSubtask(c *gin.Context) {
	var req SubtaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t.itemAction(c, func(id string) (*domain.TaskItem, error) {
		return t.h.Items.SetSubtask(id, c.Param("subtaskId"), *req.Done)
	})
}

// GET /api/escalation-rules
func (t *TaskHandler) ListRules(c *gin.Context) {
	rules, err := t.h.Templates.ListRules()
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]RuleResponse, 0, len(rules))
	for _, r := range rules {
		out = append(out, RuleResponse{EscalationRule: r, DisplayName: r.DisplayName()})
	}
	c.JSON(http.StatusOK, gin.H{"rules": out})
}

// POST /api/escalation-rules
func (t *TaskHandler) CreateRule(c *gin.Context) {
	var req CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rule, err := t.h.Templates.CreateRule(req.toRule())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, RuleResponse{EscalationRule: rule, DisplayName: rule.DisplayName()})
}

// DELETE /api/escalation-rules/:id
func (t *TaskHandler) DeleteRule(c *gin.Context) {
	if err := t.h.Templates.DeleteRule(c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Rule deleted successfully"})
}

// Checkout is the clock-out gate called by the attendance flow.
// 200 when allowed (with warnings), 409 with incomplete_tasks when blocked.
// POST /api/attendance/checkout
func (t *TaskHandler) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.EmployeeID == "" || !isManager(c) {
		req.EmployeeID = c.GetString(authdelivery.KeyEmployeeID)
	}
	if req.ClockOut.Before(req.ClockIn) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "clock_out is before clock_in"})
		return
	}

	res, err := t.h.Checkout.ClockOut(req.EmployeeID, req.ClockIn, req.ClockOut)
	if err != nil {
		var blocked *domain.CheckoutBlockedError
		if errors.As(err, &blocked) && res != nil {
			c.JSON(http.StatusConflict, gin.H{
				"error":            blocked.Error(),
				"incomplete_tasks": blocked.TaskNames,
				"result":           res,
			})
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /api/employees/:id/score
func (t *TaskHandler) Score(c *gin.Context) {
	employeeID := c.Param("id")
	if employeeID != c.GetString(authdelivery.KeyEmployeeID) && !isManager(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized"})
		return
	}
	score, err := t.h.Lists.Score(employeeID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, score)
}

// ShiftEvent accepts the same payload as the Pub/Sub subscription
// POST /api/shifts/events
func (t *TaskHandler) ShiftEvent(c *gin.Context) {
	if t.h.Shifts == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "shift events not configured"})
		return
	}
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := t.h.Shifts.HandleEvent(c.Request.Context(), data); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Shift event applied"})
}

// RunSweep triggers one scheduled rule on demand
// POST /api/admin/sweeps/:name
func (t *TaskHandler) RunSweep(c *gin.Context) {
	report, err := t.h.Sweeps.Run(c.Request.Context(), c.Param("name"))
	if err != nil && report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	resp := gin.H{"sweep": c.Param("name"), "results": report}
	if err != nil {
		resp["errors"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// POST /api/push-tokens
func (t *TaskHandler) RegisterPushToken(c *gin.Context) {
	userID := c.GetString(authdelivery.KeyUserID)
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token has no linked user"})
		return
	}
	var req PushTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := t.h.Tokens.SaveToken(userID, req.Token, req.DeviceInfo); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Token registered successfully"})
}

// DELETE /api/push-tokens/:token
func (t *TaskHandler) UnregisterPushToken(c *gin.Context) {
	userID := c.GetString(authdelivery.KeyUserID)
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token has no linked user"})
		return
	}
	if err := t.h.Tokens.DeleteToken(userID, c.Param("token")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Token removed successfully"})
}
