package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"hubadmin/internal/domain"
	"hubadmin/internal/table"
	"hubadmin/pkg/campushub"

	"github.com/gin-gonic/gin"
)

type PlanHandler struct {
	env *Env
}

func NewPlanHandler(env *Env) *PlanHandler {
	return &PlanHandler{env: env}
}

// commaList decodes either a JSON array of strings or one comma-separated
// string, dropping blank entries.
type commaList []string

func (l *commaList) UnmarshalJSON(b []byte) error {
	var arr []string
	if err := json.Unmarshal(b, &arr); err == nil {
		*l = splitItems(arr...)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.New("expected a list or a comma-separated string")
	}
	*l = splitItems(strings.Split(s, ",")...)
	return nil
}

func splitItems(items ...string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}

type PlanRequest struct {
	Name              string         `json:"name" binding:"required"`
	Price             float64        `json:"price" binding:"gte=0"`
	Period            string         `json:"period" binding:"required"`
	Description       string         `json:"description"`
	Features          commaList      `json:"features"`
	NotIncluded       commaList      `json:"not_included"`
	LegacyNotIncluded commaList      `json:"notIncluded"`
	Popular           campushub.Flag `json:"popular"`
}

func (r PlanRequest) plan() campushub.Plan {
	p := campushub.Plan{
		Name:        strings.TrimSpace(r.Name),
		Price:       r.Price,
		Period:      strings.TrimSpace(r.Period),
		Description: r.Description,
		Features:    []string(r.Features),
		NotIncluded: []string(r.NotIncluded),
		Popular:     r.Popular,
	}
	if len(p.NotIncluded) == 0 {
		p.NotIncluded = []string(r.LegacyNotIncluded)
	}
	if p.Features == nil {
		p.Features = []string{}
	}
	if p.NotIncluded == nil {
		p.NotIncluded = []string{}
	}
	return p
}

// List handles GET /api/plans?search=&popular=
func (h *PlanHandler) List(c *gin.Context) {
	q := table.ParseQuery(c, "popular")
	list, err := sess(c).Client.Plans(c.Request.Context())
	if err != nil {
		h.env.fail(c, err, "plans")
		return
	}
	rows := table.Filter(list, func(p campushub.Plan) bool {
		popular := "0"
		if p.Popular {
			popular = "1"
		}
		return table.Matches(q.Search, p.Name, p.Description, p.Period) && table.Is(q.Filter("popular"), popular)
	})
	c.JSON(http.StatusOK, table.Paginate(rows, q.Page, q.Limit))
}

// Create handles POST /api/plans.
func (h *PlanHandler) Create(c *gin.Context) {
	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p := req.plan()
	if err := sess(c).Client.CreatePlan(c.Request.Context(), p); err != nil {
		h.env.fail(c, err, "create plan")
		return
	}
	h.env.audit(c, domain.AuditPlanCreate, "plan", "", map[string]interface{}{"name": p.Name, "price": p.Price})
	c.JSON(http.StatusCreated, gin.H{"message": "plan created", "plan": p})
}

// Update handles PUT /api/plans/:id.
func (h *PlanHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p := req.plan()
	p.ID = id
	if err := sess(c).Client.EditPlan(c.Request.Context(), id, p); err != nil {
		h.env.fail(c, err, "edit plan")
		return
	}
	h.env.audit(c, domain.AuditPlanEdit, "plan", strconv.FormatInt(id, 10), map[string]interface{}{"name": p.Name, "price": p.Price})
	c.JSON(http.StatusOK, gin.H{"message": "plan updated", "plan": p})
}

// TogglePopular handles POST /api/plans/:id/popular: flips the flag on the
// current upstream copy of the plan.
func (h *PlanHandler) TogglePopular(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	s := sess(c)
	list, err := s.Client.Plans(ctx)
	if err != nil {
		h.env.fail(c, err, "plans")
		return
	}
	for _, p := range list {
		if p.ID != id {
			continue
		}
		p.Popular = !p.Popular
		if err := s.Client.EditPlan(ctx, id, p); err != nil {
			h.env.fail(c, err, "edit plan")
			return
		}
		h.env.audit(c, domain.AuditPlanEdit, "plan", strconv.FormatInt(id, 10), map[string]interface{}{"popular": bool(p.Popular)})
		c.JSON(http.StatusOK, gin.H{"message": "plan updated", "plan": p})
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "plan not found"})
}

// Delete handles DELETE /api/plans/:id.
func (h *PlanHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := sess(c).Client.DeletePlan(c.Request.Context(), id); err != nil {
		h.env.fail(c, err, "delete plan")
		return
	}
	h.env.audit(c, domain.AuditPlanDelete, "plan", strconv.FormatInt(id, 10), nil)
	c.JSON(http.StatusOK, gin.H{"message": "plan deleted"})
}
