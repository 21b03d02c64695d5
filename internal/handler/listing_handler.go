package handler

import (
	"net/http"
	"strconv"

	"hubadmin/internal/domain"
	"hubadmin/internal/table"
	"hubadmin/pkg/campushub"

	"github.com/gin-gonic/gin"
)

type ListingHandler struct {
	env *Env
}

func NewListingHandler(env *Env) *ListingHandler {
	return &ListingHandler{env: env}
}

// List handles GET /api/listings?search=&availability=
func (h *ListingHandler) List(c *gin.Context) {
	q := table.ParseQuery(c, "availability")
	list, err := sess(c).Client.Listings(c.Request.Context())
	if err != nil {
		h.env.fail(c, err, "listings")
		return
	}
	rows := table.Filter(list, func(l campushub.Listing) bool {
		return table.Matches(q.Search, l.Title, l.PropertyName, l.RoomType) &&
			table.Is(q.Filter("availability"), l.AvailabilityStatus)
	})
	c.JSON(http.StatusOK, table.Paginate(rows, q.Page, q.Limit))
}

type EditListingRequest struct {
	AvailabilityStatus string  `json:"availability_status" binding:"required"`
	Price              float64 `json:"price" binding:"gte=0"`
}

// Edit handles PUT /api/listings/:id.
func (h *ListingHandler) Edit(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req EditListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	upd := campushub.ListingUpdate{AvailabilityStatus: req.AvailabilityStatus, Price: req.Price}
	if err := sess(c).Client.EditListing(c.Request.Context(), id, upd); err != nil {
		h.env.fail(c, err, "edit listing")
		return
	}
	h.env.audit(c, domain.AuditListingEdit, "listing", strconv.FormatInt(id, 10), map[string]interface{}{
		"availability_status": req.AvailabilityStatus,
		"price":               req.Price,
	})
	c.JSON(http.StatusOK, gin.H{"message": "listing updated"})
}

// Delete handles DELETE /api/listings/:id.
func (h *ListingHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := sess(c).Client.DeleteListing(c.Request.Context(), id); err != nil {
		h.env.fail(c, err, "delete listing")
		return
	}
	h.env.audit(c, domain.AuditListingDelete, "listing", strconv.FormatInt(id, 10), nil)
	c.JSON(http.StatusOK, gin.H{"message": "listing deleted"})
}
