package handler

import (
	"context"
	"net/http"

	inventoryapp "github.com/ggc/backend/internal/application/inventory"
	"github.com/ggc/backend/internal/domain/warehouse"
	"github.com/ggc/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Reloader re-runs the configured inventory source
type Reloader interface {
	Reload(ctx context.Context) (*inventoryapp.LoadReport, error)
}

// WarehouseHandler serves the published warehouse
type WarehouseHandler struct {
	BaseHandler
	holder   *inventoryapp.WarehouseHolder
	reloader Reloader
}

// NewWarehouseHandler creates a WarehouseHandler. reloader may be nil, in which
// case the reload endpoint is not registered.
func NewWarehouseHandler(holder *inventoryapp.WarehouseHolder, reloader Reloader) *WarehouseHandler {
	return &WarehouseHandler{holder: holder, reloader: reloader}
}

// RegisterRoutes mounts the warehouse endpoints on rg
func (h *WarehouseHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/partners", h.ListPartners)
	rg.GET("/partners/:id", h.GetPartner)
	rg.GET("/products", h.ListProducts)
	rg.GET("/products/:id", h.GetProduct)
	rg.GET("/batches", h.ListBatches)
	rg.GET("/batches/:id", h.GetBatch)
	rg.GET("/warehouse/stats", h.GetStats)
	if h.reloader != nil {
		rg.POST("/warehouse/reload", h.Reload)
	}
}

func (h *WarehouseHandler) bindList(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		h.ValidationError(c, err)
		return false
	}
	return true
}

func normalize(req *dto.ListRequest) {
	def := dto.DefaultListRequest()
	if req.Page == 0 {
		req.Page = def.Page
	}
	if req.PageSize == 0 {
		req.PageSize = def.PageSize
	}
}

// ListPartners returns partners sorted by id
func (h *WarehouseHandler) ListPartners(c *gin.Context) {
	req := dto.DefaultListRequest()
	if !h.bindList(c, &req) {
		return
	}
	normalize(&req)

	partners := h.holder.Current().Partners()
	start, end := req.Window(len(partners))
	out := make([]dto.PartnerResponse, 0, end-start)
	for _, p := range partners[start:end] {
		out = append(out, dto.ToPartnerResponse(p))
	}
	h.SuccessWithMeta(c, out, int64(len(partners)), req.Page, req.PageSize)
}

// GetPartner returns one partner with its batches
func (h *WarehouseHandler) GetPartner(c *gin.Context) {
	w := h.holder.Current()
	id := c.Param("id")

	partner, err := w.GetPartner(id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	batches, err := w.PartnerBatches(id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.PartnerDetailResponse{
		PartnerResponse: dto.ToPartnerResponse(partner),
		Batches:         dto.ToBatchResponses(batches),
	})
}

// ListProducts returns products sorted by id, optionally filtered by kind
func (h *WarehouseHandler) ListProducts(c *gin.Context) {
	req := dto.ListProductsRequest{ListRequest: dto.DefaultListRequest()}
	if !h.bindList(c, &req) {
		return
	}
	normalize(&req.ListRequest)

	products := h.holder.Current().Products()
	if req.Kind != "" {
		filtered := products[:0:0]
		for _, p := range products {
			if string(p.Kind) == req.Kind {
				filtered = append(filtered, p)
			}
		}
		products = filtered
	}

	start, end := req.Window(len(products))
	out := make([]dto.ProductResponse, 0, end-start)
	for _, p := range products[start:end] {
		out = append(out, dto.ToProductResponse(p))
	}
	h.SuccessWithMeta(c, out, int64(len(products)), req.Page, req.PageSize)
}

// GetProduct returns one product with its batches, recipe and costing
func (h *WarehouseHandler) GetProduct(c *gin.Context) {
	w := h.holder.Current()
	id := c.Param("id")

	product, err := w.GetProduct(id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	batches, err := w.ProductBatches(id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	cost, err := w.DerivedCost(id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := dto.ProductDetailResponse{
		ProductResponse: dto.ToProductResponse(product),
		Recipe:          dto.ToRecipeResponse(product.Recipe()),
		DerivedCost:     cost,
		Batches:         dto.ToBatchResponses(batches),
	}
	if maxPrice, ok, err := w.MaxBatchPrice(id); err == nil && ok {
		resp.MaxBatchPrice = &maxPrice
	}
	h.Success(c, resp)
}

// ListBatches returns batches in creation order, optionally filtered by partner or product
func (h *WarehouseHandler) ListBatches(c *gin.Context) {
	req := dto.ListBatchesRequest{ListRequest: dto.DefaultListRequest()}
	if !h.bindList(c, &req) {
		return
	}
	normalize(&req.ListRequest)

	batches, err := h.selectBatches(h.holder.Current(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	start, end := req.Window(len(batches))
	h.SuccessWithMeta(c, dto.ToBatchResponses(batches[start:end]), int64(len(batches)), req.Page, req.PageSize)
}

// GetBatch returns one batch by its uuid
func (h *WarehouseHandler) GetBatch(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "batch id must be a UUID")
		return
	}
	batch, err := h.holder.Current().GetBatch(id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToBatchResponse(batch))
}

func (h *WarehouseHandler) selectBatches(w *warehouse.Warehouse, req dto.ListBatchesRequest) ([]*warehouse.Batch, error) {
	var (
		batches []*warehouse.Batch
		err     error
	)
	switch {
	case req.Partner != "":
		batches, err = w.PartnerBatches(req.Partner)
	case req.Product != "":
		batches, err = w.ProductBatches(req.Product)
	default:
		return w.Batches(), nil
	}
	if err != nil {
		return nil, err
	}
	if req.Partner != "" && req.Product != "" {
		filtered := batches[:0:0]
		for _, b := range batches {
			if b.ProductID == req.Product {
				filtered = append(filtered, b)
			}
		}
		batches = filtered
	}
	return batches, nil
}

// GetStats returns counts and provenance of the published warehouse
func (h *WarehouseHandler) GetStats(c *gin.Context) {
	pub := h.holder.Publication()
	stats := pub.Warehouse.Stats()
	resp := dto.StatsResponse{
		Stats:    stats,
		Products: stats.Products(),
		Source:   pub.Source,
		Digest:   pub.Digest,
	}
	if !pub.LoadedAt.IsZero() {
		resp.LoadedAt = &pub.LoadedAt
	}
	h.Success(c, resp)
}

// Reload re-runs the configured source and publishes the result
func (h *WarehouseHandler) Reload(c *gin.Context) {
	report, err := h.reloader.Reload(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(report))
}
