package handler

import (
	"net/http"
	"time"

	"github.com/GoPolymarket/unifygate/internal/middleware"
	"github.com/GoPolymarket/unifygate/internal/model"
	"github.com/GoPolymarket/unifygate/internal/pkg/apperrors"
	"github.com/GoPolymarket/unifygate/internal/service"
	"github.com/gin-gonic/gin"
)

type InstallationHandler struct {
	svc *service.InstallationService
}

func NewInstallationHandler(svc *service.InstallationService) *InstallationHandler {
	return &InstallationHandler{svc: svc}
}

type installationPublic struct {
	ID               string    `json:"id"`
	InstallationID   string    `json:"installation_id"`
	InstallationName string    `json:"installation_name"`
	UnifyAPIToken    string    `json:"unify_api_token"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func toInstallationPublic(inst *model.Installation) installationPublic {
	return installationPublic{
		ID:               inst.ID,
		InstallationID:   inst.InstallationID,
		InstallationName: inst.InstallationName,
		UnifyAPIToken:    service.MaskToken(inst.UnifyAPIToken),
		CreatedAt:        inst.CreatedAt,
		UpdatedAt:        inst.UpdatedAt,
	}
}

func (h *InstallationHandler) List(c *gin.Context) {
	id := middleware.IdentityFrom(c)
	items, err := h.svc.List(c.Request.Context(), id.UserID)
	if err != nil {
		c.Error(err)
		return
	}
	out := make([]installationPublic, 0, len(items))
	for _, inst := range items {
		out = append(out, toInstallationPublic(inst))
	}
	c.JSON(http.StatusOK, gin.H{"installations": out})
}

func (h *InstallationHandler) Create(c *gin.Context) {
	id := middleware.IdentityFrom(c)
	var req model.CreateInstallationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest("Missing required fields"))
		return
	}
	inst, err := h.svc.Create(c.Request.Context(), id.UserID, req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"installation": toInstallationPublic(inst)})
}
