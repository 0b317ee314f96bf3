package public

import (
	"strings"

	"github.com/moban-market/internal/http/response"

	"github.com/gin-gonic/gin"
)

// RedeemDownloadRequest 兑换下载凭证请求
type RedeemDownloadRequest struct {
	Token string `json:"token" binding:"required"`
}

// RedeemDownload 兑换一次性下载凭证
func (h *Handler) RedeemDownload(c *gin.Context) {
	var req RedeemDownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	grant, err := h.DownloadService.Redeem(req.Token)
	if err != nil {
		respondDownloadRedeemError(c, err)
		return
	}
	response.Success(c, grant)
}

// ReissueDownloadRequest 补发下载凭证请求
type ReissueDownloadRequest struct {
	LicenseKey string `json:"license_key" binding:"required"`
}

// ReissueDownload 为有效授权补发新的下载凭证
func (h *Handler) ReissueDownload(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req ReissueDownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	credential, err := h.DownloadService.Reissue(userID, strings.TrimSpace(req.LicenseKey))
	if err != nil {
		respondDownloadReissueError(c, err)
		return
	}
	response.Success(c, credential)
}
