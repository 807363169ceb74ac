package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/classtalk-api/pkg/errors"
	"github.com/noah-isme/classtalk-api/pkg/response"
	"github.com/noah-isme/classtalk-api/pkg/storage"
)

// AttachmentHandler redeems signed attachment tokens. Objects live in the
// hosted storage bucket; the API validates the token and redirects to the
// object URL instead of proxying bytes.
type AttachmentHandler struct {
	signer     *storage.AttachmentSigner
	storageURL string
}

// NewAttachmentHandler creates a new handler.
func NewAttachmentHandler(signer *storage.AttachmentSigner, supabaseURL string) *AttachmentHandler {
	return &AttachmentHandler{
		signer:     signer,
		storageURL: strings.TrimRight(supabaseURL, "/") + "/storage/v1/object/public",
	}
}

// Download godoc
// @Summary Download an attachment
// @Description Redeems a signed attachment token and redirects to the stored object
// @Tags Attachments
// @Param token path string true "Signed attachment token"
// @Success 302
// @Failure 401 {object} response.Envelope
// @Router /attachments/{token} [get]
func (h *AttachmentHandler) Download(c *gin.Context) {
	token := c.Param("token")

	_, objectPath, _, err := h.signer.Verify(token)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid attachment token"))
		return
	}

	c.Redirect(http.StatusFound, fmt.Sprintf("%s/%s", h.storageURL, strings.TrimLeft(objectPath, "/")))
}
