package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/smart_inventory/internal/apperr"
	"github.com/Skotchmaster/smart_inventory/internal/jwtmiddleware"
	"github.com/Skotchmaster/smart_inventory/internal/logging"
	"github.com/Skotchmaster/smart_inventory/internal/models"
)

// ObjectStore is satisfied by objectstore.Client.
type ObjectStore interface {
	UploadFile(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}

type InventoryHandler struct {
	DB       *gorm.DB
	Store    ObjectStore
	Producer EventPublisher
}

type createItemRequest struct {
	Name        string `form:"name"        validate:"required"`
	Description string `form:"description"`
	Quantity    int    `form:"quantity"`
}

func (h *InventoryHandler) publish(c echo.Context, event map[string]interface{}) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), publishTimeout)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "item_events", fmt.Sprint(event["ownerID"]), event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish failed", "topic", "item_events", "error", err)
	}
}

func (h *InventoryHandler) CreateItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "inventory_create")

	ownerID, ok := jwtmiddleware.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, apperr.ErrInvalidToken.Error())
	}

	var req createItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "image is required")
	}
	file, err := fileHeader.Open()
	if err != nil {
		l.Error("open uploaded file failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	defer file.Close()

	// Random key instead of timestamp+filename so concurrent uploads of the
	// same file cannot collide.
	key := uuid.NewString() + filepath.Ext(fileHeader.Filename)
	contentType := fileHeader.Header.Get("Content-Type")

	imageURL, err := h.Store.UploadFile(ctx, key, file, contentType)
	if err != nil {
		l.Error("upload failed", "key", key, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, apperr.ErrUploadFailed.Error())
	}

	item := models.Item{
		Name:        req.Name,
		Description: req.Description,
		Quantity:    req.Quantity,
		ImageURL:    imageURL,
		OwnerID:     ownerID,
	}
	if err := h.DB.WithContext(ctx).Create(&item).Error; err != nil {
		// The uploaded object is orphaned here; there is no compensating
		// delete.
		l.Error("persist item failed", "key", key, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	h.publish(c, map[string]interface{}{
		"type":    "item_created",
		"itemID":  item.ID,
		"ownerID": item.OwnerID,
		"name":    item.Name,
	})

	l.Info("item created", "item_id", item.ID, "owner_id", item.OwnerID)
	return c.JSON(http.StatusCreated, item)
}

func (h *InventoryHandler) ListItems(c echo.Context) error {
	ctx := c.Request().Context()

	ownerID, ok := jwtmiddleware.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, apperr.ErrInvalidToken.Error())
	}

	items := []models.Item{}
	if err := h.DB.WithContext(ctx).Where("owner_id = ?", ownerID).Find(&items).Error; err != nil {
		logging.FromContext(ctx).Error("list items failed", "owner_id", ownerID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	return c.JSON(http.StatusOK, items)
}
