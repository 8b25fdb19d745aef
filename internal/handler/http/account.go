package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sultanmr/aws-grocery/internal/avatar"
	"github.com/sultanmr/aws-grocery/internal/basket"
	"github.com/sultanmr/aws-grocery/internal/domain"
	"github.com/sultanmr/aws-grocery/internal/idset"
	"github.com/sultanmr/aws-grocery/internal/service"
	apperrors "github.com/sultanmr/aws-grocery/pkg/errors"
	"github.com/sultanmr/aws-grocery/pkg/httputil"
	"github.com/sultanmr/aws-grocery/pkg/middleware"
	"github.com/sultanmr/aws-grocery/pkg/pagination"
	"github.com/sultanmr/aws-grocery/pkg/validator"
)

// AccountService is the account API consumed by the handlers.
type AccountService interface {
	GetProfile(ctx context.Context, userID int64) (*domain.Profile, error)
	ListUsers(ctx context.Context, page pagination.Params) ([]domain.UserSummary, int, error)
	ListFavorites(ctx context.Context, userID int64) ([]domain.Product, error)
	AddFavorite(ctx context.Context, userID, productID int64) (*service.FavoriteResult, error)
	RemoveFavorite(ctx context.Context, userID, productID int64) (idset.Set, error)
	GetBasket(ctx context.Context, userID int64) (*domain.Basket, error)
	SyncBasket(ctx context.Context, userID int64, desired []basket.Line, expectedVersion *int64) (*service.SyncResult, error)
	RemoveBasketItem(ctx context.Context, userID, productID int64) (int64, error)
	Purchase(ctx context.Context, userID int64, productIDs []int64) (idset.Set, error)
	ListPurchased(ctx context.Context, userID int64) ([]domain.Product, error)
	UploadAvatar(ctx context.Context, userID int64, up service.AvatarUpload) (string, error)
	FetchAvatar(ctx context.Context, filename string) (*avatar.Object, error)
	StorageInfo() service.StorageInfo
}

// AccountHandler handles HTTP requests for account endpoints.
type AccountHandler struct {
	service        AccountService
	logger         *slog.Logger
	maxAvatarBytes int64
}

// NewAccountHandler creates a new account HTTP handler.
func NewAccountHandler(svc AccountService, logger *slog.Logger, maxAvatarBytes int64) *AccountHandler {
	if maxAvatarBytes <= 0 {
		maxAvatarBytes = avatar.DefaultMaxBytes
	}
	return &AccountHandler{service: svc, logger: logger, maxAvatarBytes: maxAvatarBytes}
}

// --- Request DTOs ---

// AddFavoriteRequest is the JSON request body for adding a favorite.
type AddFavoriteRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
}

// PurchaseRequest is the JSON request body for recording a purchase.
type PurchaseRequest struct {
	PurchasedProducts []int64 `json:"purchased_products" validate:"required,min=1,dive,gt=0"`
}

// --- Handlers ---

// StorageInfo handles GET /api/config
func (h *AccountHandler) StorageInfo(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, http.StatusOK, h.service.StorageInfo())
}

// ListUsers handles GET /api/users
func (h *AccountHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromRequest(r)
	users, total, err := h.service.ListUsers(r.Context(), page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(users, total, page.Page, page.PerPage))
}

// GetProfile handles GET /api/me
func (h *AccountHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	profile, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, profile)
}

// ListFavorites handles GET /api/me/favorites
func (h *AccountHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	products, err := h.service.ListFavorites(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, products)
}

// AddFavorite handles POST /api/me/favorites
func (h *AccountHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req AddFavoriteRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.service.AddFavorite(r.Context(), userID, req.ProductID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	if !res.Added {
		status = http.StatusOK
	}
	httputil.WriteData(w, status, res)
}

// RemoveFavorite handles DELETE /api/me/favorites/{productId}
func (h *AccountHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	productID, ok := httputil.ParseID(w, r, "product id", chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	favorites, err := h.service.RemoveFavorite(r.Context(), userID, productID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string]any{"fav_products": favorites})
}

// GetBasket handles GET /api/me/basket
func (h *AccountHandler) GetBasket(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	b, err := h.service.GetBasket(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	setVersion(w, b.Version)
	httputil.WriteData(w, http.StatusOK, b)
}

// SyncBasket handles PUT /api/me/basket. An If-Match header carrying the
// basket version turns on the stale-write check.
func (h *AccountHandler) SyncBasket(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	expected, err := parseIfMatch(r.Header.Get("If-Match"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var lines []basket.Line
	if err := validator.DecodeAndValidate(r, &lines); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.service.SyncBasket(r.Context(), userID, lines, expected)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	setVersion(w, res.Version)
	httputil.WriteData(w, http.StatusOK, res)
}

// RemoveBasketItem handles DELETE /api/me/basket/{productId}
func (h *AccountHandler) RemoveBasketItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	productID, ok := httputil.ParseID(w, r, "product id", chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	version, err := h.service.RemoveBasketItem(r.Context(), userID, productID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	setVersion(w, version)
	httputil.WriteData(w, http.StatusOK, map[string]int64{"version": version})
}

// Purchase handles POST /api/me/purchase
func (h *AccountHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req PurchaseRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	purchased, err := h.service.Purchase(r.Context(), userID, req.PurchasedProducts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string]any{"purchased_products": purchased})
}

// ListPurchased handles GET /api/me/purchased
func (h *AccountHandler) ListPurchased(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	products, err := h.service.ListPurchased(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, products)
}

// --- Helpers ---

func (h *AccountHandler) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, r, apperrors.Unauthorized("user not authenticated"))
		return 0, false
	}
	return id, true
}

func (h *AccountHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	httputil.WriteError(w, r, err, h.logger)
}

func setVersion(w http.ResponseWriter, version int64) {
	w.Header().Set("ETag", strconv.Quote(strconv.FormatInt(version, 10)))
}

// parseIfMatch reads a basket version from an If-Match header. An absent
// header or "*" disables the check.
func parseIfMatch(raw string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "*" {
		return nil, nil
	}
	raw = strings.Trim(strings.TrimPrefix(raw, "W/"), `"`)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return nil, apperrors.InvalidInput("If-Match must carry a basket version")
	}
	return &v, nil
}
