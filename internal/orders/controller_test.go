package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketing/internal/seats"
	"ticketing/internal/shared/middleware"
	"ticketing/internal/shared/utils/response"
	"ticketing/internal/users"
	"ticketing/internal/waitlist"
)

type mockService struct {
	createFn func(ctx context.Context, userID uuid.UUID, req CreateOrderRequest) (*Order, error)
	cancelFn func(ctx context.Context, orderID, requesterID uuid.UUID, isAdmin bool) (*Order, error)
	getFn    func(ctx context.Context, orderID, requesterID uuid.UUID, isAdmin, expand bool) (*OrderView, error)
	listFn   func(ctx context.Context, userID uuid.UUID, query ListOrdersQuery) (*PaginatedOrders, error)
}

func (m *mockService) SetClock(func() time.Time) {}

func (m *mockService) CreateOrder(ctx context.Context, userID uuid.UUID, req CreateOrderRequest) (*Order, error) {
	return m.createFn(ctx, userID, req)
}

func (m *mockService) CancelOrder(ctx context.Context, orderID, requesterID uuid.UUID, isAdmin bool) (*Order, error) {
	return m.cancelFn(ctx, orderID, requesterID, isAdmin)
}

func (m *mockService) GetOrder(ctx context.Context, orderID, requesterID uuid.UUID, isAdmin, expand bool) (*OrderView, error) {
	return m.getFn(ctx, orderID, requesterID, isAdmin, expand)
}

func (m *mockService) ListUserOrders(ctx context.Context, userID uuid.UUID, query ListOrdersQuery) (*PaginatedOrders, error) {
	return m.listFn(ctx, userID, query)
}

// newEngine mounts the controller behind a stub that plays the role of JWTAuth
func newEngine(svc Service, userID uuid.UUID, role users.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		if userID != uuid.Nil {
			c.Set(middleware.ContextUserID, userID.String())
			c.Set(middleware.ContextUserRole, string(role))
		}
		c.Next()
	})

	ctrl := NewController(svc)
	engine.POST("/orders", ctrl.CreateOrder)
	engine.GET("/orders/:id", ctrl.GetOrder)
	engine.POST("/orders/:id/cancel", ctrl.CancelOrder)
	engine.GET("/users/orders", ctrl.ListUserOrders)
	return engine
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) response.StandardApiResponse {
	t.Helper()
	var resp response.StandardApiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func orderBody(eventID uuid.UUID) string {
	return fmt.Sprintf(`{
		"event_id": %q,
		"lines": [{"ticket_type": "Floor", "quantity": 1, "seats": [{"row": 1, "column": 2}]}],
		"payment_info": {"method": "card", "transaction_id": "txn-9"}
	}`, eventID)
}

func TestCreateOrder_Handler_Success(t *testing.T) {
	userID, eventID := uuid.New(), uuid.New()
	svc := &mockService{
		createFn: func(_ context.Context, gotUser uuid.UUID, req CreateOrderRequest) (*Order, error) {
			assert.Equal(t, userID, gotUser)
			assert.Equal(t, eventID, req.EventID)
			require.Len(t, req.Lines, 1)
			assert.Equal(t, []seats.Seat{{Row: 1, Column: 2}}, req.Lines[0].Seats)
			return &Order{ID: uuid.New(), UserID: gotUser, EventID: req.EventID, Status: StatusConfirmed, TotalAmount: decimal.NewFromInt(50)}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(orderBody(eventID)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	newEngine(svc, userID, users.RoleUser).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "Order confirmed", resp.Message)
}

func TestCreateOrder_Handler_Unauthenticated(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(orderBody(uuid.New())))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	newEngine(&mockService{}, uuid.Nil, "").ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateOrder_Handler_InvalidSeat(t *testing.T) {
	body := fmt.Sprintf(`{
		"event_id": %q,
		"lines": [{"ticket_type": "Floor", "quantity": 1, "seats": [{"row": 0, "column": 2}]}],
		"payment_info": {"method": "card", "transaction_id": "txn-9"}
	}`, uuid.New())

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	newEngine(&mockService{}, uuid.New(), users.RoleUser).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, "Invalid request body", resp.Message)
	require.IsType(t, []interface{}{}, resp.Errors)
	first := resp.Errors.([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "Lines[0].Seats[0].Row", first["field"])
	assert.Equal(t, "required", first["rule"])
}

func TestCreateOrder_Handler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"seat conflict", &seats.SeatError{Kind: seats.ErrAlreadyBooked, TicketType: "Floor", Seat: &seats.Seat{Row: 1, Column: 2}}, http.StatusConflict},
		{"capacity", fmt.Errorf("line 1 (Floor): %w", seats.ErrCapacityExceeded), http.StatusConflict},
		{"duplicate waitlist order", ErrDuplicateWaitlistOrder, http.StatusConflict},
		{"waitlist stock", &waitlist.StockError{Name: "Standing", Requested: 2, Remaining: 1}, http.StatusConflict},
		{"mismatch", ErrQuantityMismatch, http.StatusBadRequest},
		{"out of range", seats.ErrOutOfRange, http.StatusBadRequest},
		{"event missing", ErrEventNotFound, http.StatusNotFound},
		{"not on sale", ErrEventNotOnSale, http.StatusUnprocessableEntity},
		{"unexpected", fmt.Errorf("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockService{
				createFn: func(context.Context, uuid.UUID, CreateOrderRequest) (*Order, error) {
					return nil, tt.err
				},
			}
			req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(orderBody(uuid.New())))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			newEngine(svc, uuid.New(), users.RoleUser).ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			resp := decode(t, rec)
			assert.Equal(t, "error", resp.Status)
			assert.Equal(t, tt.err.Error(), resp.Message)
		})
	}
}

func TestCancelOrder_Handler(t *testing.T) {
	adminID, orderID := uuid.New(), uuid.New()

	t.Run("admin flag is passed through", func(t *testing.T) {
		svc := &mockService{
			cancelFn: func(_ context.Context, gotOrder, requester uuid.UUID, isAdmin bool) (*Order, error) {
				assert.Equal(t, orderID, gotOrder)
				assert.Equal(t, adminID, requester)
				assert.True(t, isAdmin)
				return &Order{ID: gotOrder, Status: StatusCancelled}, nil
			},
		}
		rec := httptest.NewRecorder()
		newEngine(svc, adminID, users.RoleAdmin).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders/"+orderID.String()+"/cancel", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("forbidden and not found stay distinct", func(t *testing.T) {
		for err, want := range map[error]int{ErrForbidden: http.StatusForbidden, ErrOrderNotFound: http.StatusNotFound, ErrAlreadyCancelled: http.StatusConflict} {
			svc := &mockService{
				cancelFn: func(context.Context, uuid.UUID, uuid.UUID, bool) (*Order, error) { return nil, err },
			}
			rec := httptest.NewRecorder()
			newEngine(svc, uuid.New(), users.RoleUser).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders/"+orderID.String()+"/cancel", nil))
			assert.Equal(t, want, rec.Code, err.Error())
		}
	})

	t.Run("malformed id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newEngine(&mockService{}, uuid.New(), users.RoleUser).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders/not-a-uuid/cancel", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetOrder_Handler_Expand(t *testing.T) {
	var gotExpand bool
	svc := &mockService{
		getFn: func(_ context.Context, orderID, _ uuid.UUID, _, expand bool) (*OrderView, error) {
			gotExpand = expand
			return &OrderView{Order: &Order{ID: orderID}}, nil
		},
	}

	rec := httptest.NewRecorder()
	newEngine(svc, uuid.New(), users.RoleUser).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/"+uuid.NewString()+"?expand=event", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, gotExpand)
}

func TestListUserOrders_Handler(t *testing.T) {
	userID := uuid.New()
	svc := &mockService{
		listFn: func(_ context.Context, gotUser uuid.UUID, query ListOrdersQuery) (*PaginatedOrders, error) {
			assert.Equal(t, userID, gotUser)
			assert.Equal(t, 2, query.Page)
			assert.Equal(t, 5, query.Limit)
			return &PaginatedOrders{Orders: []Order{}, Page: 2, Limit: 5}, nil
		},
	}

	rec := httptest.NewRecorder()
	newEngine(svc, userID, users.RoleUser).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/orders?page=2&limit=5", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
