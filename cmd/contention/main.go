package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"ticketing/internal/orders"
	"ticketing/internal/seats"
	"ticketing/internal/shared/config"
	"ticketing/internal/users"
)

// ContentionResult is one caller's attempt at the contested seat
type ContentionResult struct {
	UserID       string        `json:"user_id"`
	StatusCode   int           `json:"status_code"`
	ResponseTime time.Duration `json:"response_time"`
	Message      string        `json:"message,omitempty"`
	Error        string        `json:"error,omitempty"`
}

type ContentionSuite struct {
	BaseURL    string
	Secret     string
	EventID    uuid.UUID
	TicketType string
	Seat       seats.Seat
	Results    []ContentionResult

	mu     sync.Mutex
	client *http.Client
}

// Fires concurrent orders for one seat against a running server and checks
// that exactly one of them is confirmed.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	var (
		eventID    = flag.String("event", "", "event id (required)")
		ticketType = flag.String("ticket-type", "General", "ticket type name")
		row        = flag.Int("row", 1, "seat row")
		column     = flag.Int("column", 1, "seat column")
		callers    = flag.Int("callers", 20, "concurrent callers")
		baseURL    = flag.String("base-url", "http://localhost"+cfg.GetServerAddress()+cfg.GetAPIBasePath(), "API base URL")
	)
	flag.Parse()

	id, err := uuid.Parse(*eventID)
	if err != nil {
		log.Fatalf("❌ -event must be a valid UUID: %v", err)
	}

	suite := &ContentionSuite{
		BaseURL:    *baseURL,
		Secret:     cfg.JWT.Secret,
		EventID:    id,
		TicketType: *ticketType,
		Seat:       seats.Seat{Row: *row, Column: *column},
		client:     &http.Client{Timeout: 30 * time.Second},
	}

	fmt.Println("🧪 Starting seat contention check...")
	fmt.Println("===================================")
	fmt.Printf("Event %s, %s seat (%d,%d), %d callers\n", id, *ticketType, *row, *column, *callers)

	suite.run(*callers)
	ok := suite.generateReport()
	suite.printOccupancy()

	if !ok {
		os.Exit(1)
	}
	fmt.Println("\n🎉 Contention check passed!")
}

func (s *ContentionSuite) run(callers int) {
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			userID := uuid.New()
			token, err := s.token(userID, users.RoleUser)
			<-start
			if err != nil {
				s.record(ContentionResult{UserID: userID.String(), Error: err.Error()})
				return
			}
			s.record(s.placeOrder(userID, token))
		}()
	}
	close(start)
	wg.Wait()
}

func (s *ContentionSuite) record(r ContentionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Results = append(s.Results, r)
}

func (s *ContentionSuite) token(userID uuid.UUID, role users.Role) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID.String(),
		"email":   userID.String() + "@contention.local",
		"role":    string(role),
		"type":    "access",
		"exp":     time.Now().Add(10 * time.Minute).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.Secret))
}

func (s *ContentionSuite) placeOrder(userID uuid.UUID, token string) ContentionResult {
	result := ContentionResult{UserID: userID.String()}

	body, err := json.Marshal(orders.CreateOrderRequest{
		EventID: s.EventID,
		Lines: []orders.LineRequest{
			{TicketType: s.TicketType, Quantity: 1, Seats: []seats.Seat{s.Seat}},
		},
		PaymentInfo: orders.PaymentInfo{
			Method:        "card",
			TransactionID: "contention-" + userID.String(),
			Currency:      "USD",
		},
	})
	if err != nil {
		result.Error = err.Error()
		return result
	}

	req, err := http.NewRequest(http.MethodPost, s.BaseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		result.Error = err.Error()
		return result
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := s.client.Do(req)
	result.ResponseTime = time.Since(start)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode
	var envelope struct {
		Message string `json:"message"`
	}
	if raw, err := io.ReadAll(resp.Body); err == nil {
		_ = json.Unmarshal(raw, &envelope)
	}
	result.Message = envelope.Message
	return result
}

// generateReport prints the outcome tally and reports whether exactly one order won
func (s *ContentionSuite) generateReport() bool {
	fmt.Println("\n📊 CONTENTION REPORT")
	fmt.Println("====================")

	byStatus := map[int]int{}
	failures := 0
	var total time.Duration
	for _, r := range s.Results {
		if r.Error != "" {
			failures++
			fmt.Printf("   ❌ %s: %s\n", r.UserID, r.Error)
			continue
		}
		byStatus[r.StatusCode]++
		total += r.ResponseTime
	}

	codes := make([]int, 0, len(byStatus))
	for code := range byStatus {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		icon := "⚠️"
		switch code {
		case http.StatusCreated:
			icon = "✅"
		case http.StatusConflict:
			icon = "🔒"
		}
		fmt.Printf("   %s HTTP %d: %d\n", icon, code, byStatus[code])
	}

	answered := len(s.Results) - failures
	if answered > 0 {
		fmt.Printf("Average Response Time: %v\n", total/time.Duration(answered))
	}

	winners := byStatus[http.StatusCreated]
	conflicts := byStatus[http.StatusConflict]
	ok := winners == 1 && conflicts == answered-1 && failures == 0
	if !ok {
		fmt.Printf("❌ Expected 1 confirmed order and %d conflicts, got %d and %d\n", answered-1, winners, conflicts)
	}
	return ok
}

func (s *ContentionSuite) printOccupancy() {
	token, err := s.token(uuid.New(), users.RoleAdmin)
	if err != nil {
		return
	}
	req, err := http.NewRequest(http.MethodGet, s.BaseURL+"/reports/events/"+s.EventID.String()+"/occupancy", nil)
	if err != nil {
		return
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.client.Do(req)
	if err != nil {
		fmt.Printf("   ⚠️ occupancy report unavailable: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return
	}
	fmt.Printf("\n📈 Occupancy after run: %s\n", envelope.Data)
}
