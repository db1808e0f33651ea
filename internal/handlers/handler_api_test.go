package handlers_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
	"github.com/SscSPs/ledger_engine/internal/core/services"
	"github.com/SscSPs/ledger_engine/internal/dto"
	"github.com/SscSPs/ledger_engine/internal/handlers"
	"github.com/SscSPs/ledger_engine/internal/middleware"
	"github.com/SscSPs/ledger_engine/internal/repositories/database/memory"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

// APITestSuite drives the full HTTP surface against real services on the in-memory store.
type APITestSuite struct {
	suite.Suite
	router  *gin.Engine
	hub     *services.Hub
	ownerID string
	today   string
}

func (suite *APITestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	suite.hub = services.NewHub(services.WithMaxBackoff(50 * time.Millisecond))
	container := services.NewServiceContainer(cfg, memory.NewRepositoryProvider(memory.NewStore()), suite.hub, nil)

	suite.router = gin.New()
	suite.Require().NoError(handlers.RegisterRoutes(suite.router, cfg, container))
	suite.ownerID = "owner-api"
	suite.today = domain.DateOf(time.Now().In(cfg.Location)).String()
}

func (suite *APITestSuite) TearDownTest() {
	suite.hub.Close()
}

func TestAPI(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}

func (suite *APITestSuite) call(method, url string, body any, out any) int {
	var buf bytes.Buffer
	if body != nil {
		suite.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, _ := http.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.OwnerHeader, suite.ownerID)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	if out != nil && w.Code < 300 {
		suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	}
	return w.Code
}

func (suite *APITestSuite) createRecord(kind, amount, category string) dto.RecordResponse {
	var resp dto.RecordResponse
	code := suite.call(http.MethodPost, "/api/v1/records", gin.H{
		"name": category, "amount": amount, "category": category, "kind": kind, "occurredOn": suite.today,
	}, &resp)
	suite.Require().Equal(http.StatusCreated, code)
	return resp
}

func (suite *APITestSuite) balance() domain.Balance {
	var b domain.Balance
	suite.Require().Equal(http.StatusOK, suite.call(http.MethodGet, "/api/v1/balance", nil, &b))
	return b
}

func (suite *APITestSuite) TestHealth() {
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	suite.Equal(http.StatusOK, w.Code)
}

func (suite *APITestSuite) TestRecordLifecycleKeepsBalance() {
	income := suite.createRecord("income", "500", "Salary")
	expense := suite.createRecord("expense", "120.50", "Food")
	suite.Equal("INR", income.Currency)

	b := suite.balance()
	suite.True(b.Total.Equal(decimal.RequireFromString("379.50")), b.Total.String())

	var edited dto.RecordResponse
	suite.Equal(http.StatusOK, suite.call(http.MethodPatch, "/api/v1/records/"+expense.ID, gin.H{"amount": "20.50"}, &edited))
	suite.Equal(int64(2), edited.Version)
	suite.True(suite.balance().Total.Equal(decimal.RequireFromString("479.50")))

	suite.Equal(http.StatusNoContent, suite.call(http.MethodDelete, "/api/v1/records/"+income.ID, nil, nil))
	suite.Equal(http.StatusNoContent, suite.call(http.MethodDelete, "/api/v1/records/"+income.ID, nil, nil))
	suite.True(suite.balance().Total.Equal(decimal.RequireFromString("-20.50")))

	suite.Equal(http.StatusNotFound, suite.call(http.MethodGet, "/api/v1/records/"+income.ID, nil, nil))
}

func (suite *APITestSuite) TestDefaultCurrencyAndConversion() {
	suite.createRecord("income", "1000", "Salary")

	suite.Equal(http.StatusBadRequest, suite.call(http.MethodPut, "/api/v1/profile/currency", gin.H{"currency": "dollars"}, nil))
	suite.Equal(http.StatusOK, suite.call(http.MethodPut, "/api/v1/profile/currency", gin.H{"currency": "USD"}, nil))

	var current dto.DefaultCurrencyResponse
	suite.Equal(http.StatusOK, suite.call(http.MethodGet, "/api/v1/profile/currency", nil, &current))
	suite.Equal("USD", current.Currency)

	b := suite.balance()
	suite.Equal("USD", b.Currency)
	suite.True(b.Total.Equal(decimal.NewFromInt(12)), b.Total.String())

	var rates domain.RateTable
	suite.Equal(http.StatusOK, suite.call(http.MethodGet, "/api/v1/rates", nil, &rates))
	suite.Equal("INR", rates.Base)
}

func (suite *APITestSuite) TestBudgets() {
	var budget dto.BudgetResponse
	suite.Equal(http.StatusCreated, suite.call(http.MethodPost, "/api/v1/budgets", gin.H{"category": "Food", "amount": "200"}, &budget))
	suite.Equal(http.StatusConflict, suite.call(http.MethodPost, "/api/v1/budgets", gin.H{"category": "Food", "amount": "300"}, nil))

	suite.createRecord("expense", "250", "Food")

	var consumption domain.BudgetConsumption
	suite.Equal(http.StatusOK, suite.call(http.MethodGet, "/api/v1/budgets/consumption?category=Food", nil, &consumption))
	suite.True(consumption.Percent.Equal(decimal.NewFromInt(125)), consumption.Percent.String())
	suite.True(consumption.DisplayPercent.Equal(decimal.NewFromInt(100)))
	suite.True(consumption.OverBudget)

	suite.Equal(http.StatusBadRequest, suite.call(http.MethodGet, "/api/v1/budgets/consumption", nil, nil))
	suite.Equal(http.StatusNotFound, suite.call(http.MethodGet, "/api/v1/budgets/consumption?category=Rent", nil, nil))
	suite.Equal(http.StatusBadRequest, suite.call(http.MethodGet, "/api/v1/budgets/consumption?category=Food&from=2024-01-01", nil, nil))

	suite.Equal(http.StatusNoContent, suite.call(http.MethodPut, "/api/v1/budgets/pin", gin.H{"budgetId": budget.ID}, nil))
	var list struct {
		Budgets []domain.BudgetConsumption `json:"budgets"`
	}
	suite.Equal(http.StatusOK, suite.call(http.MethodGet, "/api/v1/budgets", nil, &list))
	suite.Require().Len(list.Budgets, 1)
	suite.True(list.Budgets[0].Pinned)
}

func (suite *APITestSuite) TestReportsAndDashboard() {
	suite.createRecord("income", "500", "Salary")
	suite.createRecord("expense", "100", "Food")
	suite.createRecord("expense", "50", "Food")

	var monthly domain.MonthlyTotals
	suite.Equal(http.StatusOK, suite.call(http.MethodGet, "/api/v1/reports/monthly-totals", nil, &monthly))
	suite.True(monthly.Totals.Income.Equal(decimal.NewFromInt(500)))
	suite.True(monthly.Totals.Expense.Equal(decimal.NewFromInt(150)))

	var daily domain.DailyBuckets
	suite.Equal(http.StatusOK, suite.call(http.MethodGet, "/api/v1/reports/daily-buckets?days=3", nil, &daily))
	suite.Require().Len(daily.Buckets, 3)
	suite.Equal(suite.today, daily.Buckets[2].Date.String())

	suite.Equal(http.StatusBadRequest, suite.call(http.MethodGet, "/api/v1/reports/monthly-totals?month=13", nil, nil))

	var dash domain.Dashboard
	suite.Equal(http.StatusOK, suite.call(http.MethodGet, "/api/v1/reports/dashboard", nil, &dash))
	suite.True(dash.Balance.Total.Equal(decimal.NewFromInt(350)))
	suite.Len(dash.Recent.Records, 3)
}

func (suite *APITestSuite) TestLiveBalanceStream() {
	server := httptest.NewServer(suite.router)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/v1/subscriptions/balance", nil)
	suite.Require().NoError(err)
	req.Header.Set(middleware.OwnerHeader, suite.ownerID)

	resp, err := http.DefaultClient.Do(req)
	suite.Require().NoError(err)
	defer resp.Body.Close()
	suite.Require().Equal(http.StatusOK, resp.StatusCode)

	events := make(chan domain.Balance, 16)
	go func() {
		defer close(events)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			var b domain.Balance
			if json.Unmarshal([]byte(strings.TrimPrefix(line, "data:")), &b) == nil {
				events <- b
			}
		}
	}()

	first := <-events
	suite.True(first.Total.IsZero())

	suite.createRecord("income", "42", "Gift")
	for b := range events {
		if b.Total.Equal(decimal.NewFromInt(42)) {
			cancel()
			return
		}
	}
	suite.Fail("stream ended before the new balance arrived")
}
