package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/core/domain"
	portssvc "github.com/SscSPs/ledger_engine/internal/core/ports/services"
	"github.com/SscSPs/ledger_engine/internal/dto"
	"github.com/SscSPs/ledger_engine/internal/handlers"
	"github.com/SscSPs/ledger_engine/internal/middleware"
	"github.com/SscSPs/ledger_engine/internal/platform/config"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock RecordService ---
type MockRecordService struct {
	mock.Mock
}

func (m *MockRecordService) CreateRecord(ctx context.Context, ownerID string, req dto.CreateRecordRequest) (*domain.Record, error) {
	args := m.Called(ctx, ownerID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Record), args.Error(1)
}

func (m *MockRecordService) GetRecord(ctx context.Context, ownerID, recordID string) (*domain.Record, error) {
	args := m.Called(ctx, ownerID, recordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Record), args.Error(1)
}

func (m *MockRecordService) ListRecords(ctx context.Context, ownerID string, filter domain.RecordFilter, limit int, nextToken *string) ([]domain.Record, *string, error) {
	args := m.Called(ctx, ownerID, filter, limit, nextToken)
	var next *string
	if args.Get(1) != nil {
		next = args.Get(1).(*string)
	}
	if args.Get(0) == nil {
		return nil, next, args.Error(2)
	}
	return args.Get(0).([]domain.Record), next, args.Error(2)
}

func (m *MockRecordService) EditRecord(ctx context.Context, ownerID, recordID string, req dto.UpdateRecordRequest) (*domain.Record, error) {
	args := m.Called(ctx, ownerID, recordID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Record), args.Error(1)
}

func (m *MockRecordService) DeleteRecord(ctx context.Context, ownerID, recordID string) error {
	args := m.Called(ctx, ownerID, recordID)
	return args.Error(0)
}

// Ensure mock implements the interface
var _ portssvc.RecordSvcFacade = (*MockRecordService)(nil)

func testConfig() *config.Config {
	return &config.Config{
		DefaultCurrency:     "INR",
		Location:            time.UTC,
		RateLimit:           "1000-S",
		CORSAllowedOrigins:  []string{"http://localhost:3000"},
		MutationMaxAttempts: 10,
	}
}

// --- Test Suite ---
type RecordHandlerTestSuite struct {
	suite.Suite
	router            *gin.Engine
	mockRecordService *MockRecordService
	ownerID           string
}

func (suite *RecordHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.router = gin.New()
	suite.mockRecordService = new(MockRecordService)
	suite.ownerID = uuid.NewString()

	err := handlers.RegisterRoutes(suite.router, testConfig(), &portssvc.ServiceContainer{Record: suite.mockRecordService})
	suite.Require().NoError(err)
}

func TestRecordHandler(t *testing.T) {
	suite.Run(t, new(RecordHandlerTestSuite))
}

func (suite *RecordHandlerTestSuite) do(method, url string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		suite.Require().NoError(err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, _ := http.NewRequest(method, url, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.OwnerHeader, suite.ownerID)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *RecordHandlerTestSuite) sampleRecord() *domain.Record {
	return &domain.Record{
		ID:         uuid.NewString(),
		OwnerID:    suite.ownerID,
		Name:       "Groceries",
		Amount:     decimal.NewFromInt(100),
		Currency:   "INR",
		Category:   "Food",
		Kind:       domain.Expense,
		OccurredOn: domain.NewDate(2024, time.June, 1),
		Version:    1,
	}
}

func (suite *RecordHandlerTestSuite) TestCreateRecord_Success() {
	record := suite.sampleRecord()
	suite.mockRecordService.On("CreateRecord", mock.Anything, suite.ownerID, mock.MatchedBy(func(r dto.CreateRecordRequest) bool {
		return r.Amount.Equal(decimal.NewFromInt(100)) && r.Kind == domain.Expense && r.OccurredOn == "2024-06-01"
	})).Return(record, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/records", gin.H{
		"name": "Groceries", "amount": "100", "currency": "INR",
		"category": "Food", "kind": "expense", "occurredOn": "2024-06-01",
	})

	suite.Equal(http.StatusCreated, w.Code, w.Body.String())
	var resp dto.RecordResponse
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal(record.ID, resp.ID)
	suite.Equal("2024-06-01", resp.OccurredOn)
	suite.mockRecordService.AssertExpectations(suite.T())
}

func (suite *RecordHandlerTestSuite) TestCreateRecord_RejectsBadBody() {
	testCases := []struct {
		name string
		body gin.H
	}{
		{name: "zero amount", body: gin.H{"name": "x", "amount": "0", "category": "Food", "kind": "expense", "occurredOn": "2024-06-01"}},
		{name: "unknown kind", body: gin.H{"name": "x", "amount": "1", "category": "Food", "kind": "transfer", "occurredOn": "2024-06-01"}},
		{name: "missing name", body: gin.H{"amount": "1", "category": "Food", "kind": "income", "occurredOn": "2024-06-01"}},
		{name: "bad currency", body: gin.H{"name": "x", "amount": "1", "currency": "rupees", "category": "Food", "kind": "income", "occurredOn": "2024-06-01"}},
	}
	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			w := suite.do(http.MethodPost, "/api/v1/records", tc.body)
			suite.Equal(http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
	suite.mockRecordService.AssertNotCalled(suite.T(), "CreateRecord", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *RecordHandlerTestSuite) TestMissingOwnerHeader() {
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/records", nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.mockRecordService.AssertNotCalled(suite.T(), "ListRecords", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *RecordHandlerTestSuite) TestGetRecord_ErrorMapping() {
	testCases := []struct {
		name string
		err  error
		want int
	}{
		{name: "not found", err: apperrors.NewNotFoundError("record", "r-1"), want: http.StatusNotFound},
		{name: "validation", err: apperrors.NewValidationError("bad id"), want: http.StatusBadRequest},
		{name: "transient", err: fmt.Errorf("gave up: %w", apperrors.ErrTransient), want: http.StatusServiceUnavailable},
		{name: "store down", err: fmt.Errorf("offline: %w", apperrors.ErrStoreUnavailable), want: http.StatusServiceUnavailable},
		{name: "unexpected", err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			recordID := uuid.NewString()
			suite.mockRecordService.On("GetRecord", mock.Anything, suite.ownerID, recordID).Return(nil, tc.err).Once()

			w := suite.do(http.MethodGet, "/api/v1/records/"+recordID, nil)
			suite.Equal(tc.want, w.Code, w.Body.String())
		})
	}
	suite.mockRecordService.AssertExpectations(suite.T())
}

func (suite *RecordHandlerTestSuite) TestListRecords_PassesFilter() {
	next := "token-2"
	records := []domain.Record{*suite.sampleRecord()}
	suite.mockRecordService.On("ListRecords", mock.Anything, suite.ownerID,
		mock.MatchedBy(func(f domain.RecordFilter) bool {
			return f.From != nil && f.From.String() == "2024-06-01" &&
				f.To == nil &&
				f.Kind != nil && *f.Kind == domain.Expense &&
				f.Category != nil && *f.Category == "Food"
		}),
		25,
		mock.MatchedBy(func(tok *string) bool { return tok != nil && *tok == "token-1" }),
	).Return(records, &next, nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/records?from=2024-06-01&kind=expense&category=Food&limit=25&nextToken=token-1", nil)

	suite.Equal(http.StatusOK, w.Code, w.Body.String())
	var resp dto.ListRecordsResponse
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Len(resp.Records, 1)
	suite.Require().NotNil(resp.NextToken)
	suite.Equal("token-2", *resp.NextToken)
	suite.mockRecordService.AssertExpectations(suite.T())
}

func (suite *RecordHandlerTestSuite) TestListRecords_BadDate() {
	w := suite.do(http.MethodGet, "/api/v1/records?from=June", nil)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *RecordHandlerTestSuite) TestUpdateRecord() {
	record := suite.sampleRecord()
	record.Version = 2
	suite.mockRecordService.On("EditRecord", mock.Anything, suite.ownerID, record.ID, mock.MatchedBy(func(r dto.UpdateRecordRequest) bool {
		return r.Amount != nil && r.Amount.Equal(decimal.NewFromInt(100)) && r.Kind == nil
	})).Return(record, nil).Once()

	w := suite.do(http.MethodPatch, "/api/v1/records/"+record.ID, gin.H{"amount": "100"})
	suite.Equal(http.StatusOK, w.Code, w.Body.String())
	suite.mockRecordService.AssertExpectations(suite.T())
}

func (suite *RecordHandlerTestSuite) TestDeleteRecord() {
	recordID := uuid.NewString()
	suite.mockRecordService.On("DeleteRecord", mock.Anything, suite.ownerID, recordID).Return(nil).Once()

	w := suite.do(http.MethodDelete, "/api/v1/records/"+recordID, nil)
	suite.Equal(http.StatusNoContent, w.Code)
	suite.mockRecordService.AssertExpectations(suite.T())
}
