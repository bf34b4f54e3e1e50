package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"bolita-miniapp-backend/internal/models"
)

// FundRequestGateway runs the deposit/withdraw request state machines.
// Transitions out of pending happen exactly once; withdraw funds are never
// reserved before approval.
type FundRequestGateway struct {
	store  *RedisService
	ledger *Ledger
}

func NewFundRequestGateway(store *RedisService, ledger *Ledger) *FundRequestGateway {
	return &FundRequestGateway{store: store, ledger: ledger}
}

func (g *FundRequestGateway) CreateDepositRequest(userID int64, methodID, amountText, proofRef string) (*models.FundRequest, error) {
	method, err := g.requireMethod(methodID, models.FundDeposit)
	if err != nil {
		return nil, err
	}

	amount, currency, ok := models.ParseAmountWithCurrency(amountText)
	if !ok {
		return nil, fmt.Errorf("invalid amount format, expected e.g. \"500 cup\"")
	}
	if currency != method.Currency {
		return nil, fmt.Errorf("method currency is %s, not %s", method.Currency, currency)
	}
	if err := checkMethodBounds(method, amount); err != nil {
		return nil, err
	}

	request := &models.FundRequest{
		ID:        models.GenerateRequestID(),
		UserID:    userID,
		Direction: models.FundDeposit,
		MethodID:  method.ID,
		Amount:    amount,
		Currency:  currency,
		Status:    models.FundRequestPending,
		ProofRef:  proofRef,
		CreatedAt: time.Now().Unix(),
	}

	if err := g.saveRequest(request); err != nil {
		return nil, err
	}
	return request, nil
}

// CreateWithdrawRequest verifies sufficiency at request time but does not
// reserve anything; balances may still move before approval.
func (g *FundRequestGateway) CreateWithdrawRequest(userID int64, methodID string, amount decimal.Decimal, currency models.Currency, accountInfo string) (*models.FundRequest, error) {
	method, err := g.requireMethod(methodID, models.FundWithdraw)
	if err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive")
	}
	if currency != method.Currency {
		return nil, fmt.Errorf("method currency is %s, not %s", method.Currency, currency)
	}
	if err := checkMethodBounds(method, amount); err != nil {
		return nil, err
	}

	if err := g.checkWithdrawFunds(userID, amount, currency); err != nil {
		return nil, err
	}

	request := &models.FundRequest{
		ID:          models.GenerateRequestID(),
		UserID:      userID,
		Direction:   models.FundWithdraw,
		MethodID:    method.ID,
		Amount:      amount,
		Currency:    currency,
		Status:      models.FundRequestPending,
		AccountInfo: accountInfo,
		CreatedAt:   time.Now().Unix(),
	}

	if err := g.saveRequest(request); err != nil {
		return nil, err
	}
	return request, nil
}

// ApproveDeposit credits the account. Native currencies credit directly;
// anything else converts to CUP at the rate current right now. Bonus is
// never touched.
func (g *FundRequestGateway) ApproveDeposit(requestID string) (*models.FundRequest, error) {
	request, err := g.GetRequest(requestID)
	if err != nil {
		return nil, err
	}
	if request.Direction != models.FundDeposit {
		return nil, models.ErrRequestNotFound
	}
	if request.Status != models.FundRequestPending {
		return nil, models.ErrRequestAlreadyProcessed
	}

	creditCurrency := request.Currency
	creditAmount := request.Amount
	if !request.Currency.IsNative() {
		rates, err := g.store.GetExchangeRates()
		if err != nil {
			return nil, err
		}
		creditCurrency = models.CurrencyCUP
		creditAmount = rates.ToCUP(request.Amount, request.Currency)
	}

	// Credit before flipping the status: a failed credit leaves the request
	// pending and retryable instead of approved with no money moved.
	userID := request.UserID
	if err := g.ledger.Credit(userID, creditCurrency, creditAmount); err != nil {
		return nil, fmt.Errorf("failed to credit deposit: %v", err)
	}

	request, err = g.transition(request.ID, models.FundRequestApproved)
	if err != nil {
		// Someone else processed it between our read and the flip; take the
		// funds back so the double-processing leaves no credit behind.
		g.ledger.Debit(userID, creditCurrency, creditAmount)
		return nil, err
	}

	g.ledger.record(userID, models.TransactionTypeDeposit, creditCurrency,
		creditAmount, "", fmt.Sprintf("Deposit %s approved", request.ID))

	return request, nil
}

// ApproveWithdraw re-checks sufficiency at approval time, debits, and only
// then marks the request approved. When funds no longer cover the amount
// the request stays pending and the operator gets ErrMustReject.
func (g *FundRequestGateway) ApproveWithdraw(requestID string) (*models.FundRequest, error) {
	request, err := g.GetRequest(requestID)
	if err != nil {
		return nil, err
	}
	if request.Direction != models.FundWithdraw {
		return nil, models.ErrRequestNotFound
	}
	if request.Status != models.FundRequestPending {
		return nil, models.ErrRequestAlreadyProcessed
	}

	debitCurrency := request.Currency
	debitAmount := request.Amount
	if !request.Currency.IsNative() {
		rates, err := g.store.GetExchangeRates()
		if err != nil {
			return nil, err
		}
		debitCurrency = models.CurrencyCUP
		debitAmount = rates.ToCUP(request.Amount, request.Currency)
	}

	userID := request.UserID
	if err := g.ledger.Debit(userID, debitCurrency, debitAmount); err != nil {
		if err == models.ErrInsufficientFunds {
			return nil, models.ErrMustReject
		}
		return nil, err
	}

	request, err = g.transition(request.ID, models.FundRequestApproved)
	if err != nil {
		// Someone else processed it between our read and the flip; give the
		// funds back so the double-processing leaves no debit behind.
		g.ledger.Credit(userID, debitCurrency, debitAmount)
		return nil, err
	}

	g.ledger.record(request.UserID, models.TransactionTypeWithdraw, debitCurrency,
		debitAmount.Neg(), "", fmt.Sprintf("Withdraw %s approved", request.ID))

	return request, nil
}

// Reject performs no balance mutation for either direction.
func (g *FundRequestGateway) Reject(requestID string) (*models.FundRequest, error) {
	return g.transition(requestID, models.FundRequestRejected)
}

func (g *FundRequestGateway) GetRequest(requestID string) (*models.FundRequest, error) {
	data, err := g.store.client.Get(g.store.ctx, fmt.Sprintf(KeyFundRequest, requestID)).Result()
	if err == redis.Nil {
		return nil, models.ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %v", err)
	}

	var request models.FundRequest
	if err := json.Unmarshal([]byte(data), &request); err != nil {
		return nil, fmt.Errorf("failed to unmarshal request: %v", err)
	}
	return &request, nil
}

func (g *FundRequestGateway) ListPending(direction models.FundDirection) ([]*models.FundRequest, error) {
	ids, err := g.store.client.ZRevRange(g.store.ctx,
		fmt.Sprintf(KeyPendingRequests, direction), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list pending requests: %v", err)
	}

	var requests []*models.FundRequest
	for _, id := range ids {
		request, err := g.GetRequest(id)
		if err != nil || request.Status != models.FundRequestPending {
			continue
		}
		requests = append(requests, request)
	}
	return requests, nil
}

// transition flips pending -> target exactly once under WATCH; any other
// starting status yields ErrRequestAlreadyProcessed.
func (g *FundRequestGateway) transition(requestID string, target models.FundRequestStatus) (*models.FundRequest, error) {
	key := fmt.Sprintf(KeyFundRequest, requestID)

	var updated *models.FundRequest
	for attempt := 0; attempt < MaxTxRetries; attempt++ {
		err := g.store.client.Watch(g.store.ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(g.store.ctx, key).Result()
			if err == redis.Nil {
				return models.ErrRequestNotFound
			}
			if err != nil {
				return fmt.Errorf("failed to get request: %v", err)
			}

			var request models.FundRequest
			if err := json.Unmarshal([]byte(data), &request); err != nil {
				return fmt.Errorf("failed to unmarshal request: %v", err)
			}

			if request.Status != models.FundRequestPending {
				return models.ErrRequestAlreadyProcessed
			}
			request.Status = target
			request.ProcessedAt = time.Now().Unix()

			payload, err := json.Marshal(&request)
			if err != nil {
				return fmt.Errorf("failed to marshal request: %v", err)
			}

			_, err = tx.TxPipelined(g.store.ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(g.store.ctx, key, payload, 0)
				pipe.ZRem(g.store.ctx, fmt.Sprintf(KeyPendingRequests, request.Direction), request.ID)
				return nil
			})
			if err == nil {
				updated = &request
			}
			return err
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}

	return nil, fmt.Errorf("request %s transition retries exhausted", requestID)
}

func (g *FundRequestGateway) checkWithdrawFunds(userID int64, amount decimal.Decimal, currency models.Currency) error {
	account, err := g.store.GetAccount(userID)
	if err != nil {
		return err
	}

	if currency.IsNative() {
		if account.Balance(currency).LessThan(amount) {
			return models.ErrInsufficientFunds
		}
		return nil
	}

	rates, err := g.store.GetExchangeRates()
	if err != nil {
		return err
	}
	if account.CUP.LessThan(rates.ToCUP(amount, currency)) {
		return models.ErrInsufficientFunds
	}
	return nil
}

func (g *FundRequestGateway) requireMethod(methodID string, kind models.FundDirection) (*models.PaymentMethod, error) {
	method, err := g.store.GetPaymentMethod(methodID)
	if err != nil {
		return nil, err
	}
	if method.Kind != kind {
		return nil, models.ErrMethodNotFound
	}
	return method, nil
}

func (g *FundRequestGateway) saveRequest(request *models.FundRequest) error {
	data, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %v", err)
	}

	pipe := g.store.client.TxPipeline()
	pipe.Set(g.store.ctx, fmt.Sprintf(KeyFundRequest, request.ID), data, 0)
	pipe.ZAdd(g.store.ctx, fmt.Sprintf(KeyPendingRequests, request.Direction), redis.Z{
		Score:  float64(request.CreatedAt),
		Member: request.ID,
	})
	if _, err := pipe.Exec(g.store.ctx); err != nil {
		return fmt.Errorf("failed to save request: %v", err)
	}
	return nil
}

func checkMethodBounds(method *models.PaymentMethod, amount decimal.Decimal) error {
	if method.MinAmount != nil && amount.LessThan(*method.MinAmount) {
		return fmt.Errorf("minimum amount: %s %s", method.MinAmount, method.Currency)
	}
	if method.MaxAmount != nil && amount.GreaterThan(*method.MaxAmount) {
		return fmt.Errorf("maximum amount: %s %s", method.MaxAmount, method.Currency)
	}
	return nil
}
