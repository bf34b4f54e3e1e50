package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"bolita-miniapp-backend/internal/config"
	"bolita-miniapp-backend/internal/models"
)

type RedisService struct {
	client *redis.Client
	ctx    context.Context

	bonusDefault decimal.Decimal
}

func NewRedisService(cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	ctx := context.Background()

	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %v", err)
	}

	bonus, err := decimal.NewFromString(cfg.BonusCUPDefault)
	if err != nil {
		return nil, fmt.Errorf("invalid BONUS_CUP_DEFAULT: %v", err)
	}

	service := &RedisService{
		client:       client,
		ctx:          ctx,
		bonusDefault: bonus,
	}

	return service, nil
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

// ========== Accounts ==========

// GetOrCreateAccount loads the account, creating it with the welcome bonus
// on first contact. A referrer is only recorded at creation time.
func (s *RedisService) GetOrCreateAccount(userID int64, firstName, username string, referredBy int64) (*models.Account, error) {
	key := fmt.Sprintf(KeyAccount, userID)

	data, err := s.client.Get(s.ctx, key).Result()
	if err == redis.Nil {
		now := time.Now().Unix()
		account := &models.Account{
			TelegramID: userID,
			FirstName:  firstName,
			Username:   username,
			CUP:        decimal.Zero,
			USD:        decimal.Zero,
			BonusCUP:   s.bonusDefault,
			ReferredBy: referredBy,
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		payload, err := json.Marshal(account)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal account: %v", err)
		}

		// SetNX so two concurrent first contacts create exactly one account.
		created, err := s.client.SetNX(s.ctx, key, payload, 0).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to create account: %v", err)
		}
		if !created {
			return s.GetAccount(userID)
		}

		if referredBy != 0 && referredBy != userID {
			s.client.SAdd(s.ctx, fmt.Sprintf(KeyReferrals, referredBy), userID)
		}

		if s.bonusDefault.IsPositive() {
			_ = s.SaveTransaction(&models.Transaction{
				ID:           models.GenerateTransactionID(),
				UserID:       userID,
				Type:         models.TransactionTypeBonus,
				Currency:     models.CurrencyCUP,
				Amount:       s.bonusDefault,
				BalanceAfter: s.bonusDefault,
				Description:  "Welcome bonus",
				CreatedAt:    now,
			})
		}

		return account, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %v", err)
	}

	var account models.Account
	if err := json.Unmarshal([]byte(data), &account); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account: %v", err)
	}

	if username != "" && account.Username != username {
		account.Username = username
		if payload, err := json.Marshal(&account); err == nil {
			s.client.Set(s.ctx, key, payload, 0)
		}
	}

	return &account, nil
}

func (s *RedisService) GetAccount(userID int64) (*models.Account, error) {
	key := fmt.Sprintf(KeyAccount, userID)

	data, err := s.client.Get(s.ctx, key).Result()
	if err == redis.Nil {
		return nil, models.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %v", err)
	}

	var account models.Account
	if err := json.Unmarshal([]byte(data), &account); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account: %v", err)
	}

	return &account, nil
}

func (s *RedisService) ReferralCount(userID int64) (int64, error) {
	return s.client.SCard(s.ctx, fmt.Sprintf(KeyReferrals, userID)).Result()
}

// UpdateAccount applies mutate to the account under an optimistic WATCH
// transaction, retrying on contention. The mutation either commits whole or
// not at all; mutate returning an error aborts with balances untouched.
func (s *RedisService) UpdateAccount(userID int64, mutate func(*models.Account) error) (*models.Account, error) {
	key := fmt.Sprintf(KeyAccount, userID)

	var updated *models.Account
	for attempt := 0; attempt < MaxTxRetries; attempt++ {
		err := s.client.Watch(s.ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(s.ctx, key).Result()
			if err == redis.Nil {
				return models.ErrAccountNotFound
			}
			if err != nil {
				return fmt.Errorf("failed to get account: %v", err)
			}

			var account models.Account
			if err := json.Unmarshal([]byte(data), &account); err != nil {
				return fmt.Errorf("failed to unmarshal account: %v", err)
			}

			if err := mutate(&account); err != nil {
				return err
			}
			account.UpdatedAt = time.Now().Unix()

			payload, err := json.Marshal(&account)
			if err != nil {
				return fmt.Errorf("failed to marshal account: %v", err)
			}

			_, err = tx.TxPipelined(s.ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(s.ctx, key, payload, 0)
				return nil
			})
			if err == nil {
				updated = &account
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

	return nil, fmt.Errorf("account %d update retries exhausted", userID)
}

// UpdateTwoAccounts runs one atomic transaction over both accounts, for
// transfers. Both mutations commit together or not at all.
func (s *RedisService) UpdateTwoAccounts(fromID, toID int64, mutate func(from, to *models.Account) error) error {
	fromKey := fmt.Sprintf(KeyAccount, fromID)
	toKey := fmt.Sprintf(KeyAccount, toID)

	for attempt := 0; attempt < MaxTxRetries; attempt++ {
		err := s.client.Watch(s.ctx, func(tx *redis.Tx) error {
			from, err := s.getAccountTx(tx, fromKey)
			if err != nil {
				return err
			}
			to, err := s.getAccountTx(tx, toKey)
			if err != nil {
				return err
			}

			if err := mutate(from, to); err != nil {
				return err
			}
			now := time.Now().Unix()
			from.UpdatedAt = now
			to.UpdatedAt = now

			fromPayload, err := json.Marshal(from)
			if err != nil {
				return fmt.Errorf("failed to marshal account: %v", err)
			}
			toPayload, err := json.Marshal(to)
			if err != nil {
				return fmt.Errorf("failed to marshal account: %v", err)
			}

			_, err = tx.TxPipelined(s.ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(s.ctx, fromKey, fromPayload, 0)
				pipe.Set(s.ctx, toKey, toPayload, 0)
				return nil
			})
			return err
		}, fromKey, toKey)

		if err == redis.TxFailedErr {
			continue
		}
		return err
	}

	return fmt.Errorf("transfer %d -> %d retries exhausted", fromID, toID)
}

func (s *RedisService) getAccountTx(tx *redis.Tx, key string) (*models.Account, error) {
	data, err := tx.Get(s.ctx, key).Result()
	if err == redis.Nil {
		return nil, models.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %v", err)
	}

	var account models.Account
	if err := json.Unmarshal([]byte(data), &account); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account: %v", err)
	}
	return &account, nil
}

// ========== Wagers ==========

func (s *RedisService) SaveWager(wager *models.Wager) error {
	data, err := json.Marshal(wager)
	if err != nil {
		return fmt.Errorf("failed to marshal wager: %v", err)
	}

	wagerKey := fmt.Sprintf(KeyWager, wager.ID)
	if err := s.client.Set(s.ctx, wagerKey, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save wager: %v", err)
	}

	if err := s.client.SAdd(s.ctx, fmt.Sprintf(KeySessionWagers, wager.SessionID), wager.ID).Err(); err != nil {
		return fmt.Errorf("failed to index wager by session: %v", err)
	}

	userKey := fmt.Sprintf(KeyUserWagers, wager.UserID)
	if err := s.client.ZAdd(s.ctx, userKey, redis.Z{
		Score:  float64(wager.PlacedAt),
		Member: wager.ID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to index wager by user: %v", err)
	}

	return nil
}

func (s *RedisService) UpdateWager(wager *models.Wager) error {
	data, err := json.Marshal(wager)
	if err != nil {
		return fmt.Errorf("failed to marshal wager: %v", err)
	}
	return s.client.Set(s.ctx, fmt.Sprintf(KeyWager, wager.ID), data, 0).Err()
}

func (s *RedisService) GetWager(wagerID string) (*models.Wager, error) {
	data, err := s.client.Get(s.ctx, fmt.Sprintf(KeyWager, wagerID)).Result()
	if err == redis.Nil {
		return nil, models.ErrWagerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wager: %v", err)
	}

	var wager models.Wager
	if err := json.Unmarshal([]byte(data), &wager); err != nil {
		return nil, fmt.Errorf("failed to unmarshal wager: %v", err)
	}
	return &wager, nil
}

func (s *RedisService) DeleteWager(wager *models.Wager) error {
	pipe := s.client.TxPipeline()
	pipe.Del(s.ctx, fmt.Sprintf(KeyWager, wager.ID))
	pipe.SRem(s.ctx, fmt.Sprintf(KeySessionWagers, wager.SessionID), wager.ID)
	pipe.ZRem(s.ctx, fmt.Sprintf(KeyUserWagers, wager.UserID), wager.ID)
	_, err := pipe.Exec(s.ctx)
	return err
}

func (s *RedisService) GetUserWagers(userID int64, limit int64) ([]*models.Wager, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	ids, err := s.client.ZRevRange(s.ctx, fmt.Sprintf(KeyUserWagers, userID), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get wager IDs: %v", err)
	}

	var wagers []*models.Wager
	for _, id := range ids {
		wager, err := s.GetWager(id)
		if err != nil {
			continue
		}
		wagers = append(wagers, wager)
	}
	return wagers, nil
}

// ScanSessionWagers pages through a session's wager IDs with SSCAN so
// settlement never loads the whole set at once.
func (s *RedisService) ScanSessionWagers(ctx context.Context, sessionID string, fn func(wagerID string) error) error {
	key := fmt.Sprintf(KeySessionWagers, sessionID)

	var cursor uint64
	for {
		ids, next, err := s.client.SScan(ctx, key, cursor, "", SettleScanCount).Result()
		if err != nil {
			return fmt.Errorf("failed to scan session wagers: %v", err)
		}
		for _, id := range ids {
			if err := fn(id); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// MarkWagerSettled records the per-wager settlement marker. Returns false if
// the wager was already marked, so a resumed run skips the credit.
func (s *RedisService) MarkWagerSettled(ctx context.Context, sessionID, wagerID string) (bool, error) {
	added, err := s.client.SAdd(ctx, fmt.Sprintf(KeySessionSettled, sessionID), wagerID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark wager settled: %v", err)
	}
	return added == 1, nil
}

// CreditPrizeAndMark credits a prize and commits the settled marker in the
// same transaction: the marker records a completed credit, never a claim.
// Returns false without crediting when the marker is already set.
func (s *RedisService) CreditPrizeAndMark(userID int64, sessionID, wagerID string, prizeCUP, prizeUSD decimal.Decimal) (bool, error) {
	accountKey := fmt.Sprintf(KeyAccount, userID)
	settledKey := fmt.Sprintf(KeySessionSettled, sessionID)

	for attempt := 0; attempt < MaxTxRetries; attempt++ {
		var credited bool
		err := s.client.Watch(s.ctx, func(tx *redis.Tx) error {
			done, err := tx.SIsMember(s.ctx, settledKey, wagerID).Result()
			if err != nil {
				return fmt.Errorf("failed to check settled marker: %v", err)
			}
			if done {
				return nil
			}

			account, err := s.getAccountTx(tx, accountKey)
			if err != nil {
				return err
			}
			account.CUP = account.CUP.Add(prizeCUP)
			account.USD = account.USD.Add(prizeUSD)
			account.UpdatedAt = time.Now().Unix()

			payload, err := json.Marshal(account)
			if err != nil {
				return fmt.Errorf("failed to marshal account: %v", err)
			}

			_, err = tx.TxPipelined(s.ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(s.ctx, accountKey, payload, 0)
				pipe.SAdd(s.ctx, settledKey, wagerID)
				return nil
			})
			if err == nil {
				credited = true
			}
			return err
		}, accountKey, settledKey)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			return false, err
		}
		return credited, nil
	}

	return false, fmt.Errorf("prize credit for wager %s retries exhausted", wagerID)
}

// ========== Transactions ==========

func (s *RedisService) SaveTransaction(tx *models.Transaction) error {
	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %v", err)
	}

	txKey := fmt.Sprintf(KeyTransaction, tx.ID)
	if err := s.client.Set(s.ctx, txKey, data, TTLTransaction).Err(); err != nil {
		return fmt.Errorf("failed to save transaction: %v", err)
	}

	userTxKey := fmt.Sprintf(KeyUserTransactions, tx.UserID)
	if err := s.client.ZAdd(s.ctx, userTxKey, redis.Z{
		Score:  float64(tx.CreatedAt),
		Member: tx.ID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to index transaction: %v", err)
	}

	// Keep only last 100 transactions per user
	s.client.ZRemRangeByRank(s.ctx, userTxKey, 0, -101)

	return nil
}

func (s *RedisService) GetUserTransactions(userID int64, limit int64) ([]*models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	ids, err := s.client.ZRevRange(s.ctx, fmt.Sprintf(KeyUserTransactions, userID), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction IDs: %v", err)
	}

	var transactions []*models.Transaction
	for _, id := range ids {
		data, err := s.client.Get(s.ctx, fmt.Sprintf(KeyTransaction, id)).Result()
		if err != nil {
			continue
		}
		var tx models.Transaction
		if err := json.Unmarshal([]byte(data), &tx); err != nil {
			continue
		}
		transactions = append(transactions, &tx)
	}
	return transactions, nil
}

// ========== Payment methods ==========

func (s *RedisService) SavePaymentMethod(method *models.PaymentMethod) error {
	data, err := json.Marshal(method)
	if err != nil {
		return fmt.Errorf("failed to marshal method: %v", err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(s.ctx, fmt.Sprintf(KeyPaymentMethod, method.ID), data, 0)
	pipe.SAdd(s.ctx, fmt.Sprintf(KeyPaymentMethods, method.Kind), method.ID)
	_, err = pipe.Exec(s.ctx)
	return err
}

func (s *RedisService) GetPaymentMethod(methodID string) (*models.PaymentMethod, error) {
	data, err := s.client.Get(s.ctx, fmt.Sprintf(KeyPaymentMethod, methodID)).Result()
	if err == redis.Nil {
		return nil, models.ErrMethodNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get method: %v", err)
	}

	var method models.PaymentMethod
	if err := json.Unmarshal([]byte(data), &method); err != nil {
		return nil, fmt.Errorf("failed to unmarshal method: %v", err)
	}
	return &method, nil
}

func (s *RedisService) ListPaymentMethods(kind models.FundDirection) ([]*models.PaymentMethod, error) {
	ids, err := s.client.SMembers(s.ctx, fmt.Sprintf(KeyPaymentMethods, kind)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list methods: %v", err)
	}

	var methods []*models.PaymentMethod
	for _, id := range ids {
		method, err := s.GetPaymentMethod(id)
		if err != nil {
			continue
		}
		methods = append(methods, method)
	}
	return methods, nil
}

func (s *RedisService) DeletePaymentMethod(method *models.PaymentMethod) error {
	pipe := s.client.TxPipeline()
	pipe.Del(s.ctx, fmt.Sprintf(KeyPaymentMethod, method.ID))
	pipe.SRem(s.ctx, fmt.Sprintf(KeyPaymentMethods, method.Kind), method.ID)
	_, err := pipe.Exec(s.ctx)
	return err
}

// ========== Test helpers ==========

// CheckRateLimit is a fixed-window counter keyed per user and action.
func (s *RedisService) CheckRateLimit(userID int64, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, userID, action)

	count, err := s.client.Incr(s.ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %v", err)
	}

	if count == 1 {
		s.client.Expire(s.ctx, key, window)
	}

	return count <= int64(limit), nil
}

func (s *RedisService) DeleteAccount(userID int64) error {
	return s.client.Del(s.ctx, fmt.Sprintf(KeyAccount, userID)).Err()
}

func (s *RedisService) FlushKeys(keys ...string) error {
	return s.client.Del(s.ctx, keys...).Err()
}
