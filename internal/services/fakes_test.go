package services

import (
	"context"
	"math/big"
	"strings"
	"sync"

	"agentfails/internal/chain"
	"agentfails/internal/db"
	"agentfails/internal/models"

	"github.com/ethereum/go-ethereum/common"
)

type fakeStore struct {
	mu           sync.Mutex
	members      map[string]*models.Member
	postTotal    int64
	usedProofs   map[models.Action]map[string]bool
	fulfillments map[string]*models.Fulfillment
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		members:      map[string]*models.Member{},
		usedProofs:   map[models.Action]map[string]bool{},
		fulfillments: map[string]*models.Fulfillment{},
	}
}

func (s *fakeStore) FindMember(_ context.Context, wallet string) (*models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.members[wallet], nil
}

func (s *fakeStore) CreateMember(_ context.Context, m *models.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[m.WalletAddress]; ok {
		return db.ErrDuplicate
	}
	s.members[m.WalletAddress] = m
	return nil
}

func (s *fakeStore) PostTotal(context.Context) (int64, error) {
	return s.postTotal, nil
}

func (s *fakeStore) ProofUsed(_ context.Context, action models.Action, proof string) (bool, error) {
	return s.usedProofs[action][proof], nil
}

func (s *fakeStore) markUsed(action models.Action, proof string) {
	if s.usedProofs[action] == nil {
		s.usedProofs[action] = map[string]bool{}
	}
	s.usedProofs[action][proof] = true
}

func (s *fakeStore) ClaimFulfillment(_ context.Context, sessionID, wallet, size string) (*models.Fulfillment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.fulfillments[sessionID]
	if !ok {
		f = &models.Fulfillment{SessionID: sessionID, WalletAddress: wallet, Size: size, Status: models.FulfillmentPending}
		s.fulfillments[sessionID] = f
	}
	f.Attempts++
	cp := *f
	return &cp, nil
}

func (s *fakeStore) SaveFulfillment(_ context.Context, f *models.Fulfillment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *f
	s.fulfillments[f.SessionID] = &cp
	return nil
}

// fakeVerifier 按预设结果返回，并记录调用次数
type fakeVerifier struct {
	results map[string]Verification
	calls   int
}

func (v *fakeVerifier) VerifyTransfer(_ context.Context, proof string, minAmount *big.Int) Verification {
	v.calls++
	if r, ok := v.results[proof]; ok {
		return r
	}
	return Verification{Status: Invalid, Reason: "transaction not found or not yet confirmed"}
}

type fakeHolders struct {
	balances map[string]int64
	err      error
}

func (h *fakeHolders) NFTBalance(_ context.Context, _, wallet string) (*big.Int, error) {
	if h.err != nil {
		return nil, h.err
	}
	return big.NewInt(h.balances[wallet]), nil
}

type fakeChain struct {
	receipts map[string]*chain.TransactionReceipt
	err      error
	balance  *big.Int
}

func (c *fakeChain) GetTransactionReceipt(_ context.Context, hash string) (*chain.TransactionReceipt, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.receipts[hash], nil
}

func (c *fakeChain) BalanceOf(context.Context, common.Address, common.Address) (*big.Int, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.balance, nil
}

func txHash(n int) string {
	return "0x" + strings.Repeat("0", 63) + string(rune('0'+n%10))
}

const (
	testUSDC      = "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"
	testCollector = "0xd4C15E8dEcC996227cE1830A39Af2Dd080138F89"
	testPayer     = "0x1111111111111111111111111111111111111111"
)

func transferLog(token, from, to string, value int64) *chain.Log {
	pad := func(addr string) string {
		return "0x" + strings.Repeat("0", 24) + strings.ToLower(strings.TrimPrefix(addr, "0x"))
	}
	return &chain.Log{
		Address: token,
		Topics:  []string{chain.TransferTopic.Hex(), pad(from), pad(to)},
		Data:    common.BytesToHash(big.NewInt(value).Bytes()).Hex(),
	}
}
