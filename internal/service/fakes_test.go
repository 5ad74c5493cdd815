package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"

	"snakepill/internal/model"
	"snakepill/internal/repository"
	"snakepill/internal/shop"
)

// memStore is an in-memory PlayerStore, EligibilityStore and DistributionLogger
// that counts writes so tests can assert what was touched.
type memStore struct {
	mu       sync.Mutex
	players  map[string]*model.Player
	records  map[string]*model.EligibilityRecord
	order    []string // eligibility insertion order
	logs     []*model.DistributionLog
	nextID   int64
	writes   map[string]int // wallet -> eligibility/player writes
	failSet  map[string]error
	playerUp int
}

func newMemStore() *memStore {
	return &memStore{
		players: make(map[string]*model.Player),
		records: make(map[string]*model.EligibilityRecord),
		writes:  make(map[string]int),
		failSet: make(map[string]error),
	}
}

func newWallet() string {
	return solana.NewWallet().PublicKey().String()
}

func (m *memStore) addPlayer(wallet string, playtime int64, eligible bool) *model.Player {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := &model.Player{
		ID:                   uuid.New(),
		WalletAddress:        wallet,
		TotalPlaytimeSeconds: playtime,
		CurrentSkin:          model.DefaultSkin,
		OwnedSkins:           []string{model.DefaultSkin},
		IsEligible:           eligible,
		CreatedAt:            time.Now(),
	}
	m.players[wallet] = p
	return p
}

func (m *memStore) addActiveRecord(p *model.Player, holding decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertLocked(p.ID, p.WalletAddress, holding, p.TotalPlaytimeSeconds)
}

func (m *memStore) snapshot() (map[string]model.Player, map[string]model.EligibilityRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	players := make(map[string]model.Player, len(m.players))
	for k, v := range m.players {
		players[k] = *v
	}
	records := make(map[string]model.EligibilityRecord, len(m.records))
	for k, v := range m.records {
		r := *v
		r.LastVerifiedAt = time.Time{}
		records[k] = r
	}
	return players, records
}

func clonePlayer(p *model.Player) *model.Player {
	c := *p
	c.OwnedSkins = append([]string(nil), p.OwnedSkins...)
	return &c
}

// PlayerStore

func (m *memStore) GetByWallet(_ context.Context, wallet string) (*model.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[wallet]
	if !ok {
		return nil, repository.ErrPlayerNotFound
	}
	return clonePlayer(p), nil
}

func (m *memStore) GetOrCreate(ctx context.Context, wallet string) (*model.Player, bool, error) {
	if p, err := m.GetByWallet(ctx, wallet); err == nil {
		return p, false, nil
	}
	return clonePlayer(m.addPlayer(wallet, 0, false)), true, nil
}

func (m *memStore) GetPlayersWithMinPlaytime(_ context.Context, seconds int64) ([]*model.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Player
	for _, p := range m.players {
		if p.TotalPlaytimeSeconds >= seconds {
			out = append(out, clonePlayer(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WalletAddress < out[j].WalletAddress })
	return out, nil
}

func (m *memStore) UpdatePlayer(_ context.Context, wallet string, upd model.PlayerUpdate) (*model.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failSet[wallet]; err != nil {
		return nil, err
	}
	p, ok := m.players[wallet]
	if !ok {
		return nil, repository.ErrPlayerNotFound
	}
	m.writes[wallet]++
	m.playerUp++
	if upd.TotalPoints != nil {
		p.TotalPoints = *upd.TotalPoints
	}
	if upd.CurrentSkin != nil {
		p.CurrentSkin = *upd.CurrentSkin
	}
	if upd.IsEligible != nil {
		p.IsEligible = *upd.IsEligible
	}
	if upd.EligibleSince != nil {
		t := *upd.EligibleSince
		p.EligibleSince = &t
	} else if upd.ClearEligibleSince {
		p.EligibleSince = nil
	}
	return clonePlayer(p), nil
}

func (m *memStore) AddSessionResult(_ context.Context, wallet string, points, playtimeSeconds, score int64) (*model.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[wallet]
	if !ok {
		return nil, repository.ErrPlayerNotFound
	}
	p.TotalPoints += points
	p.TotalPlaytimeSeconds += playtimeSeconds
	p.GamesPlayed++
	if score > p.HighestScore {
		p.HighestScore = score
	}
	return clonePlayer(p), nil
}

func (m *memStore) PurchaseSkin(_ context.Context, wallet, skinID string, cost int64) (*model.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[wallet]
	if !ok {
		return nil, repository.ErrPlayerNotFound
	}
	if p.TotalPoints < cost || p.OwnsSkin(skinID) {
		return nil, repository.ErrPurchaseRejected
	}
	p.TotalPoints -= cost
	p.OwnedSkins = append(p.OwnedSkins, skinID)
	return clonePlayer(p), nil
}

// EligibilityStore

func (m *memStore) upsertLocked(playerID uuid.UUID, wallet string, holding decimal.Decimal, playtime int64) *model.EligibilityRecord {
	rec, ok := m.records[wallet]
	if !ok {
		m.nextID++
		rec = &model.EligibilityRecord{ID: m.nextID, WalletAddress: wallet}
		m.records[wallet] = rec
		m.order = append(m.order, wallet)
	}
	rec.PlayerID = playerID
	rec.HoldingUSD = holding
	rec.TotalPlaytimeSeconds = playtime
	rec.IsActive = true
	rec.LastVerifiedAt = time.Now()
	return rec
}

func (m *memStore) SetPlayerEligible(_ context.Context, playerID uuid.UUID, wallet string, holding decimal.Decimal, playtime int64) (*model.EligibilityRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failSet[wallet]; err != nil {
		return nil, err
	}
	m.writes[wallet]++
	rec := *m.upsertLocked(playerID, wallet, holding, playtime)
	return &rec, nil
}

func (m *memStore) RemovePlayerEligibility(_ context.Context, wallet string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failSet[wallet]; err != nil {
		return err
	}
	m.writes[wallet]++
	if rec, ok := m.records[wallet]; ok {
		rec.IsActive = false
	}
	return nil
}

func (m *memStore) GetEligiblePlayers(context.Context) ([]*model.EligiblePlayer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.EligiblePlayer
	for _, w := range m.order {
		rec := m.records[w]
		if !rec.IsActive {
			continue
		}
		ep := &model.EligiblePlayer{EligibilityRecord: *rec}
		if p, ok := m.players[w]; ok {
			ep.Player = clonePlayer(p)
		}
		out = append(out, ep)
	}
	return out, nil
}

func (m *memStore) CountActive(ctx context.Context) (int64, error) {
	eligible, err := m.GetEligiblePlayers(ctx)
	return int64(len(eligible)), err
}

// DistributionLogger

func (m *memStore) LogTaxDistribution(ctx context.Context, totalTax, pool decimal.Decimal, successCount int, perRecipient decimal.Decimal, signatures []string) (*model.DistributionLog, error) {
	// pgx refuses to run a query on a done context.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	entry := &model.DistributionLog{
		ID:                 m.nextID,
		TotalTaxSOL:        totalTax,
		DistributionAmount: pool,
		RecipientsCount:    successCount,
		AmountPerRecipient: perRecipient,
		TxSignatures:       append([]string(nil), signatures...),
		CreatedAt:          time.Now(),
	}
	m.logs = append(m.logs, entry)
	return entry, nil
}

func (m *memStore) GetRecent(_ context.Context, limit int) ([]*model.DistributionLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.DistributionLog
	for i := len(m.logs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.logs[i])
	}
	return out, nil
}

// fakeHoldings returns a fixed USD value per wallet.
type fakeHoldings struct {
	mu     sync.Mutex
	values map[string]decimal.Decimal
	calls  map[string]int
	block  chan struct{}
}

func newFakeHoldings() *fakeHoldings {
	return &fakeHoldings{values: make(map[string]decimal.Decimal), calls: make(map[string]int)}
}

func (f *fakeHoldings) set(wallet string, usd string) {
	f.mu.Lock()
	f.values[wallet] = decimal.RequireFromString(usd)
	f.mu.Unlock()
}

func (f *fakeHoldings) HoldingValueUSD(_ context.Context, wallet string) decimal.Decimal {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[wallet]++
	return f.values[wallet]
}

// fakePayer records transfers and fails for wallets in fail.
type fakePayer struct {
	mu      sync.Mutex
	balance decimal.Decimal
	fail    map[string]bool
	sent    []string
	amounts []decimal.Decimal
	sentAt  []time.Time
	// afterSend runs after the n-th payment (1-based) without the lock held.
	afterSend func(n int)
}

func (p *fakePayer) DistributorBalance(context.Context) decimal.Decimal {
	return p.balance
}

func (p *fakePayer) SendPayment(ctx context.Context, to string, amount decimal.Decimal) (string, error) {
	sig, n, err := p.record(ctx, to, amount)
	if p.afterSend != nil {
		p.afterSend(n)
	}
	return sig, err
}

func (p *fakePayer) record(ctx context.Context, to string, amount decimal.Decimal) (string, int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, to)
	p.amounts = append(p.amounts, amount)
	p.sentAt = append(p.sentAt, time.Now())
	n := len(p.sent)
	// Like the RPC client, a done context fails the call.
	if err := ctx.Err(); err != nil {
		return "", n, err
	}
	if p.fail[to] {
		return "", n, errors.New("simulated transport error")
	}
	return "sig-" + to[:8], n, nil
}

// memGame backs SessionStore, LeaderboardStore, OnlineStore and SkinStore.
type memGame struct {
	mu          sync.Mutex
	clock       clockwork.Clock
	sessions    map[uuid.UUID]*model.GameSession
	leaderboard []*model.LeaderboardEntry
	online      map[string]time.Time
	skins       map[string]*model.Skin
}

func newMemGame(clock clockwork.Clock) *memGame {
	g := &memGame{
		clock:    clock,
		sessions: make(map[uuid.UUID]*model.GameSession),
		online:   make(map[string]time.Time),
		skins:    make(map[string]*model.Skin),
	}
	for _, s := range shop.DefaultSkins {
		skin := s
		g.skins[s.ID] = &skin
	}
	return g
}

func (g *memGame) Create(_ context.Context, playerID *uuid.UUID, wallet *string) (*model.GameSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := &model.GameSession{ID: uuid.New(), PlayerID: playerID, WalletAddress: wallet, StartedAt: g.clock.Now()}
	g.sessions[s.ID] = s
	c := *s
	return &c, nil
}

func (g *memGame) End(_ context.Context, id uuid.UUID, score, playtimeSeconds, pillsEaten int64, reason string) (*model.GameSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.sessions[id]
	if !ok || s.EndedAt != nil {
		return nil, repository.ErrSessionNotFound
	}
	now := g.clock.Now()
	s.EndedAt = &now
	s.Score = score
	s.PlaytimeSeconds = playtimeSeconds
	s.PillsEaten = pillsEaten
	if reason != "" {
		s.GameOverReason = &reason
	}
	c := *s
	return &c, nil
}

func (g *memGame) Record(_ context.Context, p *model.Player, score, playtimeSeconds int64) (*model.LeaderboardEntry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e := &model.LeaderboardEntry{
		ID:              int64(len(g.leaderboard) + 1),
		PlayerID:        p.ID,
		WalletAddress:   p.WalletAddress,
		Score:           score,
		PlaytimeSeconds: playtimeSeconds,
		RecordedAt:      g.clock.Now(),
	}
	g.leaderboard = append(g.leaderboard, e)
	return e, nil
}

func (g *memGame) Top(_ context.Context, limit int) ([]*model.LeaderboardEntry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := append([]*model.LeaderboardEntry(nil), g.leaderboard...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (g *memGame) Touch(_ context.Context, sessionID string, _ *string, _ bool, seenAt time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.online[sessionID] = seenAt
	return nil
}

func (g *memGame) Remove(_ context.Context, sessionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.online, sessionID)
	return nil
}

func (g *memGame) CountSince(_ context.Context, since time.Time) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var n int64
	for _, seen := range g.online {
		if !seen.Before(since) {
			n++
		}
	}
	return n, nil
}

func (g *memGame) RemoveSeenBefore(_ context.Context, cutoff time.Time) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var n int64
	for id, seen := range g.online {
		if seen.Before(cutoff) {
			delete(g.online, id)
			n++
		}
	}
	return n, nil
}

func (g *memGame) List(context.Context) ([]*model.Skin, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*model.Skin, 0, len(g.skins))
	for _, s := range g.skins {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CostPoints < out[j].CostPoints })
	return out, nil
}

func (g *memGame) GetByID(_ context.Context, id string) (*model.Skin, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.skins[id]
	if !ok {
		return nil, repository.ErrSkinNotFound
	}
	return s, nil
}
